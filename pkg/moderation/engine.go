package moderation

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/validation"
)

// Decision is approve or reject
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Outcome describes what a decision did.
type Outcome struct {
	Ref      ItemRef  `json:"ref"`
	Decision Decision `json:"decision"`
	// Changed is false when the item had already reached the requested state.
	Changed bool `json:"changed"`
	// PointID is the point whose published state the decision affects.
	PointID string `json:"point_id"`
	// Point is the point after the decision; nil when it was deleted.
	Point *models.PointOfInterest `json:"point,omitempty"`
	// Closed lists sibling requests closed by a delete approval.
	Closed []ItemRef `json:"closed,omitempty"`
}

// Engine applies and discards submissions. Every decision runs in one
// transaction, so a two-write approval either lands completely or not at all.
// Concurrent decisions are serialized by the stores' optimistic checks: point
// writes compare versions and request writes require status pending.
type Engine struct {
	stores Stores
	logger ectologger.Logger
}

// NewEngine creates a new reconciliation engine
func NewEngine(stores Stores, logger ectologger.Logger) *Engine {
	return &Engine{
		stores: stores,
		logger: logger,
	}
}

// Load reads the current state of the item ref addresses.
func (e *Engine) Load(ctx context.Context, ref ItemRef) (Submission, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	switch ref.Kind {
	case KindCreate:
		point, err := e.stores.Points.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return CreateItem{Point: *point}, nil
	case KindUpdate:
		req, err := e.stores.Edits.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return UpdateItem{Request: *req}, nil
	default:
		req, err := e.stores.Deletes.Get(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return DeleteItem{Request: *req}, nil
	}
}

// Approve applies the item to the canonical store in one transaction
func (e *Engine) Approve(ctx context.Context, ref ItemRef, moderator string) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Approve")
	defer span.End()

	return e.decide(ctx, ref, DecisionApprove, moderator)
}

// Reject discards the item. Canonical content is never changed
func (e *Engine) Reject(ctx context.Context, ref ItemRef, moderator string) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Engine.Reject")
	defer span.End()

	return e.decide(ctx, ref, DecisionReject, moderator)
}

func (e *Engine) decide(ctx context.Context, ref ItemRef, decision Decision, moderator string) (*Outcome, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	var outcome *Outcome
	err := e.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		outcome = &Outcome{Ref: ref, Decision: decision}

		switch {
		case ref.Kind == KindCreate && decision == DecisionApprove:
			return e.approveCreate(ctx, outcome, moderator)
		case ref.Kind == KindCreate:
			return e.rejectCreate(ctx, outcome, moderator)
		case ref.Kind == KindUpdate && decision == DecisionApprove:
			return e.approveUpdate(ctx, outcome, moderator)
		case ref.Kind == KindUpdate:
			return e.rejectUpdate(ctx, outcome, moderator)
		case decision == DecisionApprove:
			return e.approveDelete(ctx, outcome, moderator)
		default:
			return e.rejectDelete(ctx, outcome, moderator)
		}
	})
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"kind":      ref.Kind,
			"id":        ref.ID,
			"decision":  decision,
			"moderator": moderator,
		}).Warn("moderation decision failed")
		return nil, err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"kind":      ref.Kind,
		"id":        ref.ID,
		"decision":  decision,
		"changed":   outcome.Changed,
		"point_id":  outcome.PointID,
		"moderator": moderator,
	}).Info("moderation decision applied")

	return outcome, nil
}

func (e *Engine) approveCreate(ctx context.Context, out *Outcome, moderator string) error {
	point, err := e.stores.Points.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = point.ID
	out.Point = point

	switch point.Status {
	case models.RecordPublished:
		return nil
	case models.RecordUnpublished:
		return Conflict("point of interest %s was rejected and cannot be approved", point.ID)
	}

	point.Status = models.RecordPublished
	point.UpdatedBy = moderator
	if err := e.stores.Points.Update(ctx, point, point.Version); err != nil {
		return err
	}

	out.Changed = true
	return nil
}

func (e *Engine) rejectCreate(ctx context.Context, out *Outcome, moderator string) error {
	point, err := e.stores.Points.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = point.ID
	out.Point = point

	switch point.Status {
	case models.RecordUnpublished:
		return nil
	case models.RecordPublished:
		return Conflict("point of interest %s is already published", point.ID)
	}

	point.Status = models.RecordUnpublished
	point.UpdatedBy = moderator
	if err := e.stores.Points.Update(ctx, point, point.Version); err != nil {
		return err
	}

	out.Changed = true
	return nil
}

func (e *Engine) approveUpdate(ctx context.Context, out *Outcome, moderator string) error {
	req, err := e.stores.Edits.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = req.TargetID

	switch req.Status {
	case models.RequestApplied:
		return nil
	case models.RequestRejected:
		return Conflict("edit request %s was rejected and cannot be approved", req.ID)
	}

	if err := validation.Struct(req.Proposed); err != nil {
		return err
	}

	target, err := e.stores.Points.Get(ctx, req.TargetID)
	if err != nil {
		return err
	}

	target.Apply(req.Proposed)
	target.Status = models.RecordPublished
	target.UpdatedBy = moderator
	if err := e.stores.Points.Update(ctx, target, target.Version); err != nil {
		return err
	}

	if err := e.stores.Edits.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestApplied, moderator); err != nil {
		return err
	}

	out.Point = target
	out.Changed = true
	return nil
}

func (e *Engine) rejectUpdate(ctx context.Context, out *Outcome, moderator string) error {
	req, err := e.stores.Edits.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = req.TargetID

	switch req.Status {
	case models.RequestRejected:
		return nil
	case models.RequestApplied:
		return Conflict("edit request %s was already applied", req.ID)
	}

	if err := e.stores.Edits.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestRejected, moderator); err != nil {
		return err
	}

	out.Changed = true
	return nil
}

func (e *Engine) approveDelete(ctx context.Context, out *Outcome, moderator string) error {
	req, err := e.stores.Deletes.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = req.TargetID

	switch req.Status {
	case models.RequestApplied:
		return nil
	case models.RequestRejected:
		return Conflict("delete request %s was rejected and cannot be approved", req.ID)
	}

	if err := e.stores.Points.Delete(ctx, req.TargetID); err != nil {
		return err
	}

	if err := e.stores.Deletes.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestApplied, moderator); err != nil {
		return err
	}

	// requests still pending against the removed point can never apply
	edits, err := e.stores.Edits.ListPendingForTarget(ctx, req.TargetID)
	if err != nil {
		return err
	}
	for _, edit := range edits {
		if err := e.stores.Edits.UpdateStatus(ctx, edit.ID, models.RequestPending, models.RequestRejected, moderator); err != nil {
			return err
		}
		out.Closed = append(out.Closed, ItemRef{Kind: KindUpdate, ID: edit.ID})
	}

	deletes, err := e.stores.Deletes.ListPendingForTarget(ctx, req.TargetID)
	if err != nil {
		return err
	}
	for _, sibling := range deletes {
		if err := e.stores.Deletes.UpdateStatus(ctx, sibling.ID, models.RequestPending, models.RequestApplied, moderator); err != nil {
			return err
		}
		out.Closed = append(out.Closed, ItemRef{Kind: KindDelete, ID: sibling.ID})
	}

	out.Changed = true
	return nil
}

func (e *Engine) rejectDelete(ctx context.Context, out *Outcome, moderator string) error {
	req, err := e.stores.Deletes.Get(ctx, out.Ref.ID)
	if err != nil {
		return err
	}
	out.PointID = req.TargetID

	switch req.Status {
	case models.RequestRejected:
		return nil
	case models.RequestApplied:
		return Conflict("delete request %s was already applied", req.ID)
	}

	if err := e.stores.Deletes.UpdateStatus(ctx, req.ID, models.RequestPending, models.RequestRejected, moderator); err != nil {
		return err
	}

	out.Changed = true
	return nil
}
