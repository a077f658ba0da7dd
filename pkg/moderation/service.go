package moderation

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/notify"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/validation"
)

// Service is the moderator-facing entry point. It owns the counter and the
// notification channel, so callers hold no queue state of their own.
type Service struct {
	stores   Stores
	engine   *Engine
	counter  *Counter
	notifier notify.Publisher
	logger   ectologger.Logger
}

// NewService creates a new moderation service
func NewService(stores Stores, counter *Counter, notifier notify.Publisher, logger ectologger.Logger) *Service {
	return &Service{
		stores:   stores,
		engine:   NewEngine(stores, logger),
		counter:  counter,
		notifier: notifier,
		logger:   logger,
	}
}

// Queue fetches the three pending lists concurrently, builds the queue and
// reconciles the counter with its counts.
func (s *Service) Queue(ctx context.Context, category Category) (*Queue, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Service.Queue")
	defer span.End()

	start := time.Now()
	var (
		points  []models.PointOfInterest
		edits   []models.EditRequest
		deletes []models.DeleteRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		points, err = s.stores.Points.List(gctx, models.RecordPending)
		return FetchFailure("pending points", err)
	})
	g.Go(func() (err error) {
		edits, err = s.stores.Edits.ListPending(gctx)
		return FetchFailure("edit requests", err)
	})
	g.Go(func() (err error) {
		deletes, err = s.stores.Deletes.ListPending(gctx)
		return FetchFailure("delete requests", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to fetch moderation queue")
		return nil, err
	}

	queue := BuildQueue(category, points, edits, deletes)
	s.counter.Reconcile(ctx, queue.Counts)
	metrics.RecordQueueBuild(time.Since(start).Seconds(), queue.Counts.Strings())

	return &queue, nil
}

// Counts returns the category totals between queue builds
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	return s.counter.Counts(ctx)
}

// View returns the item with its target and, for edits, the fields it changes.
func (s *Service) View(ctx context.Context, ref ItemRef) (*ItemView, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Service.View")
	defer span.End()

	submission, err := s.engine.Load(ctx, ref)
	if err != nil {
		return nil, FetchFailure("item", err)
	}

	view := &ItemView{Item: NewItem(submission)}
	switch v := submission.(type) {
	case CreateItem:
		view.Target = view.Point
	case UpdateItem:
		target, err := s.stores.Points.Get(ctx, v.Request.TargetID)
		if err != nil && !IsNotFound(err) {
			return nil, FetchFailure("target", err)
		}
		if target != nil {
			view.Target = target
			view.Changes = target.PointContent.Diff(v.Request.Proposed)
		}
	case DeleteItem:
		target, err := s.stores.Points.Get(ctx, v.Request.TargetID)
		if err != nil && !IsNotFound(err) {
			return nil, FetchFailure("target", err)
		}
		view.Target = target
	}

	return view, nil
}

// Approve approves an item and notifies readers of the change
func (s *Service) Approve(ctx context.Context, ref ItemRef, moderator string) (*Outcome, error) {
	return s.decide(ctx, ref, DecisionApprove, moderator)
}

// Reject rejects an item and notifies readers of the change
func (s *Service) Reject(ctx context.Context, ref ItemRef, moderator string) (*Outcome, error) {
	return s.decide(ctx, ref, DecisionReject, moderator)
}

func (s *Service) decide(ctx context.Context, ref ItemRef, decision Decision, moderator string) (*Outcome, error) {
	start := time.Now()

	// the item leaves the queue either way; undone if nothing changed
	undo := s.counter.Adjust(ctx, CategoryTouristSpots, -1)

	run := s.engine.Approve
	if decision == DecisionReject {
		run = s.engine.Reject
	}

	outcome, err := run(ctx, ref, moderator)
	if err != nil {
		undo()
		metrics.RecordDecision(string(ref.Kind), string(decision), "error", time.Since(start).Seconds())
		return nil, err
	}

	if !outcome.Changed {
		undo()
		metrics.RecordDecision(string(ref.Kind), string(decision), "noop", time.Since(start).Seconds())
		return outcome, nil
	}

	// sibling requests closed by the decision left the queue too
	if closed := len(outcome.Closed); closed > 0 {
		s.counter.Adjust(ctx, CategoryTouristSpots, -closed)
	}

	metrics.RecordDecision(string(ref.Kind), string(decision), "ok", time.Since(start).Seconds())
	s.publish(ctx, outcome, moderator)
	return outcome, nil
}

func (s *Service) publish(ctx context.Context, outcome *Outcome, moderator string) {
	if s.notifier == nil {
		return
	}

	action := notify.ActionApproved
	if outcome.Decision == DecisionReject {
		action = notify.ActionRejected
	}

	change := notify.Change{
		PointID:    outcome.PointID,
		ItemKind:   string(outcome.Ref.Kind),
		ItemID:     outcome.Ref.ID,
		Action:     action,
		Deleted:    outcome.Ref.Kind == KindDelete && outcome.Decision == DecisionApprove,
		Moderator:  moderator,
		OccurredAt: time.Now().UTC(),
	}

	// the decision is committed; a lost notification only delays a refetch
	if err := s.notifier.Publish(ctx, change); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("point_id", change.PointID).Warn("Failed to publish change notification")
	}
}

// SubmitPoint files a new point as a pending create submission.
func (s *Service) SubmitPoint(ctx context.Context, content models.PointContent, contributor string) (*models.PointOfInterest, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Service.SubmitPoint")
	defer span.End()

	if err := validation.Struct(content); err != nil {
		return nil, err
	}

	point := &models.PointOfInterest{
		PointContent: content,
		Status:       models.RecordPending,
		CreatedBy:    contributor,
		UpdatedBy:    contributor,
	}
	if err := s.stores.Points.Upsert(ctx, point); err != nil {
		return nil, err
	}

	metrics.RecordSubmission(string(KindCreate))
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          point.ID,
		"name":        point.Name,
		"contributor": contributor,
	}).Info("point of interest submitted")
	return point, nil
}

// FileEdit files a full replacement of the target's content.
func (s *Service) FileEdit(ctx context.Context, targetID string, proposed models.PointContent, contributor string) (*models.EditRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Service.FileEdit")
	defer span.End()

	if err := validation.Struct(proposed); err != nil {
		return nil, err
	}

	req := &models.EditRequest{
		TargetID:  targetID,
		Proposed:  proposed,
		CreatedBy: contributor,
	}

	err := s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkTarget(ctx, targetID); err != nil {
			return err
		}

		pending, err := s.stores.Edits.ListPendingForTarget(ctx, targetID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return Conflict("point of interest %s already has a pending edit request", targetID)
		}

		return s.stores.Edits.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSubmission(string(KindUpdate))
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          req.ID,
		"target_id":   targetID,
		"contributor": contributor,
	}).Info("edit request filed")
	return req, nil
}

// FileDelete files a request to remove the target.
func (s *Service) FileDelete(ctx context.Context, targetID, reason, contributor string) (*models.DeleteRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "moderation.Service.FileDelete")
	defer span.End()

	if err := validation.Var(reason, "max=1000"); err != nil {
		return nil, err
	}

	req := &models.DeleteRequest{
		TargetID:  targetID,
		Reason:    reason,
		CreatedBy: contributor,
	}

	err := s.stores.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.checkTarget(ctx, targetID); err != nil {
			return err
		}

		pending, err := s.stores.Deletes.ListPendingForTarget(ctx, targetID)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return Conflict("point of interest %s already has a pending delete request", targetID)
		}

		return s.stores.Deletes.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordSubmission(string(KindDelete))
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          req.ID,
		"target_id":   targetID,
		"contributor": contributor,
	}).Info("delete request filed")
	return req, nil
}

// checkTarget requires the target to exist and not be rejected.
func (s *Service) checkTarget(ctx context.Context, targetID string) error {
	if targetID == "" {
		return Validation("target id is required")
	}

	target, err := s.stores.Points.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Status == models.RecordUnpublished {
		return Conflict("point of interest %s was rejected", targetID)
	}
	return nil
}

func (s *Service) GetPoint(ctx context.Context, id string) (*models.PointOfInterest, error) {
	point, err := s.stores.Points.Get(ctx, id)
	if err != nil {
		return nil, FetchFailure("point of interest", err)
	}
	return point, nil
}

func (s *Service) ListPoints(ctx context.Context, statuses ...models.RecordStatus) ([]models.PointOfInterest, error) {
	for _, status := range statuses {
		if !status.Valid() {
			return nil, Validation("unknown status '%s'", status)
		}
	}

	points, err := s.stores.Points.List(ctx, statuses...)
	if err != nil {
		return nil, FetchFailure("points of interest", err)
	}
	return points, nil
}
