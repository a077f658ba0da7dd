package memory

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

func newestFirst(aTime time.Time, aID string, bTime time.Time, bID string) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

// Edits is the edit request store. Reads fill in the target snapshot from the
// current point, as the postgres join does.
type Edits struct {
	store *Store
}

// Create files an edit request as pending
func (e *Edits) Create(ctx context.Context, req *models.EditRequest) error {
	defer e.store.lock(ctx)()

	for _, existing := range e.store.state.edits {
		if existing.TargetID == req.TargetID && existing.Status == models.RequestPending {
			return httperror.NewHTTPErrorf(http.StatusConflict, "point of interest %s already has a pending edit request", req.TargetID)
		}
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RequestPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = e.store.now()
	}

	stored := *req
	stored.Proposed = cloneContent(req.Proposed)
	stored.TargetSnapshot = models.TargetSnapshot{}
	e.store.state.edits[req.ID] = stored
	return nil
}

func (e *Edits) Get(ctx context.Context, id string) (*models.EditRequest, error) {
	defer e.store.lock(ctx)()

	req, ok := e.store.state.edits[id]
	if !ok {
		return nil, notFound("edit request", id)
	}
	req = e.view(req)
	return &req, nil
}

func (e *Edits) ListPending(ctx context.Context) ([]models.EditRequest, error) {
	return e.list(ctx, "")
}

func (e *Edits) ListPendingForTarget(ctx context.Context, targetID string) ([]models.EditRequest, error) {
	return e.list(ctx, targetID)
}

func (e *Edits) list(ctx context.Context, targetID string) ([]models.EditRequest, error) {
	defer e.store.lock(ctx)()

	requests := []models.EditRequest{}
	for _, req := range e.store.state.edits {
		if req.Status != models.RequestPending {
			continue
		}
		if targetID != "" && req.TargetID != targetID {
			continue
		}
		requests = append(requests, e.view(req))
	}

	sort.Slice(requests, func(i, j int) bool {
		return newestFirst(requests[i].CreatedAt, requests[i].ID, requests[j].CreatedAt, requests[j].ID)
	})
	return requests, nil
}

func (e *Edits) view(req models.EditRequest) models.EditRequest {
	req.Proposed = cloneContent(req.Proposed)
	req.TargetSnapshot = e.store.snapshotOf(req.TargetID)
	return req
}

// UpdateStatus moves a request from one status to another
func (e *Edits) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, reviewer string) error {
	defer e.store.lock(ctx)()

	req, ok := e.store.state.edits[id]
	if !ok {
		return notFound("edit request", id)
	}
	if req.Status != from {
		return httperror.NewHTTPErrorf(http.StatusConflict, "edit request %s is %s, expected %s", id, req.Status, from)
	}

	reviewed := e.store.now()
	req.Status = to
	req.ReviewedAt = &reviewed
	req.ReviewedBy = reviewer
	e.store.state.edits[id] = req
	return nil
}

// Deletes is the delete request store.
type Deletes struct {
	store *Store
}

// Create files a delete request as pending
func (d *Deletes) Create(ctx context.Context, req *models.DeleteRequest) error {
	defer d.store.lock(ctx)()

	for _, existing := range d.store.state.deletes {
		if existing.TargetID == req.TargetID && existing.Status == models.RequestPending {
			return httperror.NewHTTPErrorf(http.StatusConflict, "point of interest %s already has a pending delete request", req.TargetID)
		}
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RequestPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = d.store.now()
	}

	stored := *req
	stored.TargetSnapshot = models.TargetSnapshot{}
	d.store.state.deletes[req.ID] = stored
	return nil
}

func (d *Deletes) Get(ctx context.Context, id string) (*models.DeleteRequest, error) {
	defer d.store.lock(ctx)()

	req, ok := d.store.state.deletes[id]
	if !ok {
		return nil, notFound("delete request", id)
	}
	req.TargetSnapshot = d.store.snapshotOf(req.TargetID)
	return &req, nil
}

func (d *Deletes) ListPending(ctx context.Context) ([]models.DeleteRequest, error) {
	return d.list(ctx, "")
}

func (d *Deletes) ListPendingForTarget(ctx context.Context, targetID string) ([]models.DeleteRequest, error) {
	return d.list(ctx, targetID)
}

func (d *Deletes) list(ctx context.Context, targetID string) ([]models.DeleteRequest, error) {
	defer d.store.lock(ctx)()

	requests := []models.DeleteRequest{}
	for _, req := range d.store.state.deletes {
		if req.Status != models.RequestPending {
			continue
		}
		if targetID != "" && req.TargetID != targetID {
			continue
		}
		req.TargetSnapshot = d.store.snapshotOf(req.TargetID)
		requests = append(requests, req)
	}

	sort.Slice(requests, func(i, j int) bool {
		return newestFirst(requests[i].CreatedAt, requests[i].ID, requests[j].CreatedAt, requests[j].ID)
	})
	return requests, nil
}

// UpdateStatus moves a request from one status to another
func (d *Deletes) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, reviewer string) error {
	defer d.store.lock(ctx)()

	req, ok := d.store.state.deletes[id]
	if !ok {
		return notFound("delete request", id)
	}
	if req.Status != from {
		return httperror.NewHTTPErrorf(http.StatusConflict, "delete request %s is %s, expected %s", id, req.Status, from)
	}

	reviewed := d.store.now()
	req.Status = to
	req.ReviewedAt = &reviewed
	req.ReviewedBy = reviewer
	d.store.state.deletes[id] = req
	return nil
}
