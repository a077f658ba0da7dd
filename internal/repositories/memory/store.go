// Package memory keeps points of interest and moderation requests in process
// memory. It serves local development and tests with the same semantics as
// the postgres repositories.
package memory

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/models"
)

type state struct {
	points  map[string]models.PointOfInterest
	edits   map[string]models.EditRequest
	deletes map[string]models.DeleteRequest
}

func newState() state {
	return state{
		points:  map[string]models.PointOfInterest{},
		edits:   map[string]models.EditRequest{},
		deletes: map[string]models.DeleteRequest{},
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.points {
		out.points[k] = clonePoint(v)
	}
	for k, v := range s.edits {
		out.edits[k] = v
	}
	for k, v := range s.deletes {
		out.deletes[k] = v
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneContent(c models.PointContent) models.PointContent {
	c.Latitude = cloneFloat(c.Latitude)
	c.Longitude = cloneFloat(c.Longitude)
	c.EntryFee = cloneFloat(c.EntryFee)
	return c
}

func clonePoint(p models.PointOfInterest) models.PointOfInterest {
	p.PointContent = cloneContent(p.PointContent)
	return p
}

type txKey struct{}

// Store holds all three tables behind one mutex. RunInTx holds the mutex for
// the whole callback and restores the previous state when it fails.
type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp rows.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// lock takes the mutex unless ctx already runs inside this store's transaction.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// RunInTx runs fn holding the store lock. Nested calls join the outer transaction
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = snapshot
			panic(p)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// Points returns the canonical record store
func (s *Store) Points() *Points {
	return &Points{store: s}
}

// Edits returns the edit request store
func (s *Store) Edits() *Edits {
	return &Edits{store: s}
}

// Deletes returns the delete request store
func (s *Store) Deletes() *Deletes {
	return &Deletes{store: s}
}

func (s *Store) snapshotOf(targetID string) models.TargetSnapshot {
	point, ok := s.state.points[targetID]
	if !ok {
		return models.TargetSnapshot{}
	}
	return models.TargetSnapshot{TargetName: point.Name, TargetDescription: point.Description}
}

func notFound(what, id string) error {
	return httperror.NewHTTPErrorf(http.StatusNotFound, "%s %s not found", what, id)
}

// Points is the canonical record store.
type Points struct {
	store *Store
}

func (p *Points) Get(ctx context.Context, id string) (*models.PointOfInterest, error) {
	defer p.store.lock(ctx)()

	point, ok := p.store.state.points[id]
	if !ok {
		return nil, notFound("point of interest", id)
	}
	point = clonePoint(point)
	return &point, nil
}

func (p *Points) List(ctx context.Context, statuses ...models.RecordStatus) ([]models.PointOfInterest, error) {
	defer p.store.lock(ctx)()

	allowed := make(map[models.RecordStatus]bool, len(statuses))
	for _, status := range statuses {
		allowed[status] = true
	}

	points := make([]models.PointOfInterest, 0, len(p.store.state.points))
	for _, point := range p.store.state.points {
		if len(allowed) > 0 && !allowed[point.Status] {
			continue
		}
		points = append(points, clonePoint(point))
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].CreatedAt.Equal(points[j].CreatedAt) {
			return points[i].CreatedAt.After(points[j].CreatedAt)
		}
		return points[i].ID > points[j].ID
	})
	return points, nil
}

func (p *Points) Upsert(ctx context.Context, poi *models.PointOfInterest) error {
	defer p.store.lock(ctx)()

	now := p.store.now()
	if poi.ID == "" {
		poi.ID = uuid.New().String()
	}
	if poi.Status == "" {
		poi.Status = models.RecordPending
	}
	poi.UpdatedAt = now

	if existing, ok := p.store.state.points[poi.ID]; ok {
		poi.CreatedAt = existing.CreatedAt
		poi.Version = existing.Version + 1
	} else {
		if poi.CreatedAt.IsZero() {
			poi.CreatedAt = now
		}
		poi.Version = 1
	}

	p.store.state.points[poi.ID] = clonePoint(*poi)
	return nil
}

// Update writes poi when the stored version equals expectedVersion
func (p *Points) Update(ctx context.Context, poi *models.PointOfInterest, expectedVersion int) error {
	defer p.store.lock(ctx)()

	existing, ok := p.store.state.points[poi.ID]
	if !ok {
		return notFound("point of interest", poi.ID)
	}
	if existing.Version != expectedVersion {
		return httperror.NewHTTPErrorf(http.StatusConflict, "point of interest %s was modified concurrently", poi.ID)
	}

	poi.CreatedAt = existing.CreatedAt
	poi.CreatedBy = existing.CreatedBy
	poi.UpdatedAt = p.store.now()
	poi.Version = expectedVersion + 1
	p.store.state.points[poi.ID] = clonePoint(*poi)
	return nil
}

func (p *Points) Delete(ctx context.Context, id string) error {
	defer p.store.lock(ctx)()

	if _, ok := p.store.state.points[id]; !ok {
		return notFound("point of interest", id)
	}
	delete(p.store.state.points, id)
	return nil
}
