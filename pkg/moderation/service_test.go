package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/notify"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []notify.Change
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, change notify.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

type serviceFixture struct {
	*fixture
	counter   *Counter
	publisher *recordingPublisher
	service   *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := newFixture(t)
	counter := NewCounter(NewMemoryCounterStore(), testLogger())
	publisher := &recordingPublisher{}
	return &serviceFixture{
		fixture:   f,
		counter:   counter,
		publisher: publisher,
		service:   NewService(f.stores, counter, publisher, testLogger()),
	}
}

func (f *serviceFixture) touristSpots(t *testing.T) int {
	t.Helper()
	counts, err := f.service.Counts(context.Background())
	require.NoError(t, err)
	return counts[CategoryTouristSpots]
}

func TestService_QueueReconcilesCounter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S1", "Old Cave", models.RecordPending)
	f.point(t, "S2", "Hills", models.RecordPending)
	f.edit(t, "E1", "S1", content("New Cave"))

	queue, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)
	assert.Len(t, queue.Items, 2)
	assert.Equal(t, 2, f.touristSpots(t))

	events, err := f.service.Queue(ctx, CategoryEvents)
	require.NoError(t, err)
	assert.Empty(t, events.Items)
	assert.Equal(t, 2, events.Counts[CategoryTouristSpots])
}

func TestService_ApprovePublishesAndDecrements(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S2", "Hills", models.RecordPublished)
	f.deleteRequest(t, "D1", "S2")
	_, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)
	require.Equal(t, 1, f.touristSpots(t))

	outcome, err := f.service.Approve(ctx, ItemRef{Kind: KindDelete, ID: "D1"}, "mod")
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, 0, f.touristSpots(t))

	require.Len(t, f.publisher.changes, 1)
	change := f.publisher.changes[0]
	assert.Equal(t, "S2", change.PointID)
	assert.Equal(t, notify.ActionApproved, change.Action)
	assert.True(t, change.Deleted)
	assert.Equal(t, "mod", change.Moderator)
}

func TestService_ApproveDeleteDecrementsClosedSiblings(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S2", "Hills", models.RecordPublished)
	f.edit(t, "E1", "S2", content("Chocolate Hills"))
	f.deleteRequest(t, "D1", "S2")
	f.point(t, "S3", "Falls", models.RecordPending)
	_, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)
	require.Equal(t, 3, f.touristSpots(t))

	outcome, err := f.service.Approve(ctx, ItemRef{Kind: KindDelete, ID: "D1"}, "mod")
	require.NoError(t, err)
	assert.Equal(t, []ItemRef{{Kind: KindUpdate, ID: "E1"}}, outcome.Closed)
	assert.Equal(t, 1, f.touristSpots(t))

	queue, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)
	assert.Len(t, queue.Items, 1)
	assert.Equal(t, 1, f.touristSpots(t))
}

func TestService_FailedDecisionRevertsCounter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S1", "Old Cave", models.RecordPublished)
	f.edit(t, "E1", "S1", content(""))
	_, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, ItemRef{Kind: KindUpdate, ID: "E1"}, "mod")
	assert.True(t, IsValidation(err))
	assert.Equal(t, 1, f.touristSpots(t))
	assert.Empty(t, f.publisher.changes)
}

func TestService_NoopDecisionRevertsCounterAndDoesNotNotify(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S1", "Old Cave", models.RecordPending)
	_, err := f.service.Reject(ctx, ItemRef{Kind: KindCreate, ID: "S1"}, "mod")
	require.NoError(t, err)
	f.counter.Reconcile(ctx, Counts{CategoryTouristSpots: 3})
	f.publisher.changes = nil

	outcome, err := f.service.Reject(ctx, ItemRef{Kind: KindCreate, ID: "S1"}, "mod")
	require.NoError(t, err)
	assert.False(t, outcome.Changed)
	assert.Equal(t, 3, f.touristSpots(t))
	assert.Empty(t, f.publisher.changes)
}

func TestService_PublishFailureDoesNotFailDecision(t *testing.T) {
	f := newServiceFixture(t)
	f.publisher.err = errors.New("broker down")
	f.point(t, "S1", "Old Cave", models.RecordPending)

	outcome, err := f.service.Approve(context.Background(), ItemRef{Kind: KindCreate, ID: "S1"}, "mod")
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
}

func TestService_ViewUpdateListsChanges(t *testing.T) {
	f := newServiceFixture(t)
	f.point(t, "S1", "Old Cave", models.RecordPublished)
	f.edit(t, "E1", "S1", content("New Cave"))

	view, err := f.service.View(context.Background(), ItemRef{Kind: KindUpdate, ID: "E1"})
	require.NoError(t, err)
	require.NotNil(t, view.Target)
	assert.Equal(t, "Old Cave", view.Name)

	fields := make([]string, 0, len(view.Changes))
	for _, change := range view.Changes {
		fields = append(fields, change.Field)
	}
	assert.Equal(t, []string{"name", "description"}, fields)
}

func TestService_FileEdit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S1", "Old Cave", models.RecordPublished)
	f.point(t, "S3", "Rejected", models.RecordUnpublished)

	req, err := f.service.FileEdit(ctx, "S1", content("New Cave"), "contributor")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "contributor", req.CreatedBy)

	_, err = f.service.FileEdit(ctx, "S1", content("Newer Cave"), "contributor")
	assert.True(t, IsConflict(err))

	_, err = f.service.FileEdit(ctx, "S3", content("Revived"), "contributor")
	assert.True(t, IsConflict(err))

	_, err = f.service.FileEdit(ctx, "missing", content("Ghost"), "contributor")
	assert.True(t, IsNotFound(err))

	_, err = f.service.FileEdit(ctx, "S1", content(""), "contributor")
	assert.True(t, IsValidation(err))
}

func TestService_FileDelete(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.point(t, "S1", "Old Cave", models.RecordPublished)

	req, err := f.service.FileDelete(ctx, "S1", "permanently closed", "contributor")
	require.NoError(t, err)
	assert.Equal(t, "permanently closed", req.Reason)

	_, err = f.service.FileDelete(ctx, "S1", "again", "contributor")
	assert.True(t, IsConflict(err))
}

func TestService_SubmitPointEntersQueue(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	point, err := f.service.SubmitPoint(ctx, content("Loboc River"), "contributor")
	require.NoError(t, err)
	assert.Equal(t, models.RecordPending, point.Status)

	queue, err := f.service.Queue(ctx, CategoryTouristSpots)
	require.NoError(t, err)
	assert.Equal(t, []ItemRef{{Kind: KindCreate, ID: point.ID}}, refs(queue.Items))

	_, err = f.service.SubmitPoint(ctx, models.PointContent{}, "contributor")
	assert.True(t, IsValidation(err))
}

func TestService_ListPointsValidatesStatus(t *testing.T) {
	f := newServiceFixture(t)
	f.point(t, "S1", "Old Cave", models.RecordPublished)
	f.point(t, "S2", "New Cave", models.RecordPending)

	active, err := f.service.ListPoints(context.Background(), models.RecordPublished)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "S1", active[0].ID)

	_, err = f.service.ListPoints(context.Background(), models.RecordStatus("archived"))
	assert.True(t, IsValidation(err))
}
