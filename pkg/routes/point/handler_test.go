package point

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/internal/repositories/memory"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/moderation"
	"github.com/Ramsey-B/fern/pkg/notify"
)

const validPoint = `{"name":"Hinagdanan Cave","category":"cave","province":"Bohol","municipality":"Dauis","latitude":9.62}`

type testServer struct {
	echo  *echo.Echo
	store *memory.Store
	hub   *notify.Hub
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	store := memory.NewStore()
	stores := moderation.Stores{Tx: store, Points: store.Points(), Edits: store.Edits(), Deletes: store.Deletes()}
	hub := notify.NewHub(logger)
	service := moderation.NewService(stores, moderation.NewCounter(moderation.NewMemoryCounterStore(), logger), hub, logger)

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	NewHandler(service, hub, logger).RegisterRoutes(e.Group("/points"))

	return &testServer{echo: e, store: store, hub: hub}
}

func (s *testServer) do(method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

// stream opens the change stream for id and reports when the handler returns.
func (s *testServer) stream(ctx context.Context, id string) (*httptest.ResponseRecorder, <-chan struct{}) {
	req := httptest.NewRequest(http.MethodGet, "/points/"+id+"/changes", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.echo.ServeHTTP(rec, req)
	}()
	return rec, done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("change stream did not end")
	}
}

func (s *testServer) create(t *testing.T) models.PointOfInterest {
	t.Helper()
	rec := s.do(http.MethodPost, "/points", "contributor-1", validPoint)
	require.Equal(t, http.StatusCreated, rec.Code)

	var poi models.PointOfInterest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &poi))
	return poi
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)

	poi := s.create(t)
	assert.NotEmpty(t, poi.ID)
	assert.Equal(t, "Hinagdanan Cave", poi.Name)
	assert.Equal(t, models.RecordPending, poi.Status)
	assert.Equal(t, "contributor-1", poi.CreatedBy)
	require.NotNil(t, poi.Latitude)
	assert.Equal(t, 9.62, *poi.Latitude)
}

func TestCreate_Validation(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/points", "contributor-1", `{"name":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/points", "contributor-1", `{not json`).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/points", "", validPoint).Code)
}

func TestGetAndList(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)

	rec := s.do(http.MethodGet, "/points/"+poi.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/points?status=pending,active", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Points, 1)

	rec = s.do(http.MethodGet, "/points?status=active", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Points)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/points?status=archived", "", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/points/"+uuid.New().String(), "", "").Code)
}

func TestCreateEditRequest(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)
	body := `{"proposed":{"name":"Hinagdanan Cave and Lagoon","category":"cave","province":"Bohol","municipality":"Dauis"}}`

	rec := s.do(http.MethodPost, "/points/"+poi.ID+"/edit-requests", "contributor-2", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var req models.EditRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	assert.Equal(t, poi.ID, req.TargetID)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "Hinagdanan Cave and Lagoon", req.Proposed.Name)

	rec = s.do(http.MethodPost, "/points/"+poi.ID+"/edit-requests", "contributor-3", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	pending, err := s.store.Edits().ListPending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestCreateDeleteRequest(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)

	rec := s.do(http.MethodPost, "/points/"+poi.ID+"/delete-requests", "contributor-2", `{"reason":"permanently closed"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var req models.DeleteRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	assert.Equal(t, "permanently closed", req.Reason)

	rec = s.do(http.MethodPost, "/points/"+uuid.New().String()+"/delete-requests", "contributor-2", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamChanges_DeliversUntilDeleted(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)

	rec, done := s.stream(context.Background(), poi.ID)

	deleted := notify.Change{PointID: poi.ID, ItemKind: "delete", ItemID: "D1", Action: notify.ActionApproved, Deleted: true}
	require.Eventually(t, func() bool {
		_ = s.hub.Publish(context.Background(), deleted)
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), "event: approved\n")
	assert.Contains(t, rec.Body.String(), `"point_id":"`+poi.ID+`"`)
	assert.Contains(t, rec.Body.String(), `"deleted":true`)
}

func TestStreamChanges_EndsWhenClientLeaves(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)

	ctx, cancel := context.WithCancel(context.Background())
	_, done := s.stream(ctx, poi.ID)
	cancel()

	waitDone(t, done)
}

func TestStreamChanges_EndsWhenHubCloses(t *testing.T) {
	s := newTestServer(t)
	poi := s.create(t)

	_, done := s.stream(context.Background(), poi.ID)
	require.Eventually(t, func() bool {
		s.hub.Close()
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreamChanges_UnknownPoint(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/points/"+uuid.New().String()+"/changes", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/points/not-a-uuid/changes", "", "").Code)
}
