package editrequest

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
)

var created = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	db := database.NewDatabaseInstance(sqlx.NewDb(sqlDB, "sqlmock"), logger)
	return NewRepository(db, logger), mock
}

func requestRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "target_id", "proposed", "status", "created_at", "created_by", "reviewed_at", "reviewed_by", "target_name", "target_description"})
}

func statusOf(err error) int {
	if !httperror.IsHTTPError(err) {
		return 0
	}
	return httperror.GetStatusCode(err)
}

func TestRepository_CreateDuplicatePendingIsConflict(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`INSERT INTO edit_requests`).WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.EditRequest{TargetID: "S1"})
	assert.Equal(t, 409, statusOf(err))
}

func TestRepository_CreateStampsPending(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`INSERT INTO edit_requests \(id, target_id, proposed, status, created_at, created_by\)`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := &models.EditRequest{TargetID: "S1", Proposed: models.PointContent{Name: "New Cave"}}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.False(t, req.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListPendingJoinsTarget(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectQuery(`SELECT .* FROM edit_requests AS r LEFT JOIN points_of_interest AS p ON p\.id = r\.target_id WHERE r\.status = \$1 ORDER BY r\.created_at DESC, r\.id DESC`).
		WithArgs("pending").
		WillReturnRows(requestRows().
			AddRow("E1", "S1", []byte(`{"name":"New Cave","category":"cave"}`), "pending", created, "u1", nil, "", "Old Cave", "dark").
			AddRow("E2", "S9", []byte(`{"name":"Orphan"}`), "pending", created, "u2", nil, "", nil, nil))

	requests, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "New Cave", requests[0].Proposed.Name)
	assert.Equal(t, "Old Cave", requests[0].TargetName)
	assert.Equal(t, "dark", requests[0].TargetDescription)
	assert.Empty(t, requests[1].TargetName)
	assert.Nil(t, requests[0].ReviewedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatusNoLongerPendingIsConflict(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`UPDATE edit_requests SET .* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM edit_requests AS r`).
		WillReturnRows(requestRows().AddRow("E1", "S1", []byte(`{}`), "active", created, "u1", created, "mod", "Old Cave", ""))

	err := repo.UpdateStatus(context.Background(), "E1", models.RequestPending, models.RequestRejected, "mod")
	assert.Equal(t, 409, statusOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateStatusMissingIsNotFound(t *testing.T) {
	repo, mock := newTestRepository(t)

	mock.ExpectExec(`UPDATE edit_requests`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM edit_requests AS r`).WillReturnRows(requestRows())

	err := repo.UpdateStatus(context.Background(), "E1", models.RequestPending, models.RequestApplied, "mod")
	assert.Equal(t, 404, statusOf(err))
}
