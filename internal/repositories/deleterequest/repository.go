package deleterequest

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const table = "delete_requests"

type row struct {
	ID                string         `db:"id"`
	TargetID          string         `db:"target_id"`
	Reason            string         `db:"reason"`
	Status            string         `db:"status"`
	CreatedAt         time.Time      `db:"created_at"`
	CreatedBy         string         `db:"created_by"`
	ReviewedAt        sql.NullTime   `db:"reviewed_at"`
	ReviewedBy        string         `db:"reviewed_by"`
	TargetName        sql.NullString `db:"target_name"`
	TargetDescription sql.NullString `db:"target_description"`
}

func (r row) toModel() models.DeleteRequest {
	req := models.DeleteRequest{
		ID:       r.ID,
		TargetID: r.TargetID,
		Reason:   r.Reason,
		TargetSnapshot: models.TargetSnapshot{
			TargetName:        r.TargetName.String,
			TargetDescription: r.TargetDescription.String,
		},
		Status:     models.RequestStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		CreatedBy:  r.CreatedBy,
		ReviewedBy: r.ReviewedBy,
	}
	if r.ReviewedAt.Valid {
		reviewed := r.ReviewedAt.Time
		req.ReviewedAt = &reviewed
	}
	return req
}

// Repository persists delete requests, joined to the targeted point on read.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new delete request repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func selectWithTarget() *sqlbuilder.SelectBuilder {
	sb := database.NewSelectBuilder()
	sb.Select(
		"r.id", "r.target_id", "r.reason", "r.status", "r.created_at", "r.created_by", "r.reviewed_at", "r.reviewed_by",
		sb.As("p.name", "target_name"),
		sb.As("p.description", "target_description"),
	)
	sb.From(sb.As(table, "r"))
	sb.JoinWithOption(sqlbuilder.LeftJoin, sb.As("points_of_interest", "p"), "p.id = r.target_id")
	return sb
}

// Create files req as pending. A second pending request for the same target is a 409.
func (r *Repository) Create(ctx context.Context, req *models.DeleteRequest) error {
	ctx, span := tracing.StartSpan(ctx, "deleterequest.Repository.Create")
	defer span.End()

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = models.RequestPending
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "target_id", "reason", "status", "created_at", "created_by")
	ib.Values(req.ID, req.TargetID, req.Reason, string(req.Status), req.CreatedAt, req.CreatedBy)

	query, args := ib.Build()
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return httperror.NewHTTPErrorf(http.StatusConflict, "point of interest %s already has a pending delete request", req.TargetID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("target_id", req.TargetID).Error("Failed to create delete request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create delete request")
	}

	return nil
}

// Get gets a delete request with its target snapshot
func (r *Repository) Get(ctx context.Context, id string) (*models.DeleteRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "deleterequest.Repository.Get")
	defer span.End()

	sb := selectWithTarget()
	sb.Where(sb.Equal("r.id", id))

	query, args := sb.Build()
	var result row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &result, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "delete request %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get delete request")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to get delete request")
	}

	req := result.toModel()
	return &req, nil
}

// ListPending returns pending requests newest first.
func (r *Repository) ListPending(ctx context.Context) ([]models.DeleteRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "deleterequest.Repository.ListPending")
	defer span.End()

	sb := selectWithTarget()
	sb.Where(sb.Equal("r.status", string(models.RequestPending)))
	sb.OrderBy("r.created_at DESC", "r.id DESC")

	return r.list(ctx, sb)
}

// ListPendingForTarget lists pending delete requests for one point
func (r *Repository) ListPendingForTarget(ctx context.Context, targetID string) ([]models.DeleteRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "deleterequest.Repository.ListPendingForTarget")
	defer span.End()

	sb := selectWithTarget()
	sb.Where(
		sb.Equal("r.status", string(models.RequestPending)),
		sb.Equal("r.target_id", targetID),
	)
	sb.OrderBy("r.created_at DESC", "r.id DESC")

	return r.list(ctx, sb)
}

func (r *Repository) list(ctx context.Context, sb *sqlbuilder.SelectBuilder) ([]models.DeleteRequest, error) {
	query, args := sb.Build()
	var rows []row
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list delete requests")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to list delete requests")
	}

	requests := make([]models.DeleteRequest, 0, len(rows))
	for _, rw := range rows {
		requests = append(requests, rw.toModel())
	}
	return requests, nil
}

// UpdateStatus moves a request from one status to another. It fails with 409
// when the request is no longer in from, and 404 when it does not exist.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, reviewer string) error {
	ctx, span := tracing.StartSpan(ctx, "deleterequest.Repository.UpdateStatus")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("status", string(to)),
		ub.Assign("reviewed_at", time.Now().UTC()),
		ub.Assign("reviewed_by", reviewer),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", string(from)),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to update delete request status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update delete request status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update delete request status")
	}

	if affected == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return httperror.NewHTTPErrorf(http.StatusConflict, "delete request %s is %s, expected %s", id, current.Status, from)
	}

	return nil
}
