package pointofinterest

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Repository persists points of interest in postgres. Every method runs on
// the transaction carried by ctx when there is one.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new point of interest repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get gets a point of interest by id
func (r *Repository) Get(ctx context.Context, id string) (*models.PointOfInterest, error) {
	ctx, span := tracing.StartSpan(ctx, "pointofinterest.Repository.Get")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var result row
	if err := database.Conn(ctx, r.db).GetContext(ctx, &result, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPErrorf(http.StatusNotFound, "point of interest %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to get point of interest")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to get point of interest")
	}

	poi := result.toModel()
	return &poi, nil
}

// List returns points in the given statuses, newest first. No statuses means all.
func (r *Repository) List(ctx context.Context, statuses ...models.RecordStatus) ([]models.PointOfInterest, error) {
	ctx, span := tracing.StartSpan(ctx, "pointofinterest.Repository.List")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	if len(statuses) > 0 {
		sb.Where(sb.In("status", database.Args(statuses)...))
	}
	sb.OrderBy("created_at DESC", "id DESC")

	query, args := sb.Build()
	var rows []row
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list points of interest")
		return nil, httperror.NewHTTPError(http.StatusServiceUnavailable, "failed to list points of interest")
	}

	points := make([]models.PointOfInterest, 0, len(rows))
	for _, row := range rows {
		points = append(points, row.toModel())
	}
	return points, nil
}

// Upsert inserts poi or overwrites the stored row, bumping its version.
func (r *Repository) Upsert(ctx context.Context, poi *models.PointOfInterest) error {
	ctx, span := tracing.StartSpan(ctx, "pointofinterest.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	if poi.ID == "" {
		poi.ID = uuid.New().String()
	}
	if poi.Status == "" {
		poi.Status = models.RecordPending
	}
	if poi.CreatedAt.IsZero() {
		poi.CreatedAt = now
	}
	poi.UpdatedAt = now

	values := append([]any{poi.ID}, contentValues(poi.PointContent)...)
	values = append(values, string(poi.Status), 1, poi.CreatedAt, poi.CreatedBy, poi.UpdatedAt, poi.UpdatedBy)

	ib := database.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(values...)

	query, args := ib.Build()
	query += database.OnConflictUpdate([]string{"id"},
		append(append([]string{}, contentColumns...), "status", "updated_at", "updated_by"),
		"version = "+table+".version + 1",
	)
	query += " RETURNING version, created_at"

	var stored struct {
		Version   int       `db:"version"`
		CreatedAt time.Time `db:"created_at"`
	}
	if err := database.Conn(ctx, r.db).GetContext(ctx, &stored, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", poi.ID).Error("Failed to upsert point of interest")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save point of interest")
	}

	poi.Version = stored.Version
	poi.CreatedAt = stored.CreatedAt
	return nil
}

// Update writes poi only if the stored version still equals expectedVersion.
// A lost race is a 409; a missing row is a 404.
func (r *Repository) Update(ctx context.Context, poi *models.PointOfInterest, expectedVersion int) error {
	ctx, span := tracing.StartSpan(ctx, "pointofinterest.Repository.Update")
	defer span.End()

	poi.UpdatedAt = time.Now().UTC()

	ub := database.NewUpdateBuilder()
	ub.Update(table)
	assignments := make([]string, 0, len(contentColumns)+4)
	for i, value := range contentValues(poi.PointContent) {
		assignments = append(assignments, ub.Assign(contentColumns[i], value))
	}
	assignments = append(assignments,
		ub.Assign("status", string(poi.Status)),
		ub.Assign("updated_at", poi.UpdatedAt),
		ub.Assign("updated_by", poi.UpdatedBy),
		ub.Add("version", 1),
	)
	ub.Set(assignments...)
	ub.Where(
		ub.Equal("id", poi.ID),
		ub.Equal("version", expectedVersion),
	)

	query, args := ub.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", poi.ID).Error("Failed to update point of interest")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update point of interest")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update point of interest")
	}

	if affected == 0 {
		if _, getErr := r.Get(ctx, poi.ID); getErr != nil {
			return getErr
		}
		return httperror.NewHTTPErrorf(http.StatusConflict, "point of interest %s was modified concurrently", poi.ID)
	}

	poi.Version = expectedVersion + 1
	return nil
}

// Delete deletes a point of interest
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "pointofinterest.Repository.Delete")
	defer span.End()

	dlb := database.NewDeleteBuilder()
	dlb.DeleteFrom(table)
	dlb.Where(dlb.Equal("id", id))

	query, args := dlb.Build()
	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("Failed to delete point of interest")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete point of interest")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to delete point of interest")
	}
	if affected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "point of interest %s not found", id)
	}

	return nil
}
