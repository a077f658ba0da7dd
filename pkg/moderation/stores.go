package moderation

import (
	"context"

	"github.com/Ramsey-B/fern/pkg/models"
)

// PointStore is the canonical record store
type PointStore interface {
	Get(ctx context.Context, id string) (*models.PointOfInterest, error)
	List(ctx context.Context, statuses ...models.RecordStatus) ([]models.PointOfInterest, error)
	Upsert(ctx context.Context, poi *models.PointOfInterest) error
	Update(ctx context.Context, poi *models.PointOfInterest, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

// EditRequestStore holds edit requests
type EditRequestStore interface {
	Create(ctx context.Context, req *models.EditRequest) error
	Get(ctx context.Context, id string) (*models.EditRequest, error)
	ListPending(ctx context.Context) ([]models.EditRequest, error)
	ListPendingForTarget(ctx context.Context, targetID string) ([]models.EditRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, reviewer string) error
}

// DeleteRequestStore holds delete requests
type DeleteRequestStore interface {
	Create(ctx context.Context, req *models.DeleteRequest) error
	Get(ctx context.Context, id string) (*models.DeleteRequest, error)
	ListPending(ctx context.Context) ([]models.DeleteRequest, error)
	ListPendingForTarget(ctx context.Context, targetID string) ([]models.DeleteRequest, error)
	UpdateStatus(ctx context.Context, id string, from, to models.RequestStatus, reviewer string) error
}

// Transactor runs fn atomically. Stores called with the ctx passed to fn join
// the same transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles the three stores and the transactor they share.
type Stores struct {
	Tx      Transactor
	Points  PointStore
	Edits   EditRequestStore
	Deletes DeleteRequestStore
}
