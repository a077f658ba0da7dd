package moderation

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/moderation"
	"github.com/Ramsey-B/fern/pkg/routes"
)

// Service is the part of moderation.Service the handler uses.
type Service interface {
	Queue(ctx context.Context, category moderation.Category) (*moderation.Queue, error)
	Counts(ctx context.Context) (moderation.Counts, error)
	View(ctx context.Context, ref moderation.ItemRef) (*moderation.ItemView, error)
	Approve(ctx context.Context, ref moderation.ItemRef, moderator string) (*moderation.Outcome, error)
	Reject(ctx context.Context, ref moderation.ItemRef, moderator string) (*moderation.Outcome, error)
}

type QueueResponse struct {
	Category moderation.Category `json:"category"`
	Items    []moderation.Item   `json:"items"`
	Counts   moderation.Counts   `json:"counts"`
}

type CountsResponse struct {
	Counts moderation.Counts `json:"counts"`
}

// Handler serves the moderator dashboard.
type Handler struct {
	service Service
	logger  ectologger.Logger
}

// NewHandler creates a new moderation handler
func NewHandler(service Service, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the moderator routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/queue", h.GetQueue)
	g.GET("/counts", h.GetCounts)
	g.GET("/items/:kind/:id", h.GetItem)
	g.POST("/items/:kind/:id/approve", h.Approve)
	g.POST("/items/:kind/:id/reject", h.Reject)
}

// GetQueue builds the queue for ?category
func (h *Handler) GetQueue(c echo.Context) error {
	category, err := moderation.ParseCategory(c.QueryParam("category"))
	if err != nil {
		return err
	}

	queue, err := h.service.Queue(c.Request().Context(), category)
	if err != nil {
		return err
	}

	return routes.SuccessResponse(c, QueueResponse{
		Category: queue.Category,
		Items:    moderation.NewItems(queue.Items),
		Counts:   queue.Counts,
	})
}

func (h *Handler) GetCounts(c echo.Context) error {
	counts, err := h.service.Counts(c.Request().Context())
	if err != nil {
		return err
	}
	return routes.SuccessResponse(c, CountsResponse{Counts: counts})
}

func (h *Handler) GetItem(c echo.Context) error {
	ref, err := parseRef(c)
	if err != nil {
		return err
	}

	view, err := h.service.View(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return routes.SuccessResponse(c, view)
}

// Approve approves an item
func (h *Handler) Approve(c echo.Context) error {
	return h.decide(c, h.service.Approve)
}

// Reject rejects an item
func (h *Handler) Reject(c echo.Context) error {
	return h.decide(c, h.service.Reject)
}

func (h *Handler) decide(c echo.Context, run func(context.Context, moderation.ItemRef, string) (*moderation.Outcome, error)) error {
	moderator, err := routes.GetUserID(c)
	if err != nil {
		return err
	}

	ref, err := parseRef(c)
	if err != nil {
		return err
	}

	outcome, err := run(c.Request().Context(), ref, moderator)
	if err != nil {
		return err
	}
	return routes.SuccessResponse(c, outcome)
}

func parseRef(c echo.Context) (moderation.ItemRef, error) {
	kind, err := moderation.ParseKind(c.Param("kind"))
	if err != nil {
		return moderation.ItemRef{}, err
	}

	id, err := routes.ParseID(c, "id")
	if err != nil {
		return moderation.ItemRef{}, err
	}

	return moderation.ItemRef{Kind: kind, ID: id}, nil
}
