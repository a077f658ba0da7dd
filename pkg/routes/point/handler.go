package point

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/notify"
	"github.com/Ramsey-B/fern/pkg/routes"
)

const (
	changeBuffer      = 8
	heartbeatInterval = 15 * time.Second
)

// Service is the contributor-facing part of moderation.Service.
type Service interface {
	SubmitPoint(ctx context.Context, content models.PointContent, contributor string) (*models.PointOfInterest, error)
	FileEdit(ctx context.Context, targetID string, proposed models.PointContent, contributor string) (*models.EditRequest, error)
	FileDelete(ctx context.Context, targetID, reason, contributor string) (*models.DeleteRequest, error)
	GetPoint(ctx context.Context, id string) (*models.PointOfInterest, error)
	ListPoints(ctx context.Context, statuses ...models.RecordStatus) ([]models.PointOfInterest, error)
}

// Changes is satisfied by notify.Hub.
type Changes interface {
	Subscribe(pointID string, buffer int) (<-chan notify.Change, func())
}

type ListResponse struct {
	Points []models.PointOfInterest `json:"points"`
}

// Handler lets contributors file submissions and read points.
type Handler struct {
	service Service
	changes Changes
	logger  ectologger.Logger
}

// NewHandler creates a point handler. changes backs the change stream route.
func NewHandler(service Service, changes Changes, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		changes: changes,
		logger:  logger,
	}
}

// RegisterRoutes registers the contributor routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/changes", h.StreamChanges)
	g.POST("/:id/edit-requests", h.CreateEditRequest)
	g.POST("/:id/delete-requests", h.CreateDeleteRequest)
}

// Create files a new point as a create submission
func (h *Handler) Create(c echo.Context) error {
	contributor, err := routes.GetUserID(c)
	if err != nil {
		return err
	}

	var body models.CreatePointRequest
	if err := routes.Bind(c, &body); err != nil {
		return err
	}

	point, err := h.service.SubmitPoint(c.Request().Context(), body.PointContent, contributor)
	if err != nil {
		return err
	}
	return routes.CreatedResponse(c, point)
}

// List accepts a comma separated status filter, e.g. ?status=active,pending.
func (h *Handler) List(c echo.Context) error {
	var statuses []models.RecordStatus
	if raw := c.QueryParam("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.RecordStatus(strings.TrimSpace(s)))
		}
	}

	points, err := h.service.ListPoints(c.Request().Context(), statuses...)
	if err != nil {
		return err
	}
	return routes.SuccessResponse(c, ListResponse{Points: points})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	point, err := h.service.GetPoint(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return routes.SuccessResponse(c, point)
}

// CreateEditRequest files an edit request against a point
func (h *Handler) CreateEditRequest(c echo.Context) error {
	contributor, err := routes.GetUserID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	var body models.CreateEditRequest
	if err := routes.Bind(c, &body); err != nil {
		return err
	}

	req, err := h.service.FileEdit(c.Request().Context(), id, body.Proposed, contributor)
	if err != nil {
		return err
	}
	return routes.CreatedResponse(c, req)
}

// CreateDeleteRequest files a delete request against a point
func (h *Handler) CreateDeleteRequest(c echo.Context) error {
	contributor, err := routes.GetUserID(c)
	if err != nil {
		return err
	}

	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	var body models.CreateDeleteRequest
	if err := routes.Bind(c, &body); err != nil {
		return err
	}

	req, err := h.service.FileDelete(c.Request().Context(), id, body.Reason, contributor)
	if err != nil {
		return err
	}
	return routes.CreatedResponse(c, req)
}

// StreamChanges streams change notifications for one point as server-sent events
// until the client goes away or the point is deleted.
func (h *Handler) StreamChanges(c echo.Context) error {
	id, err := routes.ParseID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	changes, cancel := h.changes.Subscribe(id, changeBuffer)
	defer cancel()

	if _, err := h.service.GetPoint(ctx, id); err != nil {
		return err
	}

	res := c.Response()
	// streams outlive the server write timeout
	_ = http.NewResponseController(res).SetWriteDeadline(time.Time{})
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": keep-alive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			data, err := json.Marshal(change)
			if err != nil {
				h.logger.WithContext(ctx).WithError(err).WithField("point_id", id).Error("Failed to encode change")
				return nil
			}
			if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", change.Action, data); err != nil {
				return nil
			}
			res.Flush()
			if change.Deleted {
				return nil
			}
		}
	}
}
