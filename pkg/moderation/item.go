package moderation

import (
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Item is the wire form of a Submission.
type Item struct {
	Kind          Kind                    `json:"kind"`
	ID            string                  `json:"id"`
	TargetID      string                  `json:"target_id"`
	Name          string                  `json:"name"`
	Description   string                  `json:"description"`
	CreatedAt     time.Time               `json:"created_at"`
	CreatedBy     string                  `json:"created_by,omitempty"`
	Point         *models.PointOfInterest `json:"point,omitempty"`
	EditRequest   *models.EditRequest     `json:"edit_request,omitempty"`
	DeleteRequest *models.DeleteRequest   `json:"delete_request,omitempty"`
}

// NewItem flattens a submission for the HTTP surface
func NewItem(s Submission) Item {
	item := Item{
		Kind:      s.Kind(),
		ID:        s.ID(),
		TargetID:  s.TargetID(),
		CreatedAt: s.CreatedAt(),
	}

	switch v := s.(type) {
	case CreateItem:
		point := v.Point
		item.Name, item.Description, item.CreatedBy = point.Name, point.Description, point.CreatedBy
		item.Point = &point
	case UpdateItem:
		req := v.Request
		item.Name, item.Description, item.CreatedBy = req.TargetName, req.TargetDescription, req.CreatedBy
		item.EditRequest = &req
	case DeleteItem:
		req := v.Request
		item.Name, item.Description, item.CreatedBy = req.TargetName, req.TargetDescription, req.CreatedBy
		item.DeleteRequest = &req
	}

	return item
}

func NewItems(submissions []Submission) []Item {
	items := make([]Item, 0, len(submissions))
	for _, s := range submissions {
		items = append(items, NewItem(s))
	}
	return items
}

// ItemView is a single item with the current state of its target.
type ItemView struct {
	Item
	Target  *models.PointOfInterest `json:"target,omitempty"`
	Changes []models.FieldChange    `json:"changes,omitempty"`
}
