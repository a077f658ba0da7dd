package moderation

import (
	"sort"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Kind is the kind of change a submission proposes
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ParseKind parses a kind from a route parameter
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindCreate, KindUpdate, KindDelete:
		return k, nil
	}
	return "", Validation("unknown submission kind '%s'", s)
}

// Category is a moderation dashboard tab. Only tourist spots are backed by
// data; the rest report empty queues.
type Category string

const (
	CategoryTouristSpots   Category = "tourist_spots"
	CategoryBusinesses     Category = "businesses"
	CategoryAccommodations Category = "accommodations"
	CategoryEvents         Category = "events"
)

var Categories = []Category{CategoryTouristSpots, CategoryBusinesses, CategoryAccommodations, CategoryEvents}

// ParseCategory parses a queue category, defaulting to tourist spots
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryTouristSpots, nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", Validation("unknown moderation category '%s'", s)
}

// Implemented reports whether the category has real submissions.
func (c Category) Implemented() bool {
	return c == CategoryTouristSpots
}

// ItemRef addresses a queue item for View, Approve and Reject.
type ItemRef struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

func (r ItemRef) Validate() error {
	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if r.ID == "" {
		return Validation("item id is required")
	}
	return nil
}

// Submission is a queue item. It is one of CreateItem, UpdateItem or DeleteItem.
type Submission interface {
	Kind() Kind
	ID() string
	TargetID() string
	CreatedAt() time.Time
	Ref() ItemRef
	submission()
}

// CreateItem is a point still awaiting its first publication.
type CreateItem struct {
	Point models.PointOfInterest
}

func (i CreateItem) Kind() Kind           { return KindCreate }
func (i CreateItem) ID() string           { return i.Point.ID }
func (i CreateItem) TargetID() string     { return i.Point.ID }
func (i CreateItem) CreatedAt() time.Time { return i.Point.CreatedAt }
func (i CreateItem) Ref() ItemRef         { return ItemRef{Kind: KindCreate, ID: i.Point.ID} }
func (CreateItem) submission()            {}

// UpdateItem is a pending edit request.
type UpdateItem struct {
	Request models.EditRequest
}

func (i UpdateItem) Kind() Kind           { return KindUpdate }
func (i UpdateItem) ID() string           { return i.Request.ID }
func (i UpdateItem) TargetID() string     { return i.Request.TargetID }
func (i UpdateItem) CreatedAt() time.Time { return i.Request.CreatedAt }
func (i UpdateItem) Ref() ItemRef         { return ItemRef{Kind: KindUpdate, ID: i.Request.ID} }
func (UpdateItem) submission()            {}

// DeleteItem is a pending delete request.
type DeleteItem struct {
	Request models.DeleteRequest
}

func (i DeleteItem) Kind() Kind           { return KindDelete }
func (i DeleteItem) ID() string           { return i.Request.ID }
func (i DeleteItem) TargetID() string     { return i.Request.TargetID }
func (i DeleteItem) CreatedAt() time.Time { return i.Request.CreatedAt }
func (i DeleteItem) Ref() ItemRef         { return ItemRef{Kind: KindDelete, ID: i.Request.ID} }
func (DeleteItem) submission()            {}

// Counts is the number of pending items per category.
type Counts map[Category]int

// Strings keys the counts by category name.
func (c Counts) Strings() map[string]int {
	out := make(map[string]int, len(c))
	for k, v := range c {
		out[string(k)] = v
	}
	return out
}

func zeroCounts() Counts {
	counts := make(Counts, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	return counts
}

// Queue is one build of the moderation queue
type Queue struct {
	Category Category
	Items    []Submission
	Counts   Counts
}

// BuildQueue merges pending points, edit requests and delete requests into one
// queue ordered newest first. A pending point that is also the target of a
// pending edit or delete is listed only through that request. Entries that are
// not pending are ignored.
func BuildQueue(category Category, points []models.PointOfInterest, edits []models.EditRequest, deletes []models.DeleteRequest) Queue {
	targeted := make(map[string]struct{}, len(edits)+len(deletes))
	items := make([]Submission, 0, len(points)+len(edits)+len(deletes))

	for _, req := range edits {
		if req.Status != models.RequestPending {
			continue
		}
		targeted[req.TargetID] = struct{}{}
		items = append(items, UpdateItem{Request: req})
	}

	for _, req := range deletes {
		if req.Status != models.RequestPending {
			continue
		}
		targeted[req.TargetID] = struct{}{}
		items = append(items, DeleteItem{Request: req})
	}

	for _, point := range points {
		if point.Status != models.RecordPending {
			continue
		}
		if _, ok := targeted[point.ID]; ok {
			continue
		}
		items = append(items, CreateItem{Point: point})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].CreatedAt(), items[j].CreatedAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return items[i].ID() > items[j].ID()
	})

	counts := zeroCounts()
	counts[CategoryTouristSpots] = len(items)

	if !category.Implemented() {
		items = []Submission{}
	}

	return Queue{
		Category: category,
		Items:    items,
		Counts:   counts,
	}
}
