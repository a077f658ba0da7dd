package models

import "time"

// TargetSnapshot is the display copy of the targeted point, joined in when
// requests are listed.
type TargetSnapshot struct {
	TargetName        string `json:"target_name,omitempty"`
	TargetDescription string `json:"target_description,omitempty"`
}

// EditRequest proposes a full replacement of a point's content.
type EditRequest struct {
	ID       string       `json:"id"`
	TargetID string       `json:"target_id"`
	Proposed PointContent `json:"proposed"`
	TargetSnapshot
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	CreatedBy  string        `json:"created_by,omitempty"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy string        `json:"reviewed_by,omitempty"`
}

// DeleteRequest asks for a point to be removed.
type DeleteRequest struct {
	ID       string `json:"id"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason,omitempty"`
	TargetSnapshot
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	CreatedBy  string        `json:"created_by,omitempty"`
	ReviewedAt *time.Time    `json:"reviewed_at,omitempty"`
	ReviewedBy string        `json:"reviewed_by,omitempty"`
}

// CreatePointRequest is the body of a new point submission
type CreatePointRequest struct {
	PointContent
}

// CreateEditRequest is the body of an edit request
type CreateEditRequest struct {
	Proposed PointContent `json:"proposed"`
}

// CreateDeleteRequest is the body of a delete request
type CreateDeleteRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}
