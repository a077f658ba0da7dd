package models

// RecordStatus is the publication state of a point of interest. The persisted
// values are shared with RequestStatus but the two lifecycles are distinct.
type RecordStatus string

const (
	RecordPending     RecordStatus = "pending"
	RecordPublished   RecordStatus = "active"
	RecordUnpublished RecordStatus = "inactive"
)

func (s RecordStatus) Valid() bool {
	switch s {
	case RecordPending, RecordPublished, RecordUnpublished:
		return true
	}
	return false
}

// RequestStatus is the review state of an edit or delete request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApplied  RequestStatus = "active"
	RequestRejected RequestStatus = "inactive"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApplied, RequestRejected:
		return true
	}
	return false
}
