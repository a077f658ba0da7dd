package models

import "time"

// PointContent holds the moderated fields of a point of interest. An edit
// request proposes a complete PointContent. The max rules match the column
// widths in db/pg so a valid proposal is stored exactly as proposed.
type PointContent struct {
	Name          string   `json:"name" validate:"required,max=200"`
	Description   string   `json:"description" validate:"max=5000"`
	Category      string   `json:"category" validate:"required,max=100"`
	Province      string   `json:"province" validate:"required,max=100"`
	Municipality  string   `json:"municipality" validate:"required,max=100"`
	Barangay      string   `json:"barangay,omitempty" validate:"max=100"`
	StreetAddress string   `json:"street_address,omitempty" validate:"max=255"`
	ContactPhone  string   `json:"contact_phone,omitempty" validate:"omitempty,max=32"`
	ContactEmail  string   `json:"contact_email,omitempty" validate:"omitempty,max=255,email"`
	Website       string   `json:"website,omitempty" validate:"omitempty,max=512,url"`
	FacebookPage  string   `json:"facebook_page,omitempty" validate:"omitempty,max=512,url"`
	Latitude      *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	OpeningTime   string   `json:"opening_time,omitempty" validate:"omitempty,datetime=15:04"`
	ClosingTime   string   `json:"closing_time,omitempty" validate:"omitempty,datetime=15:04"`
	EntryFee      *float64 `json:"entry_fee,omitempty" validate:"omitempty,gte=0"`
	ImageURL      string   `json:"image_url,omitempty" validate:"omitempty,max=1024,url"`
}

// PointOfInterest is the canonical record of a tourist spot. A pending point
// is itself a create submission awaiting moderation.
type PointOfInterest struct {
	ID string `json:"id"`
	PointContent
	Status    RecordStatus `json:"status"`
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	CreatedBy string       `json:"created_by,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
	UpdatedBy string       `json:"updated_by,omitempty"`
}

// Apply replaces the content fields with proposed.
func (p *PointOfInterest) Apply(proposed PointContent) {
	p.PointContent = proposed
}

// FieldChange is one differing field between a record and a proposal.
type FieldChange struct {
	Field    string `json:"field"`
	Current  any    `json:"current"`
	Proposed any    `json:"proposed"`
}

// Diff lists the fields proposed would change, in declaration order.
func (c PointContent) Diff(proposed PointContent) []FieldChange {
	var changes []FieldChange
	add := func(field string, current, next any, equal bool) {
		if !equal {
			changes = append(changes, FieldChange{Field: field, Current: current, Proposed: next})
		}
	}

	add("name", c.Name, proposed.Name, c.Name == proposed.Name)
	add("description", c.Description, proposed.Description, c.Description == proposed.Description)
	add("category", c.Category, proposed.Category, c.Category == proposed.Category)
	add("province", c.Province, proposed.Province, c.Province == proposed.Province)
	add("municipality", c.Municipality, proposed.Municipality, c.Municipality == proposed.Municipality)
	add("barangay", c.Barangay, proposed.Barangay, c.Barangay == proposed.Barangay)
	add("street_address", c.StreetAddress, proposed.StreetAddress, c.StreetAddress == proposed.StreetAddress)
	add("contact_phone", c.ContactPhone, proposed.ContactPhone, c.ContactPhone == proposed.ContactPhone)
	add("contact_email", c.ContactEmail, proposed.ContactEmail, c.ContactEmail == proposed.ContactEmail)
	add("website", c.Website, proposed.Website, c.Website == proposed.Website)
	add("facebook_page", c.FacebookPage, proposed.FacebookPage, c.FacebookPage == proposed.FacebookPage)
	add("latitude", c.Latitude, proposed.Latitude, floatPtrEqual(c.Latitude, proposed.Latitude))
	add("longitude", c.Longitude, proposed.Longitude, floatPtrEqual(c.Longitude, proposed.Longitude))
	add("opening_time", c.OpeningTime, proposed.OpeningTime, c.OpeningTime == proposed.OpeningTime)
	add("closing_time", c.ClosingTime, proposed.ClosingTime, c.ClosingTime == proposed.ClosingTime)
	add("entry_fee", c.EntryFee, proposed.EntryFee, floatPtrEqual(c.EntryFee, proposed.EntryFee))
	add("image_url", c.ImageURL, proposed.ImageURL, c.ImageURL == proposed.ImageURL)

	return changes
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
