package pointofinterest

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

const table = "points_of_interest"

var contentColumns = []string{
	"name", "description", "category", "province", "municipality", "barangay", "street_address",
	"contact_phone", "contact_email", "website", "facebook_page", "latitude", "longitude",
	"opening_time", "closing_time", "entry_fee", "image_url",
}

var columns = append(append([]string{"id"}, contentColumns...),
	"status", "version", "created_at", "created_by", "updated_at", "updated_by")

type row struct {
	ID            string          `db:"id"`
	Name          string          `db:"name"`
	Description   string          `db:"description"`
	Category      string          `db:"category"`
	Province      string          `db:"province"`
	Municipality  string          `db:"municipality"`
	Barangay      string          `db:"barangay"`
	StreetAddress string          `db:"street_address"`
	ContactPhone  string          `db:"contact_phone"`
	ContactEmail  string          `db:"contact_email"`
	Website       string          `db:"website"`
	FacebookPage  string          `db:"facebook_page"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	OpeningTime   string          `db:"opening_time"`
	ClosingTime   string          `db:"closing_time"`
	EntryFee      sql.NullFloat64 `db:"entry_fee"`
	ImageURL      string          `db:"image_url"`
	Status        string          `db:"status"`
	Version       int             `db:"version"`
	CreatedAt     time.Time       `db:"created_at"`
	CreatedBy     string          `db:"created_by"`
	UpdatedAt     time.Time       `db:"updated_at"`
	UpdatedBy     string          `db:"updated_by"`
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// contentValues returns the content column values in contentColumns order.
func contentValues(c models.PointContent) []any {
	return []any{
		c.Name, c.Description, c.Category, c.Province, c.Municipality, c.Barangay, c.StreetAddress,
		c.ContactPhone, c.ContactEmail, c.Website, c.FacebookPage, nullFloat(c.Latitude), nullFloat(c.Longitude),
		c.OpeningTime, c.ClosingTime, nullFloat(c.EntryFee), c.ImageURL,
	}
}

func (r row) toModel() models.PointOfInterest {
	return models.PointOfInterest{
		ID: r.ID,
		PointContent: models.PointContent{
			Name:          r.Name,
			Description:   r.Description,
			Category:      r.Category,
			Province:      r.Province,
			Municipality:  r.Municipality,
			Barangay:      r.Barangay,
			StreetAddress: r.StreetAddress,
			ContactPhone:  r.ContactPhone,
			ContactEmail:  r.ContactEmail,
			Website:       r.Website,
			FacebookPage:  r.FacebookPage,
			Latitude:      floatPtr(r.Latitude),
			Longitude:     floatPtr(r.Longitude),
			OpeningTime:   r.OpeningTime,
			ClosingTime:   r.ClosingTime,
			EntryFee:      floatPtr(r.EntryFee),
			ImageURL:      r.ImageURL,
		},
		Status:    models.RecordStatus(r.Status),
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		CreatedBy: r.CreatedBy,
		UpdatedAt: r.UpdatedAt,
		UpdatedBy: r.UpdatedBy,
	}
}
