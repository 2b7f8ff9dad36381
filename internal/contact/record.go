// Package contact defines the canonical contact record and the logic that
// turns raw spreadsheet rows into records: header synonym resolution, field
// normalization, and record construction with stable identifier assignment.
// This package has no storage or network dependencies.
package contact

import "time"

// APIStatus describes the outcome of the last registry enrichment attempt
// for a record. The empty string means the record was never enriched.
type APIStatus string

const (
	StatusSuccess  APIStatus = "success"
	StatusNotFound APIStatus = "not_found"
	StatusError    APIStatus = "error"
	StatusNoData   APIStatus = "no_data"
	// StatusImported flags records that arrived pre-enriched (typically a
	// re-imported export) so enrichment passes skip them.
	StatusImported APIStatus = "imported"
)

// Contact is the canonical record: one contact/business entity as stored.
// String fields use "" as null; pointer fields use nil.
type Contact struct {
	// UniqueID is the primary key. Immutable once assigned, never regenerated.
	UniqueID string `json:"uniqueId"`

	// Identity and contact fields.
	Name       string `json:"name"`
	Address    string `json:"address"`
	PostalCode string `json:"postalCode"` // exactly 5 ASCII digits when set
	City       string `json:"city"`
	Phone      string `json:"phone"`  // exactly 10 ASCII digits when set
	Mobile     string `json:"mobile"` // same normalization as Phone
	Phone2     string `json:"phone2"`
	Email      string `json:"email"`
	Website    string `json:"website"`
	Category   string `json:"category"`

	// Registry fields.
	Siret       string `json:"siret"` // 14 digits when set
	Siren       string `json:"siren"`
	Naf         string `json:"naf"`
	Description string `json:"description"`

	// Enrichment fields, populated by the registry provider.
	APIEnriched      bool      `json:"apiEnriched"`
	APIStatus        APIStatus `json:"apiStatus"`
	APIEffectifCode  string    `json:"apiEffectifCode"` // one of the fixed bracket codes
	APIEffectifLabel string    `json:"apiEffectifLabel"`
	APINaf           string    `json:"apiNaf"`
	APIDateCreation  string    `json:"apiDateCreation"`
	APIDirigeants    string    `json:"apiDirigeants"`

	// Geolocation fields, populated by the geocoding provider.
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	GeoStatus string   `json:"geoStatus"`

	// Route fields, populated by the route provider.
	DistanceMeters  *float64 `json:"distanceMeters"`
	DurationSeconds *float64 `json:"durationSeconds"`
	RouteStatus     string   `json:"routeStatus"`

	// Provenance and audit.
	SourceFile     string     `json:"sourceFile"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	LastExportedAt *time.Time `json:"lastExportedAt"`
	ExportCount    int        `json:"exportCount"`
}

// HasGeo reports whether the record carries coordinates usable for routing.
func (c *Contact) HasGeo() bool {
	return c.Lat != nil && c.Lon != nil
}

// Touch refreshes the modification timestamp.
func (c *Contact) Touch(now time.Time) {
	c.UpdatedAt = now
}

// IsEmpty reports whether a built record carries none of the fields that
// make it worth keeping. Callers discard empty rows after building; the
// builder itself never rejects input.
func (c *Contact) IsEmpty() bool {
	return c.Name == "" && c.Phone == "" && c.Mobile == "" && c.Siret == ""
}
