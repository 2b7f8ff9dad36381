package contact

import (
	"strconv"
	"strings"
	"time"
)

// Row is one spreadsheet row keyed by its original column headers.
type Row map[string]string

// createdAtLayouts are the accepted formats for a row's own import-date
// cell, most specific first.
var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// Builder turns raw rows into canonical records. The zero value is not
// usable; Prefix must be set.
type Builder struct {
	// Prefix is prepended to generated identifiers: "{prefix}_{counter}".
	Prefix string

	// Now returns the current time; overridable in tests. Defaults to
	// time.Now when nil.
	Now func() time.Time
}

// Build constructs one canonical record from a raw row.
//
// Identifier assignment: when keepExistingID is true and the row supplies a
// non-empty identifier cell, that value is used verbatim; otherwise a fresh
// id is generated from counter. The second return value reports whether the
// counter was consumed; the caller increments it once per generated id,
// never for preserved ones.
func (b Builder) Build(row Row, mapping Mapping, sourceFile string, counter int, keepExistingID bool) (*Contact, bool) {
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}

	get := func(f Field) string {
		header, ok := mapping[f]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[header])
	}

	c := &Contact{
		Name:            get(FieldName),
		Address:         get(FieldAddress),
		PostalCode:      NormalizePostalCode(get(FieldPostalCode)),
		City:            get(FieldCity),
		Phone:           NormalizePhone(get(FieldPhone)),
		Mobile:          NormalizePhone(get(FieldMobile)),
		Phone2:          NormalizePhone(get(FieldPhone2)),
		Email:           get(FieldEmail),
		Website:         get(FieldWebsite),
		Category:        get(FieldCategory),
		Siret:           DigitsOnly(get(FieldSiret)),
		Siren:           DigitsOnly(get(FieldSiren)),
		Naf:             get(FieldNaf),
		Description:     get(FieldDescription),
		APIDirigeants:   get(FieldDirigeants),
		APIDateCreation: get(FieldDateCreation),
		SourceFile:      sourceFile,
		UpdatedAt:       now,
	}

	generated := false
	if id := get(FieldUniqueID); keepExistingID && id != "" {
		c.UniqueID = id
	} else {
		c.UniqueID = b.Prefix + "_" + pad5(counter)
		generated = true
	}

	c.APIEffectifCode, c.APIEffectifLabel = InferEffectif(get(FieldEffectifCode), get(FieldEffectifLabel))

	if v, err := strconv.ParseFloat(strings.ReplaceAll(get(FieldLat), ",", "."), 64); err == nil {
		c.Lat = &v
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(get(FieldLon), ",", "."), 64); err == nil {
		c.Lon = &v
	}

	// A row that already carries a headcount value or coordinates came from
	// a previous export; flag it so enrichment passes do not re-fetch it.
	if get(FieldEffectifCode) != "" || get(FieldEffectifLabel) != "" || c.Lat != nil {
		c.APIEnriched = true
		c.APIStatus = StatusImported
	}

	c.CreatedAt = parseCreatedAt(get(FieldDateImport), now)

	return c, generated
}

// pad5 formats a counter value as a zero-padded 5-digit string. Counters
// past 99999 keep their natural width.
func pad5(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 5 {
		s = "0" + s
	}
	return s
}

// parseCreatedAt keeps the row's own import date when it has one, so a
// re-imported export does not lose its original provenance.
func parseCreatedAt(raw string, fallback time.Time) time.Time {
	if raw == "" {
		return fallback
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}
