// Package export turns a filtered record selection into a downloadable
// workbook and keeps the ledger of what was exported when. Column headers
// are fixed: the synonym resolver recognizes them, so an export can be
// re-imported without losing identifiers or provenance.
package export

import (
	"fmt"
	"math"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// Columns is the fixed header row of every export file.
var Columns = []string{
	"ID Fiche",
	"Nom",
	"Adresse",
	"Code Postal",
	"Ville",
	"Téléphone",
	"Mobile",
	"Email",
	"Catégorie",
	"SIRET",
	"SIREN",
	"Code NAF",
	"Effectif (code)",
	"Effectif",
	"Dirigeants",
	"Date Création Ent.",
	"Distance (km)",
	"Temps trajet (min)",
	"Latitude",
	"Longitude",
	"Date Import",
	"Dernier Export",
	"Nb Exports",
	"Source",
}

const cellTimeLayout = "2006-01-02 15:04:05"

// Rows flattens records into export rows, one per record, in selection
// order. Distances surface in kilometers and durations in minutes, both
// rounded to one decimal.
func Rows(contacts []*contact.Contact) [][]any {
	rows := make([][]any, len(contacts))
	for i, c := range contacts {
		rows[i] = row(c)
	}
	return rows
}

func row(c *contact.Contact) []any {
	var distanceKm, durationMin any
	if c.DistanceMeters != nil {
		distanceKm = round1(*c.DistanceMeters / 1000)
	}
	if c.DurationSeconds != nil {
		durationMin = round1(*c.DurationSeconds / 60)
	}

	var lat, lon any
	if c.Lat != nil {
		lat = *c.Lat
	}
	if c.Lon != nil {
		lon = *c.Lon
	}

	var lastExport any
	if c.LastExportedAt != nil {
		lastExport = c.LastExportedAt.Format(cellTimeLayout)
	}

	return []any{
		c.UniqueID,
		c.Name,
		c.Address,
		c.PostalCode,
		c.City,
		c.Phone,
		c.Mobile,
		c.Email,
		c.Category,
		c.Siret,
		c.Siren,
		c.Naf,
		c.APIEffectifCode,
		c.APIEffectifLabel,
		c.APIDirigeants,
		c.APIDateCreation,
		distanceKm,
		durationMin,
		lat,
		lon,
		c.CreatedAt.Format(cellTimeLayout),
		lastExport,
		c.ExportCount,
		c.SourceFile,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FileName names an export file with the export date and record count.
func FileName(date time.Time, count int) string {
	return fmt.Sprintf("contacts_export_%s_%d.xlsx", date.Format("2006-01-02"), count)
}
