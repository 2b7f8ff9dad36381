package store

import (
	"context"
	"fmt"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/jackc/pgx/v5"
)

const contactColumns = `unique_id, name, address, postal_code, city, phone, mobile, phone2,
	email, website, category, siret, siren, naf, description,
	api_enriched, api_status, api_effectif_code, api_effectif_label, api_naf,
	api_date_creation, api_dirigeants,
	lat, lon, geo_status, distance_meters, duration_seconds, route_status,
	source_file, created_at, updated_at, last_exported_at, export_count`

const upsertContactSQL = `
INSERT INTO contacts (` + contactColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
	$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33)
ON CONFLICT (unique_id) DO UPDATE SET
	name = EXCLUDED.name,
	address = EXCLUDED.address,
	postal_code = EXCLUDED.postal_code,
	city = EXCLUDED.city,
	phone = EXCLUDED.phone,
	mobile = EXCLUDED.mobile,
	phone2 = EXCLUDED.phone2,
	email = EXCLUDED.email,
	website = EXCLUDED.website,
	category = EXCLUDED.category,
	siret = EXCLUDED.siret,
	siren = EXCLUDED.siren,
	naf = EXCLUDED.naf,
	description = EXCLUDED.description,
	api_enriched = EXCLUDED.api_enriched,
	api_status = EXCLUDED.api_status,
	api_effectif_code = EXCLUDED.api_effectif_code,
	api_effectif_label = EXCLUDED.api_effectif_label,
	api_naf = EXCLUDED.api_naf,
	api_date_creation = EXCLUDED.api_date_creation,
	api_dirigeants = EXCLUDED.api_dirigeants,
	lat = EXCLUDED.lat,
	lon = EXCLUDED.lon,
	geo_status = EXCLUDED.geo_status,
	distance_meters = EXCLUDED.distance_meters,
	duration_seconds = EXCLUDED.duration_seconds,
	route_status = EXCLUDED.route_status,
	source_file = EXCLUDED.source_file,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at,
	last_exported_at = EXCLUDED.last_exported_at,
	export_count = EXCLUDED.export_count`

// GetAllContacts loads the full record set, oldest first so snapshot order
// is stable across restarts.
func (s *Store) GetAllContacts(ctx context.Context) ([]*contact.Contact, error) {
	rows, err := s.db.Query(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY created_at, unique_id`)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*contact.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// PutContacts upserts a batch of records in one transaction. The whole
// batch commits or none of it does; the in-memory snapshot is only swapped
// after this returns nil.
func (s *Store) PutContacts(ctx context.Context, contacts []*contact.Contact) error {
	if len(contacts) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range contacts {
		batch.Queue(upsertContactSQL, upsertArgs(c)...)
	}

	br := tx.SendBatch(ctx, batch)
	for range contacts {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("upsert contact: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteContact removes one record. Deleting an unknown id is not an error.
func (s *Store) DeleteContact(ctx context.Context, uniqueID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM contacts WHERE unique_id = $1`, uniqueID); err != nil {
		return fmt.Errorf("delete contact %s: %w", uniqueID, err)
	}
	return nil
}

// ClearContacts removes every record. Destructive; the web layer requires
// explicit confirmation before calling this.
func (s *Store) ClearContacts(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM contacts`); err != nil {
		return fmt.Errorf("clear contacts: %w", err)
	}
	return nil
}

// StampExported updates export bookkeeping for the given records: the
// export timestamp moves forward and the counter increments, atomically for
// the whole selection.
func (s *Store) StampExported(ctx context.Context, uniqueIDs []string, exportedAt time.Time) error {
	if len(uniqueIDs) == 0 {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		UPDATE contacts
		SET last_exported_at = $1, export_count = export_count + 1
		WHERE unique_id = ANY($2)`,
		exportedAt, uniqueIDs)
	if err != nil {
		return fmt.Errorf("stamp exported: %w", err)
	}
	return nil
}

func upsertArgs(c *contact.Contact) []any {
	return []any{
		c.UniqueID, c.Name, c.Address, c.PostalCode, c.City, c.Phone, c.Mobile, c.Phone2,
		c.Email, c.Website, c.Category, c.Siret, c.Siren, c.Naf, c.Description,
		c.APIEnriched, string(c.APIStatus), c.APIEffectifCode, c.APIEffectifLabel, c.APINaf,
		c.APIDateCreation, c.APIDirigeants,
		c.Lat, c.Lon, c.GeoStatus, c.DistanceMeters, c.DurationSeconds, c.RouteStatus,
		c.SourceFile, c.CreatedAt, c.UpdatedAt, c.LastExportedAt, c.ExportCount,
	}
}

func scanContact(row pgx.Row) (*contact.Contact, error) {
	var c contact.Contact
	var status string
	if err := row.Scan(
		&c.UniqueID, &c.Name, &c.Address, &c.PostalCode, &c.City, &c.Phone, &c.Mobile, &c.Phone2,
		&c.Email, &c.Website, &c.Category, &c.Siret, &c.Siren, &c.Naf, &c.Description,
		&c.APIEnriched, &status, &c.APIEffectifCode, &c.APIEffectifLabel, &c.APINaf,
		&c.APIDateCreation, &c.APIDirigeants,
		&c.Lat, &c.Lon, &c.GeoStatus, &c.DistanceMeters, &c.DurationSeconds, &c.RouteStatus,
		&c.SourceFile, &c.CreatedAt, &c.UpdatedAt, &c.LastExportedAt, &c.ExportCount,
	); err != nil {
		return nil, fmt.Errorf("scan contact: %w", err)
	}
	c.APIStatus = contact.APIStatus(status)
	return &c, nil
}
