package store

import (
	"context"
	"fmt"
	"time"
)

// ExportEvent is one entry in the append-only export log. Immutable once
// written; the serial id gives a monotonic ordering without coordination.
type ExportEvent struct {
	ID         int64     `json:"id"`
	Date       time.Time `json:"date"`
	Count      int       `json:"count"`
	ContactIDs []string  `json:"contactIds"` // selection order preserved
}

// ImportEvent records one completed import batch for the history view.
type ImportEvent struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"fileName"`
	Mode       string    `json:"mode"`
	TotalRows  int       `json:"totalRows"`
	UniqueRows int       `json:"uniqueRows"`
	Duplicates int       `json:"duplicates"`
	ImportedAt time.Time `json:"importedAt"`
}

// AppendExport writes a new export event and returns it with its assigned id.
func (s *Store) AppendExport(ctx context.Context, date time.Time, contactIDs []string) (*ExportEvent, error) {
	ev := &ExportEvent{
		Date:       date,
		Count:      len(contactIDs),
		ContactIDs: contactIDs,
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO exports (exported_at, record_count, contact_ids)
		VALUES ($1, $2, $3)
		RETURNING id`,
		ev.Date, ev.Count, ev.ContactIDs).Scan(&ev.ID)
	if err != nil {
		return nil, fmt.Errorf("append export: %w", err)
	}
	return ev, nil
}

// ListExports returns the export log, most recent first.
func (s *Store) ListExports(ctx context.Context) ([]*ExportEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, exported_at, record_count, contact_ids
		FROM exports ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var events []*ExportEvent
	for rows.Next() {
		var ev ExportEvent
		if err := rows.Scan(&ev.ID, &ev.Date, &ev.Count, &ev.ContactIDs); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// AppendImport records a completed import in the history.
func (s *Store) AppendImport(ctx context.Context, ev *ImportEvent) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO import_history (file_name, mode, total_rows, unique_rows, duplicates, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		ev.FileName, ev.Mode, ev.TotalRows, ev.UniqueRows, ev.Duplicates, ev.ImportedAt).Scan(&ev.ID)
	if err != nil {
		return fmt.Errorf("append import history: %w", err)
	}
	return nil
}

// ListImports returns the import history, most recent first.
func (s *Store) ListImports(ctx context.Context) ([]*ImportEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, file_name, mode, total_rows, unique_rows, duplicates, imported_at
		FROM import_history ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query import history: %w", err)
	}
	defer rows.Close()

	var events []*ImportEvent
	for rows.Next() {
		var ev ImportEvent
		if err := rows.Scan(&ev.ID, &ev.FileName, &ev.Mode, &ev.TotalRows,
			&ev.UniqueRows, &ev.Duplicates, &ev.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import history: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
