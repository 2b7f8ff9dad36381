package export

import (
	"context"
	"fmt"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/store"
)

// ledgerStore is the slice of the store the ledger needs.
type ledgerStore interface {
	AppendExport(ctx context.Context, date time.Time, contactIDs []string) (*store.ExportEvent, error)
	StampExported(ctx context.Context, uniqueIDs []string, exportedAt time.Time) error
}

// Ledger records export events and stamps the exported records. Events are
// append-only and never edited after creation.
type Ledger struct {
	store ledgerStore
}

// NewLedger creates a ledger on the given store.
func NewLedger(s ledgerStore) *Ledger {
	return &Ledger{store: s}
}

// RecordExport writes one export event for the selection and stamps every
// selected record, both durably and on the in-memory copies. The event's
// contact ids keep selection order for later lookup.
//
// Persistence happens before the in-memory mutation: if either store call
// fails, the snapshot is left untouched and the error surfaces to the
// caller.
func (l *Ledger) RecordExport(ctx context.Context, now time.Time, selected []*contact.Contact) (*store.ExportEvent, error) {
	ids := make([]string, len(selected))
	for i, c := range selected {
		ids[i] = c.UniqueID
	}

	ev, err := l.store.AppendExport(ctx, now, ids)
	if err != nil {
		return nil, fmt.Errorf("record export event: %w", err)
	}
	if err := l.store.StampExported(ctx, ids, now); err != nil {
		return nil, fmt.Errorf("stamp exported records: %w", err)
	}

	for _, c := range selected {
		t := now
		c.LastExportedAt = &t
		c.ExportCount++
	}

	return ev, nil
}
