package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/export"
	"github.com/contactdesk/contactdesk/internal/spreadsheet"
)

// ExportFile is a rendered export: the workbook bytes plus the name the
// download should carry.
type ExportFile struct {
	Name    string
	Data    []byte
	EventID int64
	Count   int
}

// Export renders the selected contacts as a workbook and records the
// export in the ledger, stamping each record's export bookkeeping. An
// empty ids selection exports the whole base in snapshot order.
func (s *Service) Export(ctx context.Context, ids []string) (*ExportFile, error) {
	// Stamping must not interleave with a running batch: an import or
	// enrichment works on a pre-stamp copy of the snapshot and its final
	// put would write the stamps back out of existence.
	if err := s.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.gate.Release()

	selected, err := s.selectContacts(ids)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}

	var buf bytes.Buffer
	if err := spreadsheet.Encode(&buf, export.Columns, export.Rows(selected)); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	// The workbook rendered; record the event and stamp the records. The
	// ledger writes the store first, so a failure here leaves the
	// in-memory records unstamped and no file is handed out.
	now := s.Now()
	s.mu.Lock()
	ev, err := s.ledger.RecordExport(ctx, now, selected)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	slog.Info("export recorded", "event_id", ev.ID, "count", len(selected))

	return &ExportFile{
		Name:    export.FileName(now, len(selected)),
		Data:    buf.Bytes(),
		EventID: ev.ID,
		Count:   len(selected),
	}, nil
}

// selectContacts resolves an id selection against the snapshot, keeping
// snapshot order. Unknown ids are an error rather than a silent skip.
func (s *Service) selectContacts(ids []string) ([]*contact.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(ids) == 0 {
		out := make([]*contact.Contact, len(s.contacts))
		copy(out, s.contacts)
		return out, nil
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := make([]*contact.Contact, 0, len(ids))
	for _, c := range s.contacts {
		if want[c.UniqueID] {
			out = append(out, c)
			delete(want, c.UniqueID)
		}
	}
	if len(want) > 0 {
		for id := range want {
			return nil, fmt.Errorf("unknown contact id: %s", id)
		}
	}
	return out, nil
}
