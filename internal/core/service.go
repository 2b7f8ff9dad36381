// Package core implements the business logic for the contact base: file
// imports with duplicate reconciliation, background enrichment batches,
// spreadsheet exports and the settings surface. The package owns the
// authoritative in-memory snapshot of all contacts; the store is its
// durable backing. Batches run asynchronously behind a single-writer gate
// so that at most one operation rewrites the snapshot at a time.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/contactdesk/contactdesk/internal/config"
	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/enrich"
	"github.com/contactdesk/contactdesk/internal/export"
	"github.com/contactdesk/contactdesk/internal/store"
)

// Store is the persistence surface the service needs. *store.Store
// implements it; tests substitute a fake.
type Store interface {
	GetAllContacts(ctx context.Context) ([]*contact.Contact, error)
	PutContacts(ctx context.Context, contacts []*contact.Contact) error
	DeleteContact(ctx context.Context, uniqueID string) error
	ClearContacts(ctx context.Context) error
	StampExported(ctx context.Context, uniqueIDs []string, exportedAt time.Time) error

	AppendExport(ctx context.Context, date time.Time, contactIDs []string) (*store.ExportEvent, error)
	ListExports(ctx context.Context) ([]*store.ExportEvent, error)
	AppendImport(ctx context.Context, ev *store.ImportEvent) error
	ListImports(ctx context.Context) ([]*store.ImportEvent, error)

	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	IDCounter(ctx context.Context) (int, error)
	SetIDCounter(ctx context.Context, n int) error
	IDPrefix(ctx context.Context) (string, error)
}

// Service provides the core business logic for contact management.
type Service struct {
	store  Store
	enrich config.EnrichConfig
	imp    config.ImportConfig
	gate   *BatchGate
	ledger *export.Ledger

	mu       sync.RWMutex
	contacts []*contact.Contact

	jobMu sync.RWMutex
	jobs  map[string]*job

	// Now is the clock used for record timestamps. Overridable in tests.
	Now func() time.Time
}

// NewService creates a Service instance. Call LoadSnapshot before serving
// requests.
func NewService(st Store, cfg *config.Config) *Service {
	return &Service{
		store:  st,
		enrich: cfg.Enrich,
		imp:    cfg.Import,
		gate:   NewBatchGate(DefaultGateWait),
		ledger: export.NewLedger(st),
		jobs:   make(map[string]*job),
		Now:    time.Now,
	}
}

// LoadSnapshot replaces the in-memory snapshot with the stored contact
// base. Called once at startup.
func (s *Service) LoadSnapshot(ctx context.Context) error {
	contacts, err := s.store.GetAllContacts(ctx)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}

	s.mu.Lock()
	s.contacts = contacts
	s.mu.Unlock()
	return nil
}

// Contacts returns the current snapshot. The returned slice is a copy;
// the records themselves are shared and must be treated as read-only by
// callers.
func (s *Service) Contacts() []*contact.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*contact.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out
}

// ContactCount returns the snapshot size without copying.
func (s *Service) ContactCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// DeleteContact removes one record from the store and the snapshot.
func (s *Service) DeleteContact(ctx context.Context, uniqueID string) error {
	if err := s.gate.Acquire(ctx); err != nil {
		return err
	}
	defer s.gate.Release()

	if err := s.store.DeleteContact(ctx, uniqueID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.contacts {
		if c.UniqueID == uniqueID {
			s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
			break
		}
	}
	return nil
}

// ClearContacts deletes every record. The identifier counter is not reset:
// ids of deleted records are never reissued.
func (s *Service) ClearContacts(ctx context.Context) error {
	if err := s.gate.Acquire(ctx); err != nil {
		return err
	}
	defer s.gate.Release()

	if err := s.store.ClearContacts(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.contacts = nil
	s.mu.Unlock()
	return nil
}

// ListExportEvents returns the export ledger, newest first.
func (s *Service) ListExportEvents(ctx context.Context) ([]*store.ExportEvent, error) {
	return s.store.ListExports(ctx)
}

// ImportHistory returns past import batches, newest first.
func (s *Service) ImportHistory(ctx context.Context) ([]*store.ImportEvent, error) {
	return s.store.ListImports(ctx)
}

// Settings is the user-configurable installation state.
type Settings struct {
	IDPrefix   string `json:"idPrefix"`
	StartPoint string `json:"startPoint"`
}

// GetSettings reads the current settings, with defaults applied.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	prefix, err := s.store.IDPrefix(ctx)
	if err != nil {
		return Settings{}, err
	}
	start, err := s.store.Setting(ctx, store.KeyStartPoint)
	if err != nil {
		return Settings{}, err
	}
	return Settings{IDPrefix: prefix, StartPoint: start}, nil
}

// UpdateSettings validates and stores new settings. The id prefix applies
// to records created after the change; existing ids keep their prefix.
func (s *Service) UpdateSettings(ctx context.Context, in Settings) error {
	if in.IDPrefix == "" {
		return fmt.Errorf("id prefix must not be empty")
	}
	if in.StartPoint != "" {
		if _, err := enrich.ParseStartPoint(in.StartPoint); err != nil {
			return fmt.Errorf("invalid start point: %w", err)
		}
	}

	if err := s.store.SetSetting(ctx, store.KeyIDPrefix, in.IDPrefix); err != nil {
		return err
	}
	return s.store.SetSetting(ctx, store.KeyStartPoint, in.StartPoint)
}
