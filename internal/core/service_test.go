package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contactdesk/contactdesk/internal/config"
	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/reconcile"
	"github.com/contactdesk/contactdesk/internal/store"
)

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

// fakeStore is an in-memory Store for exercising the service without a
// database.
type fakeStore struct {
	mu       sync.Mutex
	saved    []*contact.Contact
	counter  int
	settings map[string]string
	imports  []*store.ImportEvent
	exports  []*store.ExportEvent
	stamped  []string

	failPut bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{counter: 1, settings: make(map[string]string)}
}

func (f *fakeStore) GetAllContacts(ctx context.Context) ([]*contact.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*contact.Contact, len(f.saved))
	copy(out, f.saved)
	return out, nil
}

func (f *fakeStore) PutContacts(ctx context.Context, contacts []*contact.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("connection refused")
	}
	f.saved = make([]*contact.Contact, len(contacts))
	copy(f.saved, contacts)
	return nil
}

func (f *fakeStore) DeleteContact(ctx context.Context, uniqueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.saved {
		if c.UniqueID == uniqueID {
			f.saved = append(f.saved[:i], f.saved[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeStore) ClearContacts(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = nil
	return nil
}

func (f *fakeStore) StampExported(ctx context.Context, ids []string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stamped = append(f.stamped, ids...)
	return nil
}

func (f *fakeStore) AppendExport(ctx context.Context, date time.Time, ids []string) (*store.ExportEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := &store.ExportEvent{ID: int64(len(f.exports) + 1), Date: date, Count: len(ids), ContactIDs: ids}
	f.exports = append(f.exports, ev)
	return ev, nil
}

func (f *fakeStore) ListExports(ctx context.Context) ([]*store.ExportEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exports, nil
}

func (f *fakeStore) AppendImport(ctx context.Context, ev *store.ImportEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imports = append(f.imports, ev)
	return nil
}

func (f *fakeStore) ListImports(ctx context.Context) ([]*store.ImportEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.imports, nil
}

func (f *fakeStore) Setting(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[key], nil
}

func (f *fakeStore) SetSetting(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = value
	return nil
}

func (f *fakeStore) IDCounter(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counter, nil
}

func (f *fakeStore) SetIDCounter(ctx context.Context, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter = n
	return nil
}

func (f *fakeStore) IDPrefix(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.settings[store.KeyIDPrefix]; p != "" {
		return p, nil
	}
	return store.DefaultIDPrefix, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			MaxFileSize: 1 << 20,
			MaxRows:     1000,
			Timeout:     time.Minute,
		},
		Enrich: config.EnrichConfig{
			HTTPTimeout: 5 * time.Second,
			Timeout:     time.Minute,
		},
	}
}

func newTestService(t *testing.T, fs *fakeStore) *Service {
	t.Helper()
	svc := NewService(fs, testConfig())
	svc.Now = func() time.Time { return testNow }
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	return svc
}

func runImport(t *testing.T, svc *Service, fileName, csv string, opts ImportOptions) *JobResult {
	t.Helper()
	jobID, err := svc.StartImport(context.Background(), fileName, []byte(csv), opts)
	if err != nil {
		t.Fatalf("StartImport: %v", err)
	}
	res, err := svc.WaitResult(jobID)
	if err != nil {
		t.Fatalf("WaitResult: %v", err)
	}
	return res
}

// ---------------------------------------------------------------------------
// Import pipeline
// ---------------------------------------------------------------------------

func TestImportAssignsSequentialIDs(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	csv := "Nom,Tel,CP\n" +
		"Boulangerie Paul,01 42 33 44 55,75001\n" +
		"Garage Dupont,06.11.22.33.44,69003\n" +
		"Cabinet Leroy,0499887766,1000\n"

	res := runImport(t, svc, "contacts.csv", csv, ImportOptions{})

	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}
	if res.TotalRows != 3 || res.UniqueRows != 3 || res.Duplicates != 0 {
		t.Errorf("counts = total %d unique %d dup %d, want 3/3/0", res.TotalRows, res.UniqueRows, res.Duplicates)
	}
	if res.Inserted != 3 {
		t.Errorf("Inserted = %d, want 3", res.Inserted)
	}

	got := svc.Contacts()
	if len(got) != 3 {
		t.Fatalf("snapshot has %d contacts, want 3", len(got))
	}
	wantIDs := []string{"FICHE_00001", "FICHE_00002", "FICHE_00003"}
	for i, c := range got {
		if c.UniqueID != wantIDs[i] {
			t.Errorf("contact %d id = %q, want %q", i, c.UniqueID, wantIDs[i])
		}
		if c.APIEnriched {
			t.Errorf("contact %d marked enriched on plain import", i)
		}
	}

	if got[0].Phone != "0142334455" {
		t.Errorf("phone = %q, want normalized digits", got[0].Phone)
	}
	if got[2].PostalCode != "01000" {
		t.Errorf("postal = %q, want %q", got[2].PostalCode, "01000")
	}

	// Counter persisted past the batch so ids never repeat.
	if fs.counter != 4 {
		t.Errorf("persisted counter = %d, want 4", fs.counter)
	}
	if len(fs.imports) != 1 {
		t.Fatalf("import history entries = %d, want 1", len(fs.imports))
	}
	if fs.imports[0].FileName != "contacts.csv" {
		t.Errorf("history file = %q", fs.imports[0].FileName)
	}
}

func TestImportNewOnlySkipsDuplicates(t *testing.T) {
	fs := newFakeStore()
	fs.saved = []*contact.Contact{{
		UniqueID:  "FICHE_00001",
		Name:      "Boulangerie Paul",
		Phone:     "0142334455",
		CreatedAt: testNow.Add(-24 * time.Hour),
	}}
	fs.counter = 2
	svc := newTestService(t, fs)

	csv := "Nom,Tel\n" +
		"Paul (doublon),0142334455\n" +
		"Nouveau Client,0611223344\n"

	res := runImport(t, svc, "update.csv", csv, ImportOptions{Mode: reconcile.ModeNewOnly})

	if res.UniqueRows != 1 || res.Duplicates != 1 {
		t.Fatalf("unique %d dup %d, want 1/1", res.UniqueRows, res.Duplicates)
	}
	if res.DuplicatesByCause["Phone"] != 1 {
		t.Errorf("DuplicatesByCause = %v, want Phone:1", res.DuplicatesByCause)
	}
	if got := svc.ContactCount(); got != 2 {
		t.Errorf("snapshot size = %d, want 2", got)
	}
	// The duplicate never touched the stored record.
	for _, c := range svc.Contacts() {
		if c.UniqueID == "FICHE_00001" && c.Name != "Boulangerie Paul" {
			t.Errorf("existing record mutated in new-only mode: %q", c.Name)
		}
	}
}

func TestImportUpdateModeMergesIntoExisting(t *testing.T) {
	exportedAt := testNow.Add(-48 * time.Hour)
	fs := newFakeStore()
	fs.saved = []*contact.Contact{{
		UniqueID:       "FICHE_00001",
		Name:           "Boulangerie Paul",
		Phone:          "0142334455",
		CreatedAt:      testNow.Add(-24 * time.Hour),
		LastExportedAt: &exportedAt,
		ExportCount:    2,
	}}
	fs.counter = 2
	svc := newTestService(t, fs)

	csv := "Nom,Tel,Email\n" +
		"Boulangerie Paul,0142334455,paul@example.fr\n"

	res := runImport(t, svc, "enrichi.csv", csv, ImportOptions{Mode: reconcile.ModeUpdate})

	if res.Updated != 1 || res.Inserted != 0 {
		t.Fatalf("updated %d inserted %d, want 1/0", res.Updated, res.Inserted)
	}

	got := svc.Contacts()
	if len(got) != 1 {
		t.Fatalf("snapshot size = %d, want 1", len(got))
	}
	c := got[0]
	if c.Email != "paul@example.fr" {
		t.Errorf("email not merged: %q", c.Email)
	}
	if c.ExportCount != 2 || c.LastExportedAt == nil || !c.LastExportedAt.Equal(exportedAt) {
		t.Errorf("export bookkeeping lost on re-import: count %d at %v", c.ExportCount, c.LastExportedAt)
	}
	if !c.CreatedAt.Equal(testNow.Add(-24 * time.Hour)) {
		t.Errorf("CreatedAt changed on merge: %v", c.CreatedAt)
	}
}

func TestImportKeepExistingIDs(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	csv := "ID Fiche,Nom,Tel\n" +
		"CLI_42,Client Importé,0611223344\n" +
		",Sans Id,0499887766\n"

	res := runImport(t, svc, "reimport.csv", csv, ImportOptions{KeepExistingIDs: true})
	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}

	ids := make(map[string]bool)
	for _, c := range svc.Contacts() {
		ids[c.UniqueID] = true
	}
	if !ids["CLI_42"] {
		t.Errorf("file id CLI_42 not preserved, got %v", ids)
	}
	if !ids["FICHE_00001"] {
		t.Errorf("row without id did not get a generated id, got %v", ids)
	}
	if fs.counter != 2 {
		t.Errorf("counter = %d, want 2 (only one id generated)", fs.counter)
	}
}

func TestImportStoreFailureKeepsSnapshot(t *testing.T) {
	fs := newFakeStore()
	fs.saved = []*contact.Contact{{UniqueID: "FICHE_00001", Name: "Existant", Phone: "0101010101"}}
	fs.counter = 2
	svc := newTestService(t, fs)

	fs.failPut = true
	res := runImport(t, svc, "bad.csv", "Nom,Tel\nNouveau,0611223344\n", ImportOptions{})

	if res.Error == "" {
		t.Fatal("expected a failed result")
	}
	if res.UserMsg == nil || res.UserMsg.Code != "DB004" {
		t.Errorf("UserMsg = %+v, want code DB004", res.UserMsg)
	}
	if got := svc.ContactCount(); got != 1 {
		t.Errorf("snapshot size = %d after failed import, want 1", got)
	}
	if fs.counter != 2 {
		t.Errorf("counter advanced to %d despite failure", fs.counter)
	}
}

func TestImportRejectsOversizedFile(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	big := make([]byte, testConfig().Import.MaxFileSize+1)
	if _, err := svc.StartImport(context.Background(), "big.csv", big, ImportOptions{}); err == nil {
		t.Fatal("expected oversized file to be rejected")
	}
	// Rejection happens before the gate is taken.
	if svc.gate.Busy() {
		t.Error("gate left held after rejection")
	}
}

func TestImportMappingOverride(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	// "Contact" would never resolve to the name field on its own.
	csv := "Contact,Tel\nBoulangerie Paul,0142334455\n"
	res := runImport(t, svc, "custom.csv", csv, ImportOptions{
		Mapping: map[string]string{"name": "Contact"},
	})
	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}
	if got := svc.Contacts()[0].Name; got != "Boulangerie Paul" {
		t.Errorf("name = %q, want mapped value", got)
	}
}

// ---------------------------------------------------------------------------
// Preview
// ---------------------------------------------------------------------------

func TestPreviewCommitsNothing(t *testing.T) {
	fs := newFakeStore()
	fs.saved = []*contact.Contact{{UniqueID: "FICHE_00001", Name: "Existant", Phone: "0142334455"}}
	fs.counter = 2
	svc := newTestService(t, fs)

	csv := "Nom,Tel\n" +
		"Doublon,0142334455\n" +
		"Nouveau,0611223344\n"

	p, err := svc.Preview(context.Background(), "apercu.csv", []byte(csv), ImportOptions{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}

	if p.TotalRows != 2 || p.UniqueRows != 1 || p.Duplicates != 1 {
		t.Errorf("preview counts total %d unique %d dup %d, want 2/1/1", p.TotalRows, p.UniqueRows, p.Duplicates)
	}
	if p.Mapping["name"] != "Nom" || p.Mapping["phone"] != "Tel" {
		t.Errorf("mapping = %v", p.Mapping)
	}
	if len(p.SampleRows) != 2 {
		t.Errorf("sample rows = %d, want 2", len(p.SampleRows))
	}

	if fs.counter != 2 {
		t.Errorf("preview advanced the counter to %d", fs.counter)
	}
	if got := svc.ContactCount(); got != 1 {
		t.Errorf("preview changed the snapshot: %d contacts", got)
	}
}

// ---------------------------------------------------------------------------
// Snapshot mutations
// ---------------------------------------------------------------------------

func TestDeleteContactRemovesFromSnapshot(t *testing.T) {
	fs := newFakeStore()
	fs.saved = []*contact.Contact{
		{UniqueID: "FICHE_00001", Name: "Un", Phone: "0101010101"},
		{UniqueID: "FICHE_00002", Name: "Deux", Phone: "0202020202"},
	}
	svc := newTestService(t, fs)

	if err := svc.DeleteContact(context.Background(), "FICHE_00001"); err != nil {
		t.Fatalf("DeleteContact: %v", err)
	}
	got := svc.Contacts()
	if len(got) != 1 || got[0].UniqueID != "FICHE_00002" {
		t.Errorf("snapshot after delete = %v", got)
	}
	if len(fs.saved) != 1 {
		t.Errorf("store still holds %d records", len(fs.saved))
	}
}

func TestClearContactsPreservesCounter(t *testing.T) {
	fs := newFakeStore()
	fs.saved = []*contact.Contact{{UniqueID: "FICHE_00001", Name: "Un", Phone: "0101010101"}}
	fs.counter = 2
	svc := newTestService(t, fs)

	if err := svc.ClearContacts(context.Background()); err != nil {
		t.Fatalf("ClearContacts: %v", err)
	}
	if svc.ContactCount() != 0 {
		t.Error("snapshot not cleared")
	}
	if fs.counter != 2 {
		t.Errorf("counter reset to %d; deleted ids must never be reissued", fs.counter)
	}

	// The next import keeps numbering where it left off.
	res := runImport(t, svc, "apres.csv", "Nom,Tel\nNouveau,0611223344\n", ImportOptions{})
	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}
	if got := svc.Contacts()[0].UniqueID; got != "FICHE_00002" {
		t.Errorf("id after clear = %q, want FICHE_00002", got)
	}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

func TestUpdateSettings(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      Settings
		wantErr bool
	}{
		{"valid", Settings{IDPrefix: "CLIENT", StartPoint: "48.8566,2.3522"}, false},
		{"empty prefix", Settings{IDPrefix: "", StartPoint: ""}, true},
		{"bad start point", Settings{IDPrefix: "CLIENT", StartPoint: "paris"}, true},
		{"no start point", Settings{IDPrefix: "CLIENT"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.UpdateSettings(ctx, tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("UpdateSettings(%+v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}

	got, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.IDPrefix != "CLIENT" {
		t.Errorf("IDPrefix = %q, want CLIENT", got.IDPrefix)
	}
}

func TestCustomPrefixAppliesToNewRecords(t *testing.T) {
	fs := newFakeStore()
	fs.settings[store.KeyIDPrefix] = "CLIENT"
	svc := newTestService(t, fs)

	res := runImport(t, svc, "p.csv", "Nom,Tel\nNouveau,0611223344\n", ImportOptions{})
	if res.Error != "" {
		t.Fatalf("import failed: %s", res.Error)
	}
	if got := svc.Contacts()[0].UniqueID; !strings.HasPrefix(got, "CLIENT_") {
		t.Errorf("id = %q, want CLIENT_ prefix", got)
	}
}
