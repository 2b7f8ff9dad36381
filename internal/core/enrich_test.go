package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/enrich"
	"github.com/contactdesk/contactdesk/internal/store"
)

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"registry", "geocode", "route"} {
		if _, err := ParseKind(valid); err != nil {
			t.Errorf("ParseKind(%q) = %v", valid, err)
		}
	}
	if _, err := ParseKind("dns"); err == nil {
		t.Error("ParseKind accepted an unknown kind")
	}
}

func TestRouteRequiresStartPoint(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(t, fs)

	if _, err := svc.StartEnrichment(context.Background(), enrich.KindRoute); err == nil {
		t.Fatal("route batch started without a configured start point")
	}
	if svc.gate.Busy() {
		t.Error("gate left held after rejected start")
	}

	fs.settings[store.KeyStartPoint] = "48.8566,2.3522"
	if _, err := svc.newProvider(context.Background(), enrich.KindRoute); err != nil {
		t.Errorf("newProvider with start point = %v", err)
	}
}

func TestGeocodeBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[{"geometry":{"coordinates":[2.3522,48.8566]}}]}`)
	}))
	defer srv.Close()

	lat, lon := 45.0, 5.0
	fs := newFakeStore()
	fs.saved = []*contact.Contact{
		{UniqueID: "FICHE_00001", Name: "A Géocoder", Phone: "0101010101", Address: "1 rue de Rivoli", City: "Paris", PostalCode: "75001"},
		{UniqueID: "FICHE_00002", Name: "Déjà Fait", Phone: "0202020202", Lat: &lat, Lon: &lon},
	}
	cfg := testConfig()
	cfg.Enrich.GeocodeURL = srv.URL
	svc := NewService(fs, cfg)
	svc.Now = func() time.Time { return testNow }
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	jobID, err := svc.StartEnrichment(context.Background(), enrich.KindGeocode)
	if err != nil {
		t.Fatalf("StartEnrichment: %v", err)
	}
	res, err := svc.WaitResult(jobID)
	if err != nil {
		t.Fatalf("WaitResult: %v", err)
	}

	if res.Error != "" {
		t.Fatalf("batch failed: %s", res.Error)
	}
	if res.TotalRows != 2 || res.Enriched != 1 || res.Skipped != 1 {
		t.Errorf("total %d enriched %d skipped %d, want 2/1/1", res.TotalRows, res.Enriched, res.Skipped)
	}

	got := svc.Contacts()
	first := got[0]
	if !first.HasGeo() || *first.Lat != 48.8566 || *first.Lon != 2.3522 {
		t.Errorf("coordinates not applied: lat %v lon %v", first.Lat, first.Lon)
	}
	if first.GeoStatus != enrich.GeoSuccess {
		t.Errorf("GeoStatus = %q, want %q", first.GeoStatus, enrich.GeoSuccess)
	}
	if got[1].GeoStatus != "" {
		t.Errorf("skipped record was touched: %q", got[1].GeoStatus)
	}

	// Batch results land in the store, not just the snapshot.
	if len(fs.saved) != 2 || fs.saved[0].Lat == nil {
		t.Error("enriched batch not persisted")
	}
}

func TestEnrichmentRejectsSecondBatch(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `{"features":[]}`)
	}))
	defer srv.Close()
	defer close(release)

	fs := newFakeStore()
	fs.saved = []*contact.Contact{{UniqueID: "FICHE_00001", Name: "Lent", Phone: "0101010101", City: "Paris"}}
	cfg := testConfig()
	cfg.Enrich.GeocodeURL = srv.URL
	svc := NewService(fs, cfg)
	svc.gate = NewBatchGate(1) // fail fast instead of waiting out the default
	if err := svc.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if _, err := svc.StartEnrichment(context.Background(), enrich.KindGeocode); err != nil {
		t.Fatalf("first StartEnrichment: %v", err)
	}
	if _, err := svc.StartEnrichment(context.Background(), enrich.KindGeocode); err == nil {
		t.Fatal("second batch started while the first held the gate")
	}
}
