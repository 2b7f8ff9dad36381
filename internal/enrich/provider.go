// Package enrich augments contact records from three external lookup
// services: the company registry, address geocoding, and driving-route
// calculation. Each provider is independent of reconciliation and maps its
// own failures to a status field instead of propagating them, so one bad
// record never aborts a batch.
package enrich

import (
	"context"
	"net/http"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// Kind identifies an enrichment pass.
type Kind string

const (
	KindRegistry Kind = "registry"
	KindGeocode  Kind = "geocode"
	KindRoute    Kind = "route"
)

// Provider enriches one record in place. The boolean reports whether the
// record changed and needs persisting. Errors are reserved for conditions
// that invalidate the whole pass (a cancelled context); lookup failures are
// written into the record's status field and return nil.
type Provider interface {
	Kind() Kind
	// Skip reports whether the record needs no lookup (already enriched,
	// or missing the inputs the lookup requires).
	Skip(c *contact.Contact) bool
	Enrich(ctx context.Context, c *contact.Contact) (bool, error)
}

// newHTTPClient builds the shared client for provider calls: bounded
// timeout, pooled connections.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
