package enrich

import (
	"context"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// DefaultDelays are the per-provider pauses inserted after each record to
// respect external service rate limits. A deliberate self-throttle, not a
// retry mechanism.
var DefaultDelays = map[Kind]time.Duration{
	KindRegistry: 150 * time.Millisecond,
	KindGeocode:  100 * time.Millisecond,
	KindRoute:    200 * time.Millisecond,
}

// Progress reports how far through a batch the runner is. Emitted after
// every record, including skipped ones, so callers can render steady
// progress.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// RunResult summarizes a completed (or cancelled) batch.
type RunResult struct {
	Total     int
	Updated   int
	Skipped   int
	Cancelled bool
}

// Run enriches contacts strictly one at a time: each lookup completes before
// the next starts, with delay inserted between calls. The context is checked
// between records; cancelling stops the batch after the in-flight record and
// keeps the updates already applied. onProgress may be nil.
func Run(ctx context.Context, p Provider, contacts []*contact.Contact, delay time.Duration, onProgress func(Progress)) (RunResult, error) {
	res := RunResult{Total: len(contacts)}

	notify := func(current int) {
		if onProgress != nil {
			onProgress(Progress{Current: current, Total: res.Total, Updated: res.Updated, Skipped: res.Skipped})
		}
	}

	for i, c := range contacts {
		if ctx.Err() != nil {
			res.Cancelled = true
			return res, nil
		}

		if p.Skip(c) {
			res.Skipped++
			notify(i + 1)
			continue
		}

		changed, err := p.Enrich(ctx, c)
		if err != nil {
			// Only cancellation surfaces as an error from providers.
			res.Cancelled = true
			return res, nil
		}
		if changed {
			res.Updated++
		}
		notify(i + 1)

		if delay > 0 && i < len(contacts)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				res.Cancelled = true
				return res, nil
			}
		}
	}

	return res, nil
}
