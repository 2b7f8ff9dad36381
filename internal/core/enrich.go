package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/enrich"
	"github.com/contactdesk/contactdesk/internal/logging"
	"github.com/contactdesk/contactdesk/internal/store"
)

// ParseKind maps a request parameter to an enrichment kind.
func ParseKind(s string) (enrich.Kind, error) {
	switch enrich.Kind(s) {
	case enrich.KindRegistry, enrich.KindGeocode, enrich.KindRoute:
		return enrich.Kind(s), nil
	default:
		return "", fmt.Errorf("unknown enrichment kind: %q", s)
	}
}

// newProvider builds the lookup provider for a kind from configuration and
// settings.
func (s *Service) newProvider(ctx context.Context, kind enrich.Kind) (enrich.Provider, error) {
	switch kind {
	case enrich.KindRegistry:
		return enrich.NewRegistryProvider(s.enrich.RegistryURL, s.enrich.HTTPTimeout), nil

	case enrich.KindGeocode:
		return enrich.NewGeocodeProvider(s.enrich.GeocodeURL, s.enrich.HTTPTimeout), nil

	case enrich.KindRoute:
		raw, err := s.store.Setting(ctx, store.KeyStartPoint)
		if err != nil {
			return nil, err
		}
		if raw == "" {
			return nil, fmt.Errorf("start point not configured: set it in settings before computing routes")
		}
		start, err := enrich.ParseStartPoint(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid start point: %w", err)
		}
		return enrich.NewRouteProvider(s.enrich.RouteURL, start, s.enrich.HTTPTimeout), nil

	default:
		return nil, fmt.Errorf("unknown enrichment kind: %q", kind)
	}
}

// delayFor returns the configured per-record pause for a kind.
func (s *Service) delayFor(kind enrich.Kind) time.Duration {
	switch kind {
	case enrich.KindRegistry:
		return s.enrich.RegistryDelay
	case enrich.KindGeocode:
		return s.enrich.GeocodeDelay
	case enrich.KindRoute:
		return s.enrich.RouteDelay
	default:
		return 0
	}
}

// StartEnrichment begins an asynchronous enrichment batch over the whole
// contact base. Records the provider elects to skip are counted, not
// touched. Returns the job id immediately.
//
// Returns ErrBatchInProgress if another batch holds the writer slot.
func (s *Service) StartEnrichment(ctx context.Context, kind enrich.Kind) (string, error) {
	provider, err := s.newProvider(ctx, kind)
	if err != nil {
		return "", err
	}

	if err := s.gate.Acquire(ctx); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), s.enrich.Timeout)

	j := &job{
		ID:     jobID,
		Kind:   JobEnrich,
		Cancel: cancel,
		Done:   make(chan struct{}),
		progress: JobProgress{
			JobID:    jobID,
			Kind:     JobEnrich,
			Phase:    PhaseStarting,
			Provider: string(kind),
		},
	}
	s.registerJob(j)

	go func() {
		defer s.gate.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in enrichment",
					"job_id", jobID,
					"provider", kind,
					"panic", r,
				)
				err := fmt.Errorf("internal error: %v", r)
				s.finishJob(j, s.failedResult(j, err), JobProgress{
					JobID: jobID, Kind: JobEnrich, Phase: PhaseFailed,
					Provider: string(kind), Error: err.Error(),
				})
			}
		}()
		s.processEnrichment(jobCtx, j, kind, provider)
	}()

	return jobID, nil
}

func (s *Service) processEnrichment(ctx context.Context, j *job, kind enrich.Kind, provider enrich.Provider) {
	started := time.Now()
	log := logging.WithFields(ctx, "job_id", j.ID, "provider", kind)

	fail := func(err error) {
		log.Error("enrichment failed", "error", err)
		s.finishJob(j, s.failedResult(j, err), JobProgress{
			JobID: j.ID, Kind: JobEnrich, Phase: PhaseFailed,
			Provider: string(kind), Error: err.Error(),
		})
	}

	// Work on value copies so in-flight lookups never show half-written
	// records to readers. The snapshot swaps in one step at the end.
	s.mu.RLock()
	batch := make([]*contact.Contact, len(s.contacts))
	for i, c := range s.contacts {
		cp := *c
		batch[i] = &cp
	}
	s.mu.RUnlock()

	res, err := enrich.Run(ctx, provider, batch, s.delayFor(kind), func(p enrich.Progress) {
		j.setProgress(JobProgress{
			JobID:    j.ID,
			Kind:     JobEnrich,
			Phase:    PhaseEnriching,
			Provider: string(kind),
			Current:  p.Current,
			Total:    p.Total,
			Updated:  p.Updated,
			Skipped:  p.Skipped,
		})
	})
	if err != nil {
		fail(err)
		return
	}

	j.setProgress(JobProgress{
		JobID: j.ID, Kind: JobEnrich, Phase: PhaseSaving,
		Provider: string(kind), Current: res.Total, Total: res.Total,
		Updated: res.Updated, Skipped: res.Skipped,
	})

	// A cancelled batch still commits the records enriched so far.
	if err := s.store.PutContacts(context.WithoutCancel(ctx), batch); err != nil {
		fail(err)
		return
	}

	s.mu.Lock()
	s.contacts = batch
	s.mu.Unlock()

	result := &JobResult{
		JobID:     j.ID,
		Kind:      JobEnrich,
		Provider:  string(kind),
		TotalRows: res.Total,
		Enriched:  res.Updated,
		Skipped:   res.Skipped,
		Cancelled: res.Cancelled,
		Duration:  time.Since(started),
	}

	phase := PhaseComplete
	if res.Cancelled {
		phase = PhaseCancelled
	}
	log.Info("enrichment finished",
		"total", res.Total,
		"enriched", res.Updated,
		"skipped", res.Skipped,
		"cancelled", res.Cancelled,
		"duration", result.Duration,
	)

	s.finishJob(j, result, JobProgress{
		JobID: j.ID, Kind: JobEnrich, Phase: phase,
		Provider: string(kind), Current: res.Total, Total: res.Total,
		Updated: res.Updated, Skipped: res.Skipped,
	})
}
