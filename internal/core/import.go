package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/contactdesk/contactdesk/internal/contact"
	"github.com/contactdesk/contactdesk/internal/logging"
	"github.com/contactdesk/contactdesk/internal/reconcile"
	"github.com/contactdesk/contactdesk/internal/spreadsheet"
	"github.com/contactdesk/contactdesk/internal/store"
)

// ImportOptions control how an uploaded file is folded into the contact
// base.
type ImportOptions struct {
	// Mode selects which records survive reconciliation.
	Mode reconcile.Mode

	// KeepExistingIDs preserves identifiers found in the file instead of
	// generating fresh ones.
	KeepExistingIDs bool

	// Mapping overrides the automatic header resolution: field name to
	// exact header. An empty header drops the field.
	Mapping map[string]string
}

// StartImport begins an asynchronous import. Returns the job id
// immediately; use SubscribeProgress and WaitResult to follow it.
//
// Returns ErrBatchInProgress if another batch holds the writer slot.
func (s *Service) StartImport(ctx context.Context, fileName string, data []byte, opts ImportOptions) (string, error) {
	if int64(len(data)) > s.imp.MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (limit %d)", len(data), s.imp.MaxFileSize)
	}
	if opts.Mode == "" {
		opts.Mode = reconcile.ModeNewOnly
	}

	if err := s.gate.Acquire(ctx); err != nil {
		return "", err
	}

	jobID := uuid.New().String()
	jobCtx, cancel := context.WithTimeout(context.Background(), s.imp.Timeout)

	j := &job{
		ID:       jobID,
		Kind:     JobImport,
		FileName: fileName,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		progress: JobProgress{
			JobID:    jobID,
			Kind:     JobImport,
			Phase:    PhaseStarting,
			FileName: fileName,
		},
	}
	s.registerJob(j)

	go func() {
		defer s.gate.Release()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in import",
					"job_id", jobID,
					"file", fileName,
					"panic", r,
				)
				err := fmt.Errorf("internal error: %v", r)
				s.finishJob(j, s.failedResult(j, err), JobProgress{
					JobID: jobID, Kind: JobImport, Phase: PhaseFailed,
					FileName: fileName, Error: err.Error(),
				})
			}
		}()
		s.processImport(jobCtx, j, data, opts)
	}()

	return jobID, nil
}

func (s *Service) processImport(ctx context.Context, j *job, data []byte, opts ImportOptions) {
	started := time.Now()
	log := logging.WithFields(ctx, "job_id", j.ID, "file", j.FileName)

	fail := func(err error) {
		log.Error("import failed", "error", err)
		s.finishJob(j, s.failedResult(j, err), JobProgress{
			JobID: j.ID, Kind: JobImport, Phase: PhaseFailed,
			FileName: j.FileName, Error: err.Error(),
		})
	}
	cancelled := func(res *JobResult) {
		log.Info("import cancelled")
		res.Cancelled = true
		res.Duration = time.Since(started)
		s.finishJob(j, res, JobProgress{
			JobID: j.ID, Kind: JobImport, Phase: PhaseCancelled,
			FileName: j.FileName,
		})
	}

	j.setProgress(JobProgress{JobID: j.ID, Kind: JobImport, Phase: PhaseReading, FileName: j.FileName})

	f, err := spreadsheet.Decode(data)
	if err != nil {
		fail(err)
		return
	}
	if len(f.Rows) > s.imp.MaxRows {
		fail(fmt.Errorf("file has too many rows: %d (limit %d)", len(f.Rows), s.imp.MaxRows))
		return
	}

	mapping := contact.ResolveHeaders(f.Headers)
	applyMappingOverride(mapping, opts.Mapping)

	prefix, err := s.store.IDPrefix(ctx)
	if err != nil {
		fail(err)
		return
	}
	counter, err := s.store.IDCounter(ctx)
	if err != nil {
		fail(err)
		return
	}

	builder := contact.Builder{Prefix: prefix, Now: s.Now}
	total := len(f.Rows)
	candidates := make([]*contact.Contact, 0, total)

	for i, row := range f.Rows {
		if ctx.Err() != nil {
			// Nothing has been persisted yet; the batch simply stops.
			cancelled(&JobResult{JobID: j.ID, Kind: JobImport, FileName: j.FileName, Mode: string(opts.Mode), TotalRows: total})
			return
		}

		c, generated := builder.Build(row, mapping, j.FileName, counter, opts.KeepExistingIDs)
		if c.IsEmpty() {
			continue
		}
		if generated {
			counter++
		}
		candidates = append(candidates, c)

		if (i+1)%100 == 0 || i+1 == total {
			j.setProgress(JobProgress{
				JobID: j.ID, Kind: JobImport, Phase: PhaseBuilding,
				FileName: j.FileName, Current: i + 1, Total: total,
			})
		}
	}

	j.setProgress(JobProgress{JobID: j.ID, Kind: JobImport, Phase: PhaseReconciling, FileName: j.FileName, Current: total, Total: total})

	existing := s.Contacts()
	res := reconcile.Classify(existing, candidates)

	now := s.Now()
	merged := reconcile.Merge(existing, candidates, res, opts.Mode, now)

	result := &JobResult{
		JobID:             j.ID,
		Kind:              JobImport,
		FileName:          j.FileName,
		Mode:              string(opts.Mode),
		TotalRows:         total,
		UniqueRows:        len(res.Unique),
		Duplicates:        len(res.Duplicates),
		Inserted:          len(merged) - len(existing),
		DuplicatesByCause: causeBreakdown(res.Duplicates),
	}
	if opts.Mode == reconcile.ModeUpdate {
		result.Updated = len(res.Duplicates)
	}

	if ctx.Err() != nil {
		cancelled(result)
		return
	}

	j.setProgress(JobProgress{JobID: j.ID, Kind: JobImport, Phase: PhaseSaving, FileName: j.FileName, Current: total, Total: total})

	// Persist before swapping the snapshot: if the store rejects the
	// batch, the in-memory state stays untouched.
	if err := s.store.PutContacts(ctx, merged); err != nil {
		fail(err)
		return
	}
	if err := s.store.SetIDCounter(ctx, counter); err != nil {
		fail(err)
		return
	}
	if err := s.store.AppendImport(ctx, &store.ImportEvent{
		FileName:   j.FileName,
		Mode:       string(opts.Mode),
		TotalRows:  total,
		UniqueRows: len(res.Unique),
		Duplicates: len(res.Duplicates),
		ImportedAt: now,
	}); err != nil {
		// History is advisory; the batch itself already committed.
		log.Warn("record import history", "error", err)
	}

	s.mu.Lock()
	s.contacts = merged
	s.mu.Unlock()

	result.Duration = time.Since(started)
	log.Info("import complete",
		"mode", opts.Mode,
		"total", total,
		"unique", result.UniqueRows,
		"duplicates", result.Duplicates,
		"inserted", result.Inserted,
		"duration", result.Duration,
	)

	s.finishJob(j, result, JobProgress{
		JobID: j.ID, Kind: JobImport, Phase: PhaseComplete,
		FileName: j.FileName, Current: total, Total: total,
	})
}

func (s *Service) failedResult(j *job, err error) *JobResult {
	msg := MapError(err)
	return &JobResult{
		JobID:    j.ID,
		Kind:     j.Kind,
		FileName: j.FileName,
		Error:    err.Error(),
		UserMsg:  &msg,
	}
}

// applyMappingOverride folds user corrections into the resolved mapping.
func applyMappingOverride(mapping contact.Mapping, override map[string]string) {
	for field, header := range override {
		if header == "" {
			delete(mapping, contact.Field(field))
			continue
		}
		mapping[contact.Field(field)] = header
	}
}

func causeBreakdown(matches []reconcile.Match) map[string]int {
	if len(matches) == 0 {
		return nil
	}
	out := make(map[string]int)
	for _, m := range matches {
		out[string(m.Cause)]++
	}
	return out
}

// PreviewResult describes how a file would import without committing
// anything.
type PreviewResult struct {
	Headers    []string          `json:"headers"`
	Mapping    map[string]string `json:"mapping"`
	TotalRows  int               `json:"totalRows"`
	SampleRows []contact.Row     `json:"sampleRows"`

	UniqueRows        int            `json:"uniqueRows"`
	Duplicates        int            `json:"duplicates"`
	DuplicatesByCause map[string]int `json:"duplicatesByCause,omitempty"`
}

// previewSampleSize is how many raw rows a preview returns.
const previewSampleSize = 5

// Preview decodes a file, resolves its headers and classifies its rows
// against the current base. No ids are consumed and nothing is stored.
func (s *Service) Preview(ctx context.Context, fileName string, data []byte, opts ImportOptions) (*PreviewResult, error) {
	f, err := spreadsheet.Decode(data)
	if err != nil {
		return nil, err
	}

	mapping := contact.ResolveHeaders(f.Headers)
	applyMappingOverride(mapping, opts.Mapping)

	prefix, err := s.store.IDPrefix(ctx)
	if err != nil {
		return nil, err
	}
	counter, err := s.store.IDCounter(ctx)
	if err != nil {
		return nil, err
	}

	builder := contact.Builder{Prefix: prefix, Now: s.Now}
	candidates := make([]*contact.Contact, 0, len(f.Rows))
	for _, row := range f.Rows {
		c, generated := builder.Build(row, mapping, fileName, counter, opts.KeepExistingIDs)
		if c.IsEmpty() {
			continue
		}
		if generated {
			counter++
		}
		candidates = append(candidates, c)
	}

	res := reconcile.Classify(s.Contacts(), candidates)

	sample := f.Rows
	if len(sample) > previewSampleSize {
		sample = sample[:previewSampleSize]
	}

	mappingOut := make(map[string]string, len(mapping))
	for field, header := range mapping {
		mappingOut[string(field)] = header
	}

	return &PreviewResult{
		Headers:           f.Headers,
		Mapping:           mappingOut,
		TotalRows:         len(f.Rows),
		SampleRows:        sample,
		UniqueRows:        len(res.Unique),
		Duplicates:        len(res.Duplicates),
		DuplicatesByCause: causeBreakdown(res.Duplicates),
	}, nil
}
