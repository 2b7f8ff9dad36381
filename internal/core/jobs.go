package core

// jobs.go tracks asynchronous batches. Each running import or enrichment
// is a job with a cancellable context, a progress snapshot fanned out to
// listener channels, and a result readable once Done closes. Finished jobs
// stay queryable for a grace period so late clients can fetch the result.

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// jobRetention is how long a finished job stays queryable.
const jobRetention = 5 * time.Minute

type job struct {
	ID       string
	Kind     JobKind
	FileName string
	Cancel   context.CancelFunc
	Result   *JobResult
	Done     chan struct{}

	progressMu sync.Mutex
	progress   JobProgress
	listeners  []chan JobProgress
}

// setProgress updates the snapshot and fans it out to listeners. Slow
// listeners miss intermediate updates rather than blocking the batch.
func (j *job) setProgress(p JobProgress) {
	j.progressMu.Lock()
	defer j.progressMu.Unlock()

	j.progress = p
	for _, ch := range j.listeners {
		select {
		case ch <- p:
		default:
		}
	}
}

// closeListeners closes all listener channels after the final update.
func (j *job) closeListeners() {
	j.progressMu.Lock()
	defer j.progressMu.Unlock()

	for _, ch := range j.listeners {
		close(ch)
	}
	j.listeners = nil
}

func (s *Service) registerJob(j *job) {
	s.jobMu.Lock()
	s.jobs[j.ID] = j
	s.jobMu.Unlock()
}

func (s *Service) lookupJob(jobID string) (*job, error) {
	s.jobMu.RLock()
	j, ok := s.jobs[jobID]
	s.jobMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return j, nil
}

// cleanupJob removes the job from tracking after the retention delay.
func (s *Service) cleanupJob(jobID string) {
	time.AfterFunc(jobRetention, func() {
		s.jobMu.Lock()
		delete(s.jobs, jobID)
		s.jobMu.Unlock()
	})
}

// finishJob records the result, pushes the terminal progress update and
// releases everything waiting on the job.
func (s *Service) finishJob(j *job, res *JobResult, final JobProgress) {
	j.Result = res
	j.setProgress(final)
	j.closeListeners()
	close(j.Done)
	s.cleanupJob(j.ID)
}

// SubscribeProgress returns a channel receiving progress updates for the
// job. The current state is delivered immediately; the channel closes when
// the job completes.
func (s *Service) SubscribeProgress(jobID string) (<-chan JobProgress, error) {
	j, err := s.lookupJob(jobID)
	if err != nil {
		return nil, err
	}

	ch := make(chan JobProgress, 10)

	j.progressMu.Lock()
	current := j.progress
	if current.Phase.Terminal() {
		// Job already finished; deliver the final state and close.
		j.progressMu.Unlock()
		ch <- current
		close(ch)
		return ch, nil
	}
	j.listeners = append(j.listeners, ch)
	select {
	case ch <- current:
	default:
	}
	j.progressMu.Unlock()

	return ch, nil
}

// JobProgressSnapshot returns the current progress without blocking.
func (s *Service) JobProgressSnapshot(jobID string) (JobProgress, error) {
	j, err := s.lookupJob(jobID)
	if err != nil {
		return JobProgress{}, err
	}

	j.progressMu.Lock()
	defer j.progressMu.Unlock()
	return j.progress, nil
}

// CancelJob requests cancellation of a running job. The batch stops after
// the record in flight; completed work is kept.
func (s *Service) CancelJob(jobID string) error {
	j, err := s.lookupJob(jobID)
	if err != nil {
		return err
	}
	j.Cancel()
	return nil
}

// WaitResult blocks until the job completes and returns its result.
func (s *Service) WaitResult(jobID string) (*JobResult, error) {
	j, err := s.lookupJob(jobID)
	if err != nil {
		return nil, err
	}
	<-j.Done
	return j.Result, nil
}
