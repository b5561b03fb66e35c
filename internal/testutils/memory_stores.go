package testutils

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

type resultKey struct {
	recordID      string
	promptVersion string
}

// MemoryResultStore is an in-memory ports.ResultStore. It deep-copies
// nothing because classifier results and composite scores are treated as
// immutable by every caller; failure injection covers the error paths the
// sqlite store can hit.
type MemoryResultStore struct {
	mu sync.RWMutex

	results map[resultKey]domain.ClassifierResult
	scores  map[string]domain.CompositeScore

	saveResultErr error
	getResultErr  error
	saveScoreErr  error
}

// NewMemoryResultStore creates an empty result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		results: make(map[resultKey]domain.ClassifierResult),
		scores:  make(map[string]domain.CompositeScore),
	}
}

// FailSaveResult makes SaveClassifierResult return err.
func (s *MemoryResultStore) FailSaveResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveResultErr = err
}

// FailGetResult makes GetClassifierResult return err.
func (s *MemoryResultStore) FailGetResult(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getResultErr = err
}

// FailSaveScore makes SaveCompositeScore return err.
func (s *MemoryResultStore) FailSaveScore(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveScoreErr = err
}

// SaveClassifierResult upserts the result keyed by record and prompt version.
func (s *MemoryResultStore) SaveClassifierResult(ctx context.Context, result domain.ClassifierResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveResultErr != nil {
		return s.saveResultErr
	}
	if result.RecordID == "" {
		return ports.NewStorageError("", "save_classifier_result", domain.ErrMissingRecordID)
	}
	s.results[resultKey{result.RecordID, result.PromptVersion}] = result
	return nil
}

// GetClassifierResult returns the stored result for the version, if any.
func (s *MemoryResultStore) GetClassifierResult(ctx context.Context, recordID, promptVersion string) (domain.ClassifierResult, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.getResultErr != nil {
		return domain.ClassifierResult{}, false, s.getResultErr
	}
	result, ok := s.results[resultKey{recordID, promptVersion}]
	return result, ok, nil
}

// SaveCompositeScore upserts the record's fused score.
func (s *MemoryResultStore) SaveCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveScoreErr != nil {
		return s.saveScoreErr
	}
	if score.ChangeRecordID == "" {
		return ports.NewStorageError("", "save_composite_score", domain.ErrMissingRecordID)
	}
	s.scores[score.ChangeRecordID] = score
	return nil
}

// GetCompositeScore returns the record's stored score, if any.
func (s *MemoryResultStore) GetCompositeScore(ctx context.Context, recordID string) (domain.CompositeScore, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[recordID]
	return score, ok, nil
}

// ResultCount returns how many classifier results are stored.
func (s *MemoryResultStore) ResultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// ScoreCount returns how many composite scores are stored.
func (s *MemoryResultStore) ScoreCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// MemoryJobStore is an in-memory ports.JobStore. ClaimJob performs the
// compare-and-set under the store mutex, giving the same single-winner
// guarantee the sqlite store provides.
type MemoryJobStore struct {
	mu sync.Mutex

	jobs map[string]domain.BatchJob

	createErr error
	updateErr error
	claimErr  error
}

// NewMemoryJobStore creates an empty job store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]domain.BatchJob)}
}

// FailCreate makes CreateJob return err.
func (s *MemoryJobStore) FailCreate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

// FailUpdate makes UpdateJob return err.
func (s *MemoryJobStore) FailUpdate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateErr = err
}

// FailClaim makes ClaimJob return err.
func (s *MemoryJobStore) FailClaim(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claimErr = err
}

// CreateJob inserts the job, failing on a duplicate ID.
func (s *MemoryJobStore) CreateJob(ctx context.Context, job domain.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.jobs[job.ID]; exists {
		return ports.NewStorageError(job.ID, "create_job", errors.New("job already exists"))
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// ClaimJob atomically moves the job between statuses, reporting false when
// the job is absent or not in the expected status.
func (s *MemoryJobStore) ClaimJob(ctx context.Context, jobID string, from, to domain.BatchJobStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimErr != nil {
		return false, s.claimErr
	}
	job, ok := s.jobs[jobID]
	if !ok || job.Status != from {
		return false, nil
	}
	job.Status = to
	s.jobs[jobID] = job
	return true, nil
}

// UpdateJob overwrites the stored job.
func (s *MemoryJobStore) UpdateJob(ctx context.Context, job domain.BatchJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}
	if _, exists := s.jobs[job.ID]; !exists {
		return ports.NewStorageError(job.ID, "update_job", errors.New("job not found"))
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob returns a copy of the stored job.
func (s *MemoryJobStore) GetJob(ctx context.Context, jobID string) (domain.BatchJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return domain.BatchJob{}, false, nil
	}
	return cloneJob(job), true, nil
}

// ListJobsByStatus returns jobs in the given status ordered by creation time.
func (s *MemoryJobStore) ListJobsByStatus(ctx context.Context, status domain.BatchJobStatus) ([]domain.BatchJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var jobs []domain.BatchJob
	for _, job := range s.jobs {
		if job.Status == status {
			jobs = append(jobs, cloneJob(job))
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	return jobs, nil
}

// Job returns a copy of the stored job for assertions, panicking when the
// job does not exist so test failures point at the lookup.
func (s *MemoryJobStore) Job(jobID string) domain.BatchJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		panic("testutils: job not found: " + jobID)
	}
	return cloneJob(job)
}

// JobCount returns how many jobs are stored.
func (s *MemoryJobStore) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// cloneJob copies the job's slices and maps so store state never aliases
// a caller's job value. Aliasing would hide missing UpdateJob calls.
func cloneJob(job domain.BatchJob) domain.BatchJob {
	clone := job
	clone.RecordIDs = append([]string(nil), job.RecordIDs...)
	if job.Outcomes != nil {
		clone.Outcomes = make(map[string]domain.ItemOutcome, len(job.Outcomes))
		for id, outcome := range job.Outcomes {
			clone.Outcomes[id] = outcome
		}
	}
	return clone
}

// Verify interface compliance at compile time.
var (
	_ ports.ResultStore = (*MemoryResultStore)(nil)
	_ ports.JobStore    = (*MemoryJobStore)(nil)
)
