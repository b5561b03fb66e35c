package ports

import (
	"context"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// ResultStore persists classification results and composite scores.
// Results are keyed by (record ID, prompt version): a version bump leaves
// old rows in place and makes every record eligible for reprocessing.
type ResultStore interface {
	// SaveClassifierResult upserts the result for its record and prompt
	// version. Terminal failures are stored too, stamped with their
	// failure kind, so reruns do not resubmit known-bad records.
	SaveClassifierResult(ctx context.Context, result domain.ClassifierResult) error

	// GetClassifierResult returns the stored result for the record under
	// the given prompt version. The bool reports whether a row exists.
	GetClassifierResult(ctx context.Context, recordID, promptVersion string) (domain.ClassifierResult, bool, error)

	// SaveCompositeScore upserts the fused score for a record.
	SaveCompositeScore(ctx context.Context, score domain.CompositeScore) error

	// GetCompositeScore returns the stored score for the record.
	// The bool reports whether a row exists.
	GetCompositeScore(ctx context.Context, recordID string) (domain.CompositeScore, bool, error)
}

// JobStore persists batch job state. Claims are compare-and-swap updates so
// concurrent orchestrators cannot double-process a job.
type JobStore interface {
	// CreateJob inserts a new job, failing if the ID already exists.
	CreateJob(ctx context.Context, job domain.BatchJob) error

	// ClaimJob atomically moves the job from one status to another.
	// It returns false when the job was not in the expected status,
	// meaning another worker claimed it first.
	ClaimJob(ctx context.Context, jobID string, from, to domain.BatchJobStatus) (bool, error)

	// UpdateJob overwrites the stored job state.
	UpdateJob(ctx context.Context, job domain.BatchJob) error

	// GetJob returns the job by ID. The bool reports whether it exists.
	GetJob(ctx context.Context, jobID string) (domain.BatchJob, bool, error)

	// ListJobsByStatus returns jobs currently in the given status,
	// ordered by creation time.
	ListJobsByStatus(ctx context.Context, status domain.BatchJobStatus) ([]domain.BatchJob, error)
}
