package domain

import "time"

// BatchJobStatus is the lifecycle state of one batch submission.
type BatchJobStatus string

const (
	// BatchPending means the job is created but not yet submitted.
	BatchPending BatchJobStatus = "pending"

	// BatchSubmitted means the provider accepted the batch.
	BatchSubmitted BatchJobStatus = "submitted"

	// BatchPolling means the orchestrator is waiting for the provider to
	// finish processing.
	BatchPolling BatchJobStatus = "polling"

	// BatchCompleted means every record has a success or an
	// exhausted-retry failure.
	BatchCompleted BatchJobStatus = "completed"

	// BatchFailed means the provider reported the batch itself failed,
	// as opposed to individual items failing.
	BatchFailed BatchJobStatus = "failed"
)

// batchTransitions encodes the legal state machine. The polling → pending
// edge re-queues a job for a same-mode retry after a transient batch failure
// or a poll-ceiling timeout.
var batchTransitions = map[BatchJobStatus][]BatchJobStatus{
	BatchPending:   {BatchSubmitted},
	BatchSubmitted: {BatchPolling, BatchFailed},
	BatchPolling:   {BatchCompleted, BatchFailed, BatchPending},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s BatchJobStatus) CanTransition(next BatchJobStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the job's lifecycle.
func (s BatchJobStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchFailed
}

// SubmissionMode records which classifier path resolved an item.
type SubmissionMode string

const (
	// ModeBatch marks items resolved by the original batch submission.
	ModeBatch SubmissionMode = "batch"

	// ModeDirect marks items resolved by the direct-mode fallback.
	ModeDirect SubmissionMode = "direct"
)

// ItemOutcome is the final disposition of one record within a batch job.
type ItemOutcome struct {
	// RecordID identifies the change record.
	RecordID string `json:"record_id"`

	// Failure is the taxonomy value for failed items; zero on success.
	Failure FailureKind `json:"failure,omitempty"`

	// Attempts counts submissions made for this record, across modes.
	Attempts int `json:"attempts"`

	// Mode records which path produced the final outcome.
	Mode SubmissionMode `json:"mode,omitempty"`
}

// Succeeded reports whether the item ended with a valid classification.
func (o ItemOutcome) Succeeded() bool { return o.Failure == FailureNone }

// BatchJob tracks one batch submission from creation to terminal state.
// Only the orchestrator mutates a job, and claiming a pending job for
// processing is an atomic compare-and-set on Status.
type BatchJob struct {
	// ID uniquely identifies this job (a UUID).
	ID string `json:"id"`

	// RecordIDs lists the change records submitted in this job.
	RecordIDs []string `json:"record_ids"`

	// Status is the job's current lifecycle state.
	Status BatchJobStatus `json:"status"`

	// ProviderBatchID is the provider-side handle once submitted.
	ProviderBatchID string `json:"provider_batch_id,omitempty"`

	// Outcomes maps record id to its final disposition.
	Outcomes map[string]ItemOutcome `json:"outcomes,omitempty"`

	// RetryCount counts same-mode resubmissions of the whole job.
	RetryCount int `json:"retry_count"`

	// CreatedAt and UpdatedAt bound the job's lifetime for monitoring.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutcomeCounts summarizes per-item outcomes for operational monitoring.
type OutcomeCounts struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

// CountOutcomes tallies item dispositions. Records without an outcome yet
// are counted as pending.
func (j BatchJob) CountOutcomes() OutcomeCounts {
	var counts OutcomeCounts
	for _, id := range j.RecordIDs {
		outcome, ok := j.Outcomes[id]
		switch {
		case !ok:
			counts.Pending++
		case outcome.Succeeded():
			counts.Succeeded++
		default:
			counts.Failed++
		}
	}
	return counts
}
