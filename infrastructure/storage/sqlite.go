// Package storage persists classification results, composite scores, and
// batch job state in SQLite. A single file serves one pipeline deployment;
// WAL mode keeps readers unblocked while the orchestrator writes.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var (
	_ ports.ResultStore = (*Store)(nil)
	_ ports.JobStore    = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS classifier_results (
	record_id      TEXT NOT NULL,
	prompt_version TEXT NOT NULL,
	is_ai_assisted INTEGER NOT NULL,
	confidence     REAL NOT NULL,
	tool           TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL DEFAULT '',
	raw_response   TEXT NOT NULL DEFAULT '',
	failure        TEXT NOT NULL DEFAULT '',
	provider       TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	PRIMARY KEY (record_id, prompt_version)
);

CREATE TABLE IF NOT EXISTS composite_scores (
	record_id  TEXT PRIMARY KEY,
	score      REAL NOT NULL,
	label      TEXT NOT NULL,
	breakdown  TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_jobs (
	job_id            TEXT PRIMARY KEY,
	status            TEXT NOT NULL,
	provider_batch_id TEXT NOT NULL DEFAULT '',
	record_ids        TEXT NOT NULL,
	outcomes          TEXT NOT NULL DEFAULT '{}',
	retry_count       INTEGER NOT NULL DEFAULT 0,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status, created_at);
`

// Store is a SQLite-backed ResultStore and JobStore.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	// Job claims contend across orchestrator workers; give writers a grace
	// period instead of failing on SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveClassifierResult upserts the result keyed by (record id, prompt
// version). A prompt version bump therefore leaves prior rows in place and
// makes every record eligible for reprocessing under the new version.
func (s *Store) SaveClassifierResult(ctx context.Context, result domain.ClassifierResult) error {
	if result.RecordID == "" {
		return ports.NewStorageError("", "save_classifier_result", domain.ErrMissingRecordID)
	}
	if result.PromptVersion == "" {
		return ports.NewStorageError(result.RecordID, "save_classifier_result",
			errors.New("missing prompt version"))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classifier_results
		 (record_id, prompt_version, is_ai_assisted, confidence, tool, category,
		  raw_response, failure, provider, model, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(record_id, prompt_version) DO UPDATE SET
		  is_ai_assisted = excluded.is_ai_assisted,
		  confidence     = excluded.confidence,
		  tool           = excluded.tool,
		  category       = excluded.category,
		  raw_response   = excluded.raw_response,
		  failure        = excluded.failure,
		  provider       = excluded.provider,
		  model          = excluded.model,
		  created_at     = excluded.created_at`,
		result.RecordID, result.PromptVersion, boolToInt(result.IsAIAssisted),
		result.Confidence, result.Tool, result.Category, result.RawResponse,
		string(result.Failure), result.Provider, result.Model,
		result.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ports.NewStorageError(result.RecordID, "save_classifier_result", err)
	}
	return nil
}

// GetClassifierResult returns the stored result for the record under the
// given prompt version. The bool reports whether a row exists.
func (s *Store) GetClassifierResult(ctx context.Context, recordID, promptVersion string) (domain.ClassifierResult, bool, error) {
	var (
		result     domain.ClassifierResult
		isAI       int
		failure    string
		createdStr string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT record_id, prompt_version, is_ai_assisted, confidence, tool,
		        category, raw_response, failure, provider, model, created_at
		 FROM classifier_results WHERE record_id = ? AND prompt_version = ?`,
		recordID, promptVersion,
	).Scan(&result.RecordID, &result.PromptVersion, &isAI, &result.Confidence,
		&result.Tool, &result.Category, &result.RawResponse, &failure,
		&result.Provider, &result.Model, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ClassifierResult{}, false, nil
	}
	if err != nil {
		return domain.ClassifierResult{}, false, ports.NewStorageError(recordID, "get_classifier_result", err)
	}

	result.IsAIAssisted = isAI != 0
	result.Failure = domain.FailureKind(failure)
	result.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return result, true, nil
}

// SaveCompositeScore upserts the fused score for a record. The breakdown is
// stored as JSON so reporting can replay the explanation without recomputing.
func (s *Store) SaveCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	if score.ChangeRecordID == "" {
		return ports.NewStorageError("", "save_composite_score", domain.ErrMissingRecordID)
	}

	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return ports.NewStorageError(score.ChangeRecordID, "save_composite_score", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO composite_scores (record_id, score, label, breakdown, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(record_id) DO UPDATE SET
		  score      = excluded.score,
		  label      = excluded.label,
		  breakdown  = excluded.breakdown,
		  updated_at = excluded.updated_at`,
		score.ChangeRecordID, score.Score, string(score.Label), string(breakdown),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ports.NewStorageError(score.ChangeRecordID, "save_composite_score", err)
	}
	return nil
}

// GetCompositeScore returns the stored score for the record. The bool
// reports whether a row exists.
func (s *Store) GetCompositeScore(ctx context.Context, recordID string) (domain.CompositeScore, bool, error) {
	var (
		score         domain.CompositeScore
		label         string
		breakdownJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT record_id, score, label, breakdown FROM composite_scores WHERE record_id = ?`,
		recordID,
	).Scan(&score.ChangeRecordID, &score.Score, &label, &breakdownJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CompositeScore{}, false, nil
	}
	if err != nil {
		return domain.CompositeScore{}, false, ports.NewStorageError(recordID, "get_composite_score", err)
	}

	score.Label = domain.ScoreLabel(label)
	if err := json.Unmarshal([]byte(breakdownJSON), &score.Breakdown); err != nil {
		return domain.CompositeScore{}, false, ports.NewStorageError(recordID, "get_composite_score", err)
	}
	return score, true, nil
}

// CreateJob inserts a new job, failing if the ID already exists.
func (s *Store) CreateJob(ctx context.Context, job domain.BatchJob) error {
	recordIDs, outcomes, err := marshalJobBlobs(job)
	if err != nil {
		return ports.NewStorageError(job.ID, "create_job", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batch_jobs
		 (job_id, status, provider_batch_id, record_ids, outcomes, retry_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), job.ProviderBatchID, recordIDs, outcomes,
		job.RetryCount,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return ports.NewStorageError(job.ID, "create_job", err)
	}
	return nil
}

// ClaimJob atomically moves the job from one status to another. The claim is
// a compare-and-set on the status column: it returns false when the job was
// not in the expected status, meaning another worker got there first.
func (s *Store) ClaimJob(ctx context.Context, jobID string, from, to domain.BatchJobStatus) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET status = ?, updated_at = ? WHERE job_id = ? AND status = ?`,
		string(to), time.Now().UTC().Format(time.RFC3339Nano), jobID, string(from),
	)
	if err != nil {
		return false, ports.NewStorageError(jobID, "claim_job", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, ports.NewStorageError(jobID, "claim_job", err)
	}
	return affected == 1, nil
}

// UpdateJob overwrites the stored job state.
func (s *Store) UpdateJob(ctx context.Context, job domain.BatchJob) error {
	recordIDs, outcomes, err := marshalJobBlobs(job)
	if err != nil {
		return ports.NewStorageError(job.ID, "update_job", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET
		  status = ?, provider_batch_id = ?, record_ids = ?, outcomes = ?,
		  retry_count = ?, updated_at = ?
		 WHERE job_id = ?`,
		string(job.Status), job.ProviderBatchID, recordIDs, outcomes,
		job.RetryCount, time.Now().UTC().Format(time.RFC3339Nano), job.ID,
	)
	if err != nil {
		return ports.NewStorageError(job.ID, "update_job", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return ports.NewStorageError(job.ID, "update_job", err)
	}
	if affected == 0 {
		return ports.NewStorageError(job.ID, "update_job", errors.New("job not found"))
	}
	return nil
}

// GetJob returns the job by ID. The bool reports whether it exists.
func (s *Store) GetJob(ctx context.Context, jobID string) (domain.BatchJob, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, status, provider_batch_id, record_ids, outcomes, retry_count, created_at, updated_at
		 FROM batch_jobs WHERE job_id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BatchJob{}, false, nil
	}
	if err != nil {
		return domain.BatchJob{}, false, ports.NewStorageError(jobID, "get_job", err)
	}
	return job, true, nil
}

// ListJobsByStatus returns jobs currently in the given status, ordered by
// creation time.
func (s *Store) ListJobsByStatus(ctx context.Context, status domain.BatchJobStatus) ([]domain.BatchJob, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, status, provider_batch_id, record_ids, outcomes, retry_count, created_at, updated_at
		 FROM batch_jobs WHERE status = ? ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, ports.NewStorageError(string(status), "list_jobs_by_status", err)
	}
	defer rows.Close()

	var jobs []domain.BatchJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, ports.NewStorageError(string(status), "list_jobs_by_status", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, ports.NewStorageError(string(status), "list_jobs_by_status", err)
	}
	return jobs, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.BatchJob, error) {
	var (
		job           domain.BatchJob
		status        string
		recordIDsJSON string
		outcomesJSON  string
		createdStr    string
		updatedStr    string
	)
	if err := row.Scan(&job.ID, &status, &job.ProviderBatchID, &recordIDsJSON,
		&outcomesJSON, &job.RetryCount, &createdStr, &updatedStr); err != nil {
		return domain.BatchJob{}, err
	}

	job.Status = domain.BatchJobStatus(status)
	if err := json.Unmarshal([]byte(recordIDsJSON), &job.RecordIDs); err != nil {
		return domain.BatchJob{}, fmt.Errorf("unmarshal record ids: %w", err)
	}
	if err := json.Unmarshal([]byte(outcomesJSON), &job.Outcomes); err != nil {
		return domain.BatchJob{}, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	return job, nil
}

func marshalJobBlobs(job domain.BatchJob) (recordIDs, outcomes string, err error) {
	ids, err := json.Marshal(job.RecordIDs)
	if err != nil {
		return "", "", fmt.Errorf("marshal record ids: %w", err)
	}
	out := job.Outcomes
	if out == nil {
		out = map[string]domain.ItemOutcome{}
	}
	outs, err := json.Marshal(out)
	if err != nil {
		return "", "", fmt.Errorf("marshal outcomes: %w", err)
	}
	return string(ids), string(outs), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
