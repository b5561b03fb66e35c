package application

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/logging"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// OrchestratorDeps carries the collaborators the orchestrator drives.
type OrchestratorDeps struct {
	// Classifier submits work to the provider in both modes.
	Classifier ports.Classifier

	// Renderer builds requests and fingerprints the prompt contract.
	Renderer ports.PromptRenderer

	// Jobs persists batch job state. Claims go through its compare-and-set.
	Jobs ports.JobStore

	// Results persists classifications keyed by record and prompt version.
	Results ports.ResultStore

	// Metrics is optional; nil disables metric emission.
	Metrics ports.MetricsCollector
}

// Orchestrator drives batch jobs through their lifecycle: submit, poll,
// fetch, and route per-item failures to the direct-mode fallback. Every
// record ends with either a persisted classification or a taxonomy failure
// recorded on its job outcome.
//
// Orchestrators are safe to run concurrently against the same job store;
// the pending → submitted claim guarantees a single worker per job.
type Orchestrator struct {
	classifier ports.Classifier
	renderer   ports.PromptRenderer
	jobs       ports.JobStore
	results    ports.ResultStore
	metrics    ports.MetricsCollector
	config     Config
	tracer     trace.Tracer

	renderEscalated ports.RenderOptions

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator validates the configuration and dependencies and returns
// an orchestrator ready to process jobs.
func NewOrchestrator(deps OrchestratorDeps, config Config) (*Orchestrator, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier cannot be nil")
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("prompt renderer cannot be nil")
	}
	if deps.Jobs == nil {
		return nil, fmt.Errorf("job store cannot be nil")
	}
	if deps.Results == nil {
		return nil, fmt.Errorf("result store cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &Orchestrator{
		classifier:      deps.Classifier,
		renderer:        deps.Renderer,
		jobs:            deps.Jobs,
		results:         deps.Results,
		metrics:         metrics,
		config:          config,
		tracer:          otel.Tracer("batch-orchestrator"),
		renderEscalated: ports.RenderOptions{MaxPayloadRunes: config.Classifier.EscalatedPayloadRunes},
		now:             time.Now,
		sleep:           sleepCtx,
	}, nil
}

// EnqueueRecords creates pending jobs for the records that still need
// classification under the current prompt contract. Records that already
// have a stored current-version result are not enqueued at all; their IDs
// come back in the second return value. Duplicated record IDs are enqueued
// once.
func (o *Orchestrator) EnqueueRecords(ctx context.Context, records []domain.ChangeRecord) ([]domain.BatchJob, []string, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.EnqueueRecords",
		trace.WithAttributes(attribute.Int("records.count", len(records))))
	defer span.End()

	version := o.renderer.Version()

	var pending, skipped []string
	seen := make(map[string]struct{}, len(records))
	for i, record := range records {
		if record.ID == "" {
			return nil, nil, fmt.Errorf("record %d: %w", i, domain.ErrMissingRecordID)
		}
		if _, dup := seen[record.ID]; dup {
			continue
		}
		seen[record.ID] = struct{}{}

		_, found, err := o.results.GetClassifierResult(ctx, record.ID, version)
		if err != nil {
			return nil, nil, fmt.Errorf("check stored result for %s: %w", record.ID, err)
		}
		if found {
			skipped = append(skipped, record.ID)
			continue
		}
		pending = append(pending, record.ID)
	}

	var jobs []domain.BatchJob
	for start := 0; start < len(pending); start += o.config.Batch.MaxGroupSize {
		end := min(start+o.config.Batch.MaxGroupSize, len(pending))
		now := o.now()
		job := domain.BatchJob{
			ID:        uuid.NewString(),
			RecordIDs: pending[start:end],
			Status:    domain.BatchPending,
			Outcomes:  make(map[string]domain.ItemOutcome),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := o.jobs.CreateJob(ctx, job); err != nil {
			return jobs, skipped, fmt.Errorf("create job: %w", err)
		}
		jobs = append(jobs, job)
	}

	logging.C(ctx).Info().
		Int("jobs", len(jobs)).
		Int("records", len(pending)).
		Int("skipped", len(skipped)).
		Str("prompt_version", version).
		Msg("batch jobs enqueued")
	return jobs, skipped, nil
}

// ProcessRecords enqueues the records and drives every job to a terminal
// status, re-running jobs that were re-queued after a poll timeout. Records
// already classified under the current prompt version never reach the
// classifier.
func (o *Orchestrator) ProcessRecords(ctx context.Context, records []domain.ChangeRecord) ([]domain.BatchJob, error) {
	jobs, _, err := o.EnqueueRecords(ctx, records)
	if err != nil {
		return nil, err
	}

	final := make([]domain.BatchJob, 0, len(jobs))
	for _, job := range jobs {
		current := job
		for {
			current, err = o.RunJob(ctx, current.ID, records)
			if err != nil {
				return final, err
			}
			// A pending status here means the job was re-queued after a
			// timeout; anything else is terminal or owned by another worker.
			if current.Status != domain.BatchPending {
				break
			}
		}
		final = append(final, current)
	}
	return final, nil
}

// RunJob drives one pending job through submission, polling, and result
// routing. Losing the claim is not an error: the job is returned as-is so
// callers can observe the winning worker's progress. A job re-queued after
// a poll timeout comes back in pending status and can be run again.
func (o *Orchestrator) RunJob(ctx context.Context, jobID string, records []domain.ChangeRecord) (domain.BatchJob, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.RunJob",
		trace.WithAttributes(attribute.String("job.id", jobID)))
	defer span.End()
	ctx = logging.WithJob(ctx, jobID)

	claimed, err := o.jobs.ClaimJob(ctx, jobID, domain.BatchPending, domain.BatchSubmitted)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("claim job %s: %w", jobID, err)
	}

	job, found, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("load job %s: %w", jobID, err)
	}
	if !found {
		return domain.BatchJob{}, fmt.Errorf("job %s not found", jobID)
	}
	if !claimed {
		logging.C(ctx).Debug().Str("status", string(job.Status)).Msg("job claimed by another worker")
		return job, nil
	}
	o.recordTransition(domain.BatchPending, domain.BatchSubmitted)
	if job.Outcomes == nil {
		job.Outcomes = make(map[string]domain.ItemOutcome)
	}

	index := indexRecords(records)
	reqs, err := o.buildRequests(ctx, &job, index)
	if err != nil {
		return job, err
	}

	// Everything already resolved under the current prompt version.
	if len(reqs) == 0 {
		if err := o.transition(&job, domain.BatchPolling); err != nil {
			return job, err
		}
		return o.finishJob(ctx, job, domain.BatchCompleted)
	}

	handle, submitErr := o.submitWithRetry(ctx, reqs)
	if submitErr != nil {
		logging.C(ctx).Error().Err(submitErr).Msg("batch submission failed")
		o.markUnresolved(&job, failureKindOf(submitErr), domain.ModeBatch)
		return o.finishJob(ctx, job, domain.BatchFailed)
	}

	job.ProviderBatchID = handle.ProviderBatchID
	if err := o.transition(&job, domain.BatchPolling); err != nil {
		return job, err
	}
	if err := o.jobs.UpdateJob(ctx, job); err != nil {
		return job, fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	logging.C(ctx).Info().
		Str("provider_batch_id", handle.ProviderBatchID).
		Int("requests", len(reqs)).
		Msg("batch submitted")

	timedOut, err := o.pollUntilDone(ctx, handle)
	if err != nil {
		if ctx.Err() != nil {
			// Leave the job in polling state; a later run resumes it
			// against the same provider batch after re-queueing.
			return job, err
		}
		logging.C(ctx).Error().Err(err).Msg("batch polling failed")
		o.markUnresolved(&job, failureKindOf(err), domain.ModeBatch)
		return o.finishJob(ctx, job, domain.BatchFailed)
	}
	if timedOut {
		return o.handleTimeout(ctx, job, handle)
	}

	items, err := o.classifier.FetchBatchResults(ctx, handle)
	if err != nil {
		logging.C(ctx).Error().Err(err).Msg("batch result fetch failed")
		o.markUnresolved(&job, failureKindOf(err), domain.ModeBatch)
		return o.finishJob(ctx, job, domain.BatchFailed)
	}

	fallback, retry, err := o.routeItems(ctx, &job, items)
	if err != nil {
		return job, err
	}
	if err := o.runDirect(ctx, &job, index, fallback, ports.TierEscalated); err != nil {
		return job, err
	}
	if err := o.runDirect(ctx, &job, index, retry, ports.TierStandard); err != nil {
		return job, err
	}

	counts := job.CountOutcomes()
	logging.C(ctx).Info().
		Int("succeeded", counts.Succeeded).
		Int("failed", counts.Failed).
		Int("fallback", len(fallback)).
		Int("retried", len(retry)).
		Msg("batch job finished")
	return o.finishJob(ctx, job, domain.BatchCompleted)
}

// buildRequests renders one request per record that still needs a result.
// Records with a stored current-version classification are marked resolved
// without a provider call, which is what makes re-running a job after a
// crash or timeout idempotent.
func (o *Orchestrator) buildRequests(ctx context.Context, job *domain.BatchJob, index map[string]domain.ChangeRecord) ([]domain.ClassificationRequest, error) {
	version := o.renderer.Version()

	reqs := make([]domain.ClassificationRequest, 0, len(job.RecordIDs))
	for _, id := range job.RecordIDs {
		if outcome, ok := job.Outcomes[id]; ok && outcome.Succeeded() {
			continue
		}
		_, found, err := o.results.GetClassifierResult(ctx, id, version)
		if err != nil {
			return nil, fmt.Errorf("check stored result for %s: %w", id, err)
		}
		if found {
			job.Outcomes[id] = domain.ItemOutcome{RecordID: id, Mode: domain.ModeBatch}
			continue
		}

		record, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("job %s references record %q that was not supplied", job.ID, id)
		}
		req, err := o.renderer.Render(record, ports.RenderOptions{})
		if err != nil {
			logging.C(ctx).Error().Err(err).Str("record_id", id).Msg("render failed, marking record fatal")
			job.Outcomes[id] = domain.ItemOutcome{
				RecordID: id,
				Failure:  domain.FailureFatalProvider,
				Attempts: job.RetryCount + 1,
				Mode:     domain.ModeBatch,
			}
			continue
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// submitWithRetry submits the batch, retrying transient provider failures
// with exponential backoff.
func (o *Orchestrator) submitWithRetry(ctx context.Context, reqs []domain.ClassificationRequest) (ports.BatchHandle, error) {
	var lastErr error
	for attempt := 0; attempt < o.config.Batch.MaxItemAttempts; attempt++ {
		if attempt > 0 {
			if err := o.sleep(ctx, o.backoffDelay(attempt-1)); err != nil {
				return ports.BatchHandle{}, err
			}
		}

		handle, err := o.classifier.SubmitBatch(ctx, reqs)
		if err == nil {
			return handle, nil
		}
		lastErr = err

		if !failureKindOf(err).Retryable() {
			break
		}
		logging.C(ctx).Warn().Err(err).Int("attempt", attempt+1).Msg("batch submission failed, retrying")
	}
	return ports.BatchHandle{}, lastErr
}

// pollUntilDone polls the provider until the batch finishes or the poll
// ceiling passes. Transient poll errors are tolerated until the ceiling;
// fatal ones are returned.
func (o *Orchestrator) pollUntilDone(ctx context.Context, handle ports.BatchHandle) (timedOut bool, err error) {
	deadline := o.now().Add(o.config.Batch.PollTimeout())
	for {
		status, err := o.classifier.PollBatch(ctx, handle)
		switch {
		case err != nil && failureKindOf(err).Terminal():
			return false, err
		case err != nil:
			logging.C(ctx).Warn().Err(err).Msg("batch poll failed, will retry")
		case status.Done:
			return false, nil
		default:
			logging.C(ctx).Debug().
				Str("state", status.State).
				Int("processing", status.Counts.Processing).
				Int("succeeded", status.Counts.Succeeded).
				Int("errored", status.Counts.Errored).
				Msg("batch still processing")
		}

		if !o.now().Before(deadline) {
			return true, nil
		}
		if err := o.sleep(ctx, o.config.Batch.PollInterval()); err != nil {
			return false, err
		}
	}
}

// salvagePollAttempts bounds how long handleTimeout waits for a canceled
// batch to wind down to its ended state before giving up on its results.
const salvagePollAttempts = 3

// handleTimeout cancels the overdue batch, salvages whatever the provider
// finished before the ceiling hit, marks the remaining records with a
// timeout failure, and either re-queues the job for another attempt or
// fails it once the retry budget is spent. Records whose results were
// salvaged are never resubmitted.
func (o *Orchestrator) handleTimeout(ctx context.Context, job domain.BatchJob, handle ports.BatchHandle) (domain.BatchJob, error) {
	logging.C(ctx).Warn().
		Str("provider_batch_id", handle.ProviderBatchID).
		Dur("ceiling", o.config.Batch.PollTimeout()).
		Msg("batch poll ceiling exceeded, canceling")
	o.metrics.RecordCounter("batch_poll_timeout_total", 1, map[string]string{"stage": "orchestrator"})

	if err := o.classifier.CancelBatch(ctx, handle); err != nil {
		logging.C(ctx).Warn().Err(err).Msg("batch cancel failed")
	}

	salvaged := o.salvageCompleted(ctx, &job, handle)
	if salvaged > 0 {
		o.metrics.RecordCounter("batch_salvaged_results_total", float64(salvaged),
			map[string]string{"stage": "orchestrator"})
	}

	o.markUnresolved(&job, domain.FailureBatchTimeout, domain.ModeBatch)
	if job.CountOutcomes().Failed == 0 {
		logging.C(ctx).Info().
			Int("salvaged", salvaged).
			Msg("every record completed before cancellation took effect")
		return o.finishJob(ctx, job, domain.BatchCompleted)
	}

	job.RetryCount++
	if job.RetryCount <= o.config.Batch.MaxJobRetries {
		job.ProviderBatchID = ""
		return o.finishJob(ctx, job, domain.BatchPending)
	}
	return o.finishJob(ctx, job, domain.BatchFailed)
}

// salvageCompleted drains the results a canceled batch already produced.
// Cancellation stops pending work but leaves completed item results
// fetchable once the batch reaches its ended state, so the overdue batch is
// polled a bounded number of times and any successes are persisted and
// recorded on the job. Items the provider never finished are left for
// markUnresolved; a batch that never winds down salvages nothing.
func (o *Orchestrator) salvageCompleted(ctx context.Context, job *domain.BatchJob, handle ports.BatchHandle) int {
	for attempt := 0; ; attempt++ {
		status, err := o.classifier.PollBatch(ctx, handle)
		if err == nil && status.Done {
			break
		}
		if err != nil {
			logging.C(ctx).Warn().Err(err).Msg("salvage poll failed")
		}
		if attempt+1 >= salvagePollAttempts {
			logging.C(ctx).Warn().
				Int("attempts", salvagePollAttempts).
				Msg("canceled batch never reached ended state, nothing to salvage")
			return 0
		}
		if err := o.sleep(ctx, o.config.Batch.PollInterval()); err != nil {
			return 0
		}
	}

	items, err := o.classifier.FetchBatchResults(ctx, handle)
	if err != nil {
		logging.C(ctx).Warn().Err(err).Msg("salvage fetch failed")
		return 0
	}

	attempts := job.RetryCount + 1
	salvaged := 0
	for _, item := range items {
		if item.Result == nil {
			continue
		}
		if err := o.results.SaveClassifierResult(ctx, *item.Result); err != nil {
			logging.C(ctx).Warn().Err(err).Str("record_id", item.RecordID).Msg("salvaged result not persisted")
			continue
		}
		job.Outcomes[item.RecordID] = domain.ItemOutcome{
			RecordID: item.RecordID,
			Attempts: attempts,
			Mode:     domain.ModeBatch,
		}
		salvaged++
	}

	logging.C(ctx).Info().
		Int("salvaged", salvaged).
		Int("items", len(items)).
		Msg("completed results salvaged from canceled batch")
	return salvaged
}

// routeItems persists successful results and splits failures into the
// escalation and retry queues. Fatal failures take their final outcome here.
func (o *Orchestrator) routeItems(ctx context.Context, job *domain.BatchJob, items []ports.BatchItemResult) (fallback, retry []ports.BatchItemResult, err error) {
	attempts := job.RetryCount + 1
	for _, item := range items {
		if item.Result != nil {
			if err := o.results.SaveClassifierResult(ctx, *item.Result); err != nil {
				return nil, nil, fmt.Errorf("persist result for %s: %w", item.RecordID, err)
			}
			job.Outcomes[item.RecordID] = domain.ItemOutcome{
				RecordID: item.RecordID,
				Attempts: attempts,
				Mode:     domain.ModeBatch,
			}
			continue
		}

		kind := item.Err.Kind
		switch {
		case kind.Escalates():
			o.metrics.RecordCounter("batch_fallback_total", 1, map[string]string{"reason": string(kind)})
			fallback = append(fallback, item)
		case kind.Retryable():
			retry = append(retry, item)
		default:
			job.Outcomes[item.RecordID] = domain.ItemOutcome{
				RecordID: item.RecordID,
				Failure:  kind,
				Attempts: attempts,
				Mode:     domain.ModeBatch,
			}
		}
	}
	return fallback, retry, nil
}

// runDirect resolves failed batch items with direct calls on the given
// tier, bounded by the per-item attempt budget and the configured
// parallelism. Outcomes land in the job; results persist to the store.
func (o *Orchestrator) runDirect(ctx context.Context, job *domain.BatchJob, index map[string]domain.ChangeRecord, items []ports.BatchItemResult, tier ports.CallTier) error {
	if len(items) == 0 {
		return nil
	}

	renderOpts := ports.RenderOptions{}
	if tier == ports.TierEscalated {
		renderOpts = o.renderEscalated
	}

	outcomes := make([]domain.ItemOutcome, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Batch.FallbackParallelism)
	for i, item := range items {
		g.Go(func() error {
			outcome, err := o.directAttempts(gctx, index, item, tier, renderOpts, job.RetryCount+1)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, outcome := range outcomes {
		job.Outcomes[outcome.RecordID] = outcome
		status := "success"
		if !outcome.Succeeded() {
			status = "failure"
		}
		o.metrics.RecordCounter("direct_resolution_total", 1, map[string]string{
			"stage":  "orchestrator",
			"status": status,
		})
	}
	return nil
}

// directAttempts makes bounded direct calls for one failed batch item. The
// batch submission already consumed attempts, so the budget continues from
// there rather than restarting.
func (o *Orchestrator) directAttempts(ctx context.Context, index map[string]domain.ChangeRecord, item ports.BatchItemResult, tier ports.CallTier, renderOpts ports.RenderOptions, batchAttempts int) (domain.ItemOutcome, error) {
	record, ok := index[item.RecordID]
	if !ok {
		return domain.ItemOutcome{}, fmt.Errorf("record %q not supplied for direct resolution", item.RecordID)
	}

	req, err := o.renderer.Render(record, renderOpts)
	if err != nil {
		return domain.ItemOutcome{
			RecordID: item.RecordID,
			Failure:  domain.FailureFatalProvider,
			Attempts: batchAttempts,
			Mode:     domain.ModeDirect,
		}, nil
	}

	attempts := batchAttempts
	kind := item.Err.Kind
	for attempts < o.config.Batch.MaxItemAttempts {
		attempts++

		result, err := o.classifier.SubmitDirect(ctx, req, tier)
		if err == nil {
			if err := o.results.SaveClassifierResult(ctx, result); err != nil {
				return domain.ItemOutcome{}, fmt.Errorf("persist result for %s: %w", item.RecordID, err)
			}
			return domain.ItemOutcome{
				RecordID: item.RecordID,
				Attempts: attempts,
				Mode:     domain.ModeDirect,
			}, nil
		}

		kind = failureKindOf(err)
		logging.C(ctx).Warn().
			Err(err).
			Str("record_id", item.RecordID).
			Str("tier", string(tier)).
			Int("attempt", attempts).
			Msg("direct call failed")
		if !kind.Retryable() || attempts >= o.config.Batch.MaxItemAttempts {
			break
		}
		if err := o.sleep(ctx, o.backoffDelay(attempts-batchAttempts-1)); err != nil {
			return domain.ItemOutcome{}, err
		}
	}

	return domain.ItemOutcome{
		RecordID: item.RecordID,
		Failure:  kind,
		Attempts: attempts,
		Mode:     domain.ModeDirect,
	}, nil
}

// markUnresolved assigns the failure kind to every record that does not yet
// have a successful outcome.
func (o *Orchestrator) markUnresolved(job *domain.BatchJob, kind domain.FailureKind, mode domain.SubmissionMode) {
	for _, id := range job.RecordIDs {
		if outcome, ok := job.Outcomes[id]; ok && outcome.Succeeded() {
			continue
		}
		job.Outcomes[id] = domain.ItemOutcome{
			RecordID: id,
			Failure:  kind,
			Attempts: job.RetryCount + 1,
			Mode:     mode,
		}
	}
}

// finishJob transitions the job to its next stored status and persists it.
func (o *Orchestrator) finishJob(ctx context.Context, job domain.BatchJob, to domain.BatchJobStatus) (domain.BatchJob, error) {
	if err := o.transition(&job, to); err != nil {
		return job, err
	}
	if err := o.jobs.UpdateJob(ctx, job); err != nil {
		return job, fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return job, nil
}

// transition applies a legal status change in memory and records it.
func (o *Orchestrator) transition(job *domain.BatchJob, to domain.BatchJobStatus) error {
	if !job.Status.CanTransition(to) {
		return fmt.Errorf("illegal job transition %s -> %s", job.Status, to)
	}
	o.recordTransition(job.Status, to)
	job.Status = to
	job.UpdatedAt = o.now()
	return nil
}

func (o *Orchestrator) recordTransition(from, to domain.BatchJobStatus) {
	o.metrics.RecordCounter("batch_job_transitions_total", 1, map[string]string{
		"from": string(from),
		"to":   string(to),
	})
}

// backoffDelay computes exponential backoff with jitter for retry attempt n.
func (o *Orchestrator) backoffDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	multiplier := 1 << uint(attempt)
	delay := time.Duration(float64(o.config.Batch.InitialBackoff()) * float64(multiplier))

	// Jitter (±25%) keeps concurrent retries from aligning.
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.5)
	delay = delay + jitter - delay/4

	if ceiling := o.config.Batch.MaxBackoff(); ceiling > 0 && delay > ceiling {
		delay = ceiling
	}
	return delay
}

// failureKindOf extracts the taxonomy kind from a classifier error. Errors
// that are not classification errors count as transient so they stay
// eligible for retry.
func failureKindOf(err error) domain.FailureKind {
	if cerr, ok := ports.AsClassificationError(err); ok {
		return cerr.Kind
	}
	return domain.FailureTransientProvider
}

func indexRecords(records []domain.ChangeRecord) map[string]domain.ChangeRecord {
	index := make(map[string]domain.ChangeRecord, len(records))
	for _, record := range records {
		index[record.ID] = record
	}
	return index
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// noopMetrics satisfies MetricsCollector when no collector is configured.
type noopMetrics struct{}

func (noopMetrics) RecordLatency(string, time.Duration, map[string]string) {}

func (noopMetrics) RecordCounter(string, float64, map[string]string) {}

func (noopMetrics) RecordGauge(string, float64, map[string]string) {}

func (noopMetrics) RecordHistogram(string, float64, map[string]string) {}
