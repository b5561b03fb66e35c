// Package main is the aidetect command. It reads change records from a JSON
// file, runs them through the detection pipeline, and prints one composite
// score per record.
//
// Direct mode classifies each record synchronously through the provider.
// Batch mode groups records into provider-side batch jobs, drives every job
// to a terminal status, and then scores against the stored classifications.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yanchuk/tformance-sub010/infrastructure/classifier"
	"github.com/yanchuk/tformance-sub010/infrastructure/detectors"
	"github.com/yanchuk/tformance-sub010/infrastructure/llm"
	"github.com/yanchuk/tformance-sub010/infrastructure/metrics"
	"github.com/yanchuk/tformance-sub010/infrastructure/prompt"
	"github.com/yanchuk/tformance-sub010/infrastructure/storage"
	"github.com/yanchuk/tformance-sub010/internal/application"
	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/logging"
	"github.com/yanchuk/tformance-sub010/internal/ports"
	"github.com/yanchuk/tformance-sub010/internal/scoring"
)

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file; empty runs the built-in defaults")
		recordsPath = flag.String("records", "", "JSON file holding an array of change records")
		outPath     = flag.String("out", "", "Optional JSON file for the composite scores")
		mode        = flag.String("mode", "direct", `Classification mode: "direct" or "batch"`)
	)
	flag.Parse()

	logging.Init(logging.FromEnv())

	if *recordsPath == "" {
		log.Fatalf("-records is required")
	}
	if *mode != "direct" && *mode != "batch" {
		log.Fatalf("Unknown mode %q: want direct or batch", *mode)
	}

	cfg := application.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = application.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	records, err := loadRecords(*recordsPath)
	if err != nil {
		log.Fatalf("Failed to load records: %v", err)
	}

	useBatch := *mode == "batch"
	if useBatch && !cfg.Batch.Enabled {
		logging.Get().Warn().Msg("batch mode requested but disabled in config; classifying directly")
		useBatch = false
	}

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to open result store: %v", err)
	}
	defer store.Close()

	collector := metrics.NewPrometheusMetrics()

	pipeline, orchestrator, err := buildPipeline(cfg, store, collector, useBatch)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scores := make([]domain.CompositeScore, 0, len(records))
	if useBatch {
		jobs, err := orchestrator.ProcessRecords(ctx, records)
		if err != nil {
			log.Fatalf("Batch classification failed: %v", err)
		}
		fmt.Printf("Batch classification finished: %d job(s)\n\n", len(jobs))

		for _, record := range records {
			score, err := pipeline.ScoreStored(ctx, record)
			if err != nil {
				log.Fatalf("Failed to score record %s: %v", record.ID, err)
			}
			scores = append(scores, score)
		}
	} else {
		for _, record := range records {
			score, err := pipeline.ProcessRecord(ctx, record)
			if err != nil {
				log.Fatalf("Failed to process record %s: %v", record.ID, err)
			}
			scores = append(scores, score)
		}
	}

	printSummary(scores)

	if *outPath != "" {
		if err := writeScores(scores, *outPath); err != nil {
			log.Fatalf("Failed to write scores: %v", err)
		}
		fmt.Printf("\nScores written to %s\n", *outPath)
	}
}

// buildPipeline wires the detectors, provider tiers, classifier adapter, and
// scorer into a pipeline, plus an orchestrator when batch mode needs one.
func buildPipeline(cfg application.Config, store *storage.Store, collector ports.MetricsCollector, withBatch bool) (*application.Pipeline, *application.Orchestrator, error) {
	runner, err := buildRunner(cfg.Detectors)
	if err != nil {
		return nil, nil, fmt.Errorf("build detectors: %w", err)
	}

	scorer, err := scoring.NewScorer(scoring.Config{Weights: cfg.Scoring.SignalWeights()})
	if err != nil {
		return nil, nil, fmt.Errorf("build scorer: %w", err)
	}

	renderer, err := prompt.NewRenderer(prompt.Config{MaxPayloadRunes: cfg.Classifier.MaxPayloadRunes})
	if err != nil {
		return nil, nil, fmt.Errorf("build renderer: %w", err)
	}

	adapter, err := buildClassifier(cfg.Classifier, collector, renderer, withBatch)
	if err != nil {
		return nil, nil, fmt.Errorf("build classifier: %w", err)
	}

	pipeline, err := application.NewPipeline(application.PipelineDeps{
		Runner:     runner,
		Scorer:     scorer,
		Classifier: adapter,
		Renderer:   renderer,
		Results:    store,
		Metrics:    collector,
	}, cfg)
	if err != nil {
		return nil, nil, err
	}

	if !withBatch {
		return pipeline, nil, nil
	}

	orchestrator, err := application.NewOrchestrator(application.OrchestratorDeps{
		Classifier: adapter,
		Renderer:   renderer,
		Jobs:       store,
		Results:    store,
		Metrics:    collector,
	}, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pipeline, orchestrator, nil
}

// buildRunner assembles the four detectors, extending the built-in
// allowlists with the deployment's extra phrases and reviewers.
func buildRunner(cfg application.DetectorsConfig) (*detectors.Runner, error) {
	patternConfig := detectors.DefaultPatternConfig()
	patternConfig.GenericPhrases = append(patternConfig.GenericPhrases, cfg.ExtraPhrases...)

	reviewConfig := detectors.DefaultReviewConfig()
	for _, reviewer := range cfg.ExtraReviewers {
		reviewConfig.Reviewers = append(reviewConfig.Reviewers, detectors.AIReviewer{
			Tool:   reviewer.Tool,
			Author: reviewer.Author,
		})
	}

	pattern, err := detectors.NewPatternDetector(patternConfig)
	if err != nil {
		return nil, err
	}
	commit, err := detectors.NewCommitDetector(detectors.DefaultCommitConfig())
	if err != nil {
		return nil, err
	}
	review, err := detectors.NewReviewDetector(reviewConfig)
	if err != nil {
		return nil, err
	}
	file, err := detectors.NewFileDetector(detectors.DefaultFileConfig())
	if err != nil {
		return nil, err
	}
	return detectors.NewRunner(pattern, commit, review, file)
}

// buildClassifier resolves the two call tiers through the provider registry
// and assembles the classification adapter. The batch surface is resolved
// only when batch mode asked for it; direct-only runs leave it nil.
func buildClassifier(cfg application.ClassifierConfig, collector ports.MetricsCollector, renderer ports.PromptRenderer, withBatch bool) (*classifier.Adapter, error) {
	registry, err := llm.NewRegistry(llm.RegistryConfig{
		DefaultProvider: cfg.Provider,
		Providers:       openModelProviders(),
		DefaultTimeout:  2 * time.Minute,
		DefaultMiddleware: llm.DirectCallMiddleware(llm.DirectCallOptions{
			ServiceName:     "aidetect",
			Metrics:         collector,
			MaxRetries:      cfg.MaxRetries,
			RetryBaseDelay:  500 * time.Millisecond,
			RetryMaxDelay:   5 * time.Second,
			RateLimitRPS:    cfg.RateLimitRPS,
			RateLimitBurst:  cfg.RateLimitBurst,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: cfg.BreakerCooldown(),
			RequestTimeout:  cfg.RequestTimeout(),
		}),
	})
	if err != nil {
		return nil, err
	}

	standard, err := registry.GetCore(specFor(cfg.Provider, cfg.Model))
	if err != nil {
		return nil, fmt.Errorf("resolve standard tier: %w", err)
	}
	escalated, err := registry.GetCore(specFor(cfg.Provider, cfg.EscalatedModel))
	if err != nil {
		return nil, fmt.Errorf("resolve escalated tier: %w", err)
	}

	var batch llm.BatchOperations
	if withBatch {
		batch, err = registry.GetBatchOperations(specFor(cfg.Provider, cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("resolve batch surface: %w", err)
		}
	}

	return classifier.NewAdapter(standard, escalated, batch, renderer, classifier.Config{
		Provider:            cfg.Provider,
		MaxTokens:           cfg.MaxTokens,
		EscalatedMaxTokens:  cfg.EscalatedMaxTokens,
		Temperature:         cfg.Temperature,
		ContextWindowTokens: cfg.ContextWindowTokens,
	})
}

// openModelProviders copies the provider table with model validation turned
// off. The shipped model lists are a point-in-time snapshot; the config file
// is the authority on which model each tier runs.
func openModelProviders() map[string]llm.ProviderConfig {
	providers := make(map[string]llm.ProviderConfig, len(llm.DefaultProviders))
	for name, provider := range llm.DefaultProviders {
		provider.SupportedModels = nil
		providers[name] = provider
	}
	return providers
}

// specFor builds a registry spec. An empty model resolves to the provider's
// default.
func specFor(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

// loadRecords reads a JSON array of change records.
func loadRecords(path string) ([]domain.ChangeRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []domain.ChangeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s contains no records", path)
	}
	return records, nil
}

// printSummary prints one line per record plus label totals.
func printSummary(scores []domain.CompositeScore) {
	byLabel := make(map[domain.ScoreLabel]int, 4)
	for _, score := range scores {
		byLabel[score.Label]++
		fmt.Printf("%s  score=%.4f  label=%s\n", score.ChangeRecordID, score.Score, score.Label)
	}

	fmt.Printf("\nProcessed %d record(s):\n", len(scores))
	for _, label := range []domain.ScoreLabel{domain.LabelHigh, domain.LabelMedium, domain.LabelLow, domain.LabelNone} {
		if count := byLabel[label]; count > 0 {
			fmt.Printf("- %s: %d\n", label, count)
		}
	}
}

func writeScores(scores []domain.CompositeScore, path string) error {
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
