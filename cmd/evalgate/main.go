// Package main is the evalgate command. It replays the golden dataset
// through the production detectors and scorer, prints the evaluation
// report, and exits non-zero when the gate fails. CI runs it to catch
// detection regressions before they ship.
//
// Replay mode never calls a provider: each case's recorded classifier
// fixture stands in for the live verdict, so runs are deterministic and
// free.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yanchuk/tformance-sub010/infrastructure/detectors"
	"github.com/yanchuk/tformance-sub010/internal/evaluation"
	"github.com/yanchuk/tformance-sub010/internal/logging"
	"github.com/yanchuk/tformance-sub010/internal/scoring"
)

func main() {
	var (
		datasetPath = flag.String("dataset", "internal/evaluation/testdata/golden_cases.json", "Golden dataset file")
		minPassRate = flag.Float64("min-pass-rate", 1.0, "Minimum pass rate in [0,1]; detector-attributable failures fail the gate regardless")
	)
	flag.Parse()

	logging.Init(logging.FromEnv())

	dataset, err := evaluation.LoadGoldenDataset(*datasetPath)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}

	// The gate pins the production defaults. A dataset replayed against
	// custom allowlists or weights would not anchor anything.
	runner, err := detectors.NewDefaultRunner()
	if err != nil {
		log.Fatalf("Failed to build detectors: %v", err)
	}

	scorer, err := scoring.NewScorer(scoring.DefaultConfig())
	if err != nil {
		log.Fatalf("Failed to build scorer: %v", err)
	}

	harness, err := evaluation.NewHarness(evaluation.HarnessDeps{
		Runner: runner,
		Scorer: scorer,
	})
	if err != nil {
		log.Fatalf("Failed to build harness: %v", err)
	}

	report, err := harness.Run(context.Background(), dataset)
	if err != nil {
		log.Fatalf("Evaluation run failed: %v", err)
	}

	fmt.Print(report.Render())

	if err := report.Gate(*minPassRate); err != nil {
		fmt.Printf("\nGate failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nGate passed (min pass rate %.2f)\n", *minPassRate)
}
