// Package evaluation runs a hand-labeled golden dataset through the full
// detection pipeline and reports how the current detectors, scorer, and
// classifier behave against known-good expectations.
//
// Golden cases are regression anchors: the detector and scoring paths are
// deterministic, so any drift there is a defect, while classifier verdicts
// may legitimately vary between model versions. The harness attributes each
// failing case to one side or the other so a gate can be strict about
// deterministic regressions and tolerant about model drift.
package evaluation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// Category groups golden cases by what they exercise.
type Category string

// Known golden case categories.
const (
	// CategoryPositive marks records with genuine AI involvement that the
	// pipeline must flag.
	CategoryPositive Category = "positive"

	// CategoryNegative marks plain human records that must stay unflagged.
	CategoryNegative Category = "negative"

	// CategoryEdgeCase marks unusual shapes: empty records, odd casing,
	// lookalike bot accounts.
	CategoryEdgeCase Category = "edge-case"

	// CategoryPatternDetection marks cases pinning exact detector behavior,
	// including documented false-positive suppressions.
	CategoryPatternDetection Category = "pattern-detection"

	// CategoryFusion marks cases exercising how detector signals and the
	// classifier verdict combine into one score.
	CategoryFusion Category = "fusion"
)

// Categories lists every known category in report order.
var Categories = []Category{
	CategoryPositive,
	CategoryNegative,
	CategoryEdgeCase,
	CategoryPatternDetection,
	CategoryFusion,
}

// Valid reports whether the category is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPositive, CategoryNegative, CategoryEdgeCase, CategoryPatternDetection, CategoryFusion:
		return true
	default:
		return false
	}
}

// ClassifierFixture is the canned verdict replayed when the harness runs
// without a live classifier. Fixtures keep fusion cases deterministic in CI;
// a case without a fixture scores on detector evidence alone.
type ClassifierFixture struct {
	// IsAIAssisted is the canned verdict.
	IsAIAssisted bool `json:"is_ai_assisted"`

	// Confidence is the canned confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Tool names the AI tool the verdict attributes, if any.
	Tool string `json:"tool,omitempty"`

	// Category is the verdict's involvement category, if any.
	Category string `json:"category,omitempty"`
}

// Expectation is the labeled ground truth for one golden case.
type Expectation struct {
	// IsAIAssisted is whether the pipeline should find AI involvement.
	IsAIAssisted bool `json:"is_ai_assisted"`

	// Tool is the AI tool the pipeline should attribute. Empty skips the
	// check. Comparison is lenient: case-folded, separator-insensitive, and
	// tolerant of small edit distances, so "Claude Code" matches
	// "claude-code".
	Tool string `json:"tool,omitempty"`

	// Category is the involvement category the classifier should report.
	// Empty skips the check.
	Category string `json:"category,omitempty"`

	// ScoreMin and ScoreMax bound the expected composite score.
	ScoreMin float64 `json:"score_min"`
	ScoreMax float64 `json:"score_max"`

	// DetectedSources lists the detector sources that must fire, exactly.
	// Nil skips the check; an explicit empty list asserts that no detector
	// fires. The classifier source is asserted through IsAIAssisted, never
	// listed here.
	DetectedSources []string `json:"detected_sources,omitempty"`
}

// GoldenCase is one fixed, hand-labeled fixture. Cases are read-only at
// runtime; curating them is a code change reviewed like any other.
type GoldenCase struct {
	// ID uniquely identifies the case within the dataset.
	ID string `json:"id"`

	// Category groups the case for reporting.
	Category Category `json:"category"`

	// Description says what the case pins down.
	Description string `json:"description,omitempty"`

	// Record is the full change record fed to the pipeline.
	Record domain.ChangeRecord `json:"record"`

	// Classifier is the optional canned verdict for replay mode.
	Classifier *ClassifierFixture `json:"classifier,omitempty"`

	// Expected is the labeled ground truth.
	Expected Expectation `json:"expected"`
}

// DatasetMetadata describes the golden dataset itself.
type DatasetMetadata struct {
	// Name identifies the dataset.
	Name string `json:"name"`

	// Version tracks dataset revisions.
	Version string `json:"version"`

	// Description explains the dataset's coverage.
	Description string `json:"description,omitempty"`

	// CaseCount must match the actual number of cases.
	CaseCount int `json:"case_count"`
}

// GoldenDataset is the versioned collection of golden cases.
type GoldenDataset struct {
	Metadata DatasetMetadata `json:"metadata"`
	Cases    []GoldenCase    `json:"cases"`
}

// LoadGoldenDataset loads a golden dataset from a JSON file and validates it.
func LoadGoldenDataset(path string) (*GoldenDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}

	if err := ValidateGoldenDataset(&dataset); err != nil {
		return nil, fmt.Errorf("dataset validation failed: %w", err)
	}

	return &dataset, nil
}

// ValidateGoldenDataset ensures a dataset is complete and internally
// consistent: metadata present, case IDs unique, categories known, score
// ranges well-formed, and detected-source lists naming real detectors.
func ValidateGoldenDataset(dataset *GoldenDataset) error {
	if dataset == nil {
		return fmt.Errorf("dataset is nil")
	}

	if dataset.Metadata.Name == "" {
		return fmt.Errorf("metadata validation failed: dataset name is required")
	}
	if dataset.Metadata.Version == "" {
		return fmt.Errorf("metadata validation failed: dataset version is required")
	}

	if len(dataset.Cases) == 0 {
		return fmt.Errorf("dataset must contain at least one case")
	}

	seenIDs := make(map[string]bool)
	for i, c := range dataset.Cases {
		if err := validateCase(&c); err != nil {
			return fmt.Errorf("case %d validation failed: %w", i, err)
		}

		if seenIDs[c.ID] {
			return fmt.Errorf("duplicate case ID: %s", c.ID)
		}
		seenIDs[c.ID] = true
	}

	if dataset.Metadata.CaseCount != len(dataset.Cases) {
		return fmt.Errorf("metadata case count (%d) doesn't match actual case count (%d)",
			dataset.Metadata.CaseCount, len(dataset.Cases))
	}

	return nil
}

// validateCase ensures a single golden case is properly structured.
func validateCase(c *GoldenCase) error {
	if c.ID == "" {
		return fmt.Errorf("case ID is required")
	}
	if !c.Category.Valid() {
		return fmt.Errorf("case %s: unknown category %q", c.ID, c.Category)
	}
	if c.Record.ID == "" {
		return fmt.Errorf("case %s: record ID is required", c.ID)
	}

	if c.Classifier != nil {
		if c.Classifier.Confidence < 0 || c.Classifier.Confidence > 1 {
			return fmt.Errorf("case %s: fixture confidence %v outside [0,1]", c.ID, c.Classifier.Confidence)
		}
	}

	exp := c.Expected
	if exp.ScoreMin < 0 || exp.ScoreMax > 1 || exp.ScoreMin > exp.ScoreMax {
		return fmt.Errorf("case %s: score range [%v, %v] is not well-formed", c.ID, exp.ScoreMin, exp.ScoreMax)
	}

	for _, source := range exp.DetectedSources {
		s := domain.SignalSource(source)
		if !s.Valid() || s == domain.SourceClassifier {
			return fmt.Errorf("case %s: detected source %q is not a detector source", c.ID, source)
		}
	}

	return nil
}

// DatasetStatistics provides summary statistics about a golden dataset.
type DatasetStatistics struct {
	// TotalCases is the number of cases in the dataset.
	TotalCases int

	// CategoryCount maps categories to case counts.
	CategoryCount map[Category]int

	// WithFixture is the number of cases carrying a classifier fixture.
	WithFixture int

	// ExpectingAssisted is the number of cases labeled AI-assisted.
	ExpectingAssisted int
}

// ComputeDatasetStatistics analyzes a golden dataset and returns summary
// statistics.
func ComputeDatasetStatistics(dataset *GoldenDataset) *DatasetStatistics {
	stats := &DatasetStatistics{
		TotalCases:    len(dataset.Cases),
		CategoryCount: make(map[Category]int),
	}

	for _, c := range dataset.Cases {
		stats.CategoryCount[c.Category]++
		if c.Classifier != nil {
			stats.WithFixture++
		}
		if c.Expected.IsAIAssisted {
			stats.ExpectingAssisted++
		}
	}

	return stats
}
