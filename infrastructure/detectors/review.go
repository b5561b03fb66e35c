package detectors

import (
	"fmt"
	"strings"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.Detector = (*ReviewDetector)(nil)

// AIReviewer is one known AI reviewer account.
type AIReviewer struct {
	// Tool is the canonical tool name reported in signal metadata.
	Tool string `yaml:"tool" json:"tool" validate:"required"`

	// Author is the reviewer's exact account login.
	Author string `yaml:"author" json:"author" validate:"required"`
}

// ReviewConfig holds the AI reviewer allowlist for the review detector.
type ReviewConfig struct {
	Reviewers []AIReviewer `yaml:"reviewers" json:"reviewers" validate:"required,min=1,dive"`
}

// DefaultReviewConfig returns the curated production reviewer list. Matching
// is by exact login, not by "[bot]" suffix: plenty of bots (dependabot,
// renovate) review or touch pull requests without any AI involvement.
func DefaultReviewConfig() ReviewConfig {
	return ReviewConfig{
		Reviewers: []AIReviewer{
			{Tool: "CodeRabbit", Author: "coderabbitai[bot]"},
			{Tool: "CodeRabbit", Author: "coderabbitai"},
			{Tool: "Greptile", Author: "greptile-apps[bot]"},
			{Tool: "Ellipsis", Author: "ellipsis-dev[bot]"},
			{Tool: "Cursor", Author: "cursor[bot]"},
			{Tool: "GitHub Copilot", Author: "copilot-pull-request-reviewer[bot]"},
			{Tool: "Devin", Author: "devin-ai-integration[bot]"},
			{Tool: "Sourcery", Author: "sourcery-ai[bot]"},
			{Tool: "Qodo", Author: "qodo-merge-pro[bot]"},
		},
	}
}

// ReviewDetector scans review author identities against a known-AI-reviewer
// allowlist. Semantics are OR across all reviews on the record.
type ReviewDetector struct {
	config ReviewConfig
	// byAuthor maps folded login -> allowlist entry.
	byAuthor map[string]AIReviewer
}

// NewReviewDetector builds a ReviewDetector from validated configuration.
func NewReviewDetector(config ReviewConfig) (*ReviewDetector, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("review detector configuration validation failed: %w", err)
	}

	byAuthor := make(map[string]AIReviewer, len(config.Reviewers))
	for _, reviewer := range config.Reviewers {
		byAuthor[fold(reviewer.Author)] = reviewer
	}

	return &ReviewDetector{config: config, byAuthor: byAuthor}, nil
}

// Name returns a unique identifier for this detector.
func (d *ReviewDetector) Name() string { return "review" }

// Source returns the signal source this detector emits.
func (d *ReviewDetector) Source() domain.SignalSource { return domain.SourceReview }

// Validate checks that the detector is properly configured.
func (d *ReviewDetector) Validate() error {
	if err := validate.Struct(d.config); err != nil {
		return fmt.Errorf("review detector configuration validation failed: %w", err)
	}
	return nil
}

// Detect compares each review author against the allowlist.
func (d *ReviewDetector) Detect(record domain.ChangeRecord) domain.Signal {
	if record.ID == "" {
		return domain.DegradedSignal(domain.SourceReview, "missing record id")
	}
	if len(record.Reviews) == 0 {
		return domain.AbsentSignal(domain.SourceReview)
	}

	for _, review := range record.Reviews {
		author := strings.TrimSpace(review.Author)
		if author == "" {
			continue
		}
		if reviewer, ok := d.byAuthor[fold(author)]; ok {
			return domain.DetectedSignal(domain.SourceReview, map[string]string{
				domain.MetaMatchedTool:    reviewer.Tool,
				domain.MetaMatchedPattern: reviewer.Author,
				domain.MetaExcerpt:        author,
			})
		}
	}

	return domain.AbsentSignal(domain.SourceReview)
}
