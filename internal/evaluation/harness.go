package evaluation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
	"github.com/yanchuk/tformance-sub010/internal/scoring"
)

// HarnessDeps carries the collaborators a Harness needs.
type HarnessDeps struct {
	// Runner evaluates the detector set against each case's record.
	Runner ports.SignalRunner

	// Scorer fuses detector signals and the verdict into composite scores.
	Scorer *scoring.Scorer

	// Classifier, when set, is called live for every case instead of
	// replaying the case's canned fixture. Live runs measure the actual
	// model; replay runs are fully deterministic.
	Classifier ports.Classifier

	// Renderer builds classification requests in live mode. Required when
	// Classifier is set.
	Renderer ports.PromptRenderer
}

// Harness executes golden cases against the real detectors and scorer,
// resolving the classifier verdict from a live provider or from each case's
// canned fixture. It is stateless across runs and safe for concurrent use.
type Harness struct {
	runner     ports.SignalRunner
	scorer     *scoring.Scorer
	classifier ports.Classifier
	renderer   ports.PromptRenderer
}

// NewHarness builds a Harness from validated dependencies.
func NewHarness(deps HarnessDeps) (*Harness, error) {
	if deps.Runner == nil {
		return nil, fmt.Errorf("signal runner cannot be nil")
	}
	if deps.Scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if deps.Classifier != nil && deps.Renderer == nil {
		return nil, fmt.Errorf("a live classifier requires a prompt renderer")
	}

	return &Harness{
		runner:     deps.Runner,
		scorer:     deps.Scorer,
		classifier: deps.Classifier,
		renderer:   deps.Renderer,
	}, nil
}

// Run evaluates every case in dataset order and aggregates the outcomes.
// The dataset is re-validated so a harness fed a hand-built dataset fails
// loudly instead of reporting against malformed expectations.
func (h *Harness) Run(ctx context.Context, dataset *GoldenDataset) (*Report, error) {
	if err := ValidateGoldenDataset(dataset); err != nil {
		return nil, fmt.Errorf("dataset validation failed: %w", err)
	}

	results := make([]CaseResult, 0, len(dataset.Cases))
	for _, c := range dataset.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, h.evaluate(ctx, c))
	}

	return buildReport(results), nil
}

// evaluate runs one case through detectors, classifier, and scorer, then
// diffs the outcome against the case's expectations.
func (h *Harness) evaluate(ctx context.Context, c GoldenCase) CaseResult {
	signals := h.runner.Run(ctx, c.Record)
	verdict, classifierRan := h.classify(ctx, c)
	score := h.scorer.Score(c.Record.ID, signals, verdict)

	diffs, attribution := compare(c, signals, verdict, classifierRan, score)

	return CaseResult{
		CaseID:      c.ID,
		Category:    c.Category,
		Passed:      len(diffs) == 0,
		Score:       score.Score,
		Label:       score.Label,
		Diffs:       diffs,
		Attribution: attribution,
	}
}

// classify resolves the classifier verdict for one case: a live call when a
// classifier is wired, otherwise the case's canned fixture. The second
// return reports whether a classifier opinion participated at all, which
// drives failure attribution. Live-call errors degrade to a nil verdict so
// one flaky case cannot abort the run.
func (h *Harness) classify(ctx context.Context, c GoldenCase) (*domain.ClassifierResult, bool) {
	if h.classifier == nil {
		if c.Classifier == nil {
			return nil, false
		}
		return &domain.ClassifierResult{
			RecordID:      c.Record.ID,
			IsAIAssisted:  c.Classifier.IsAIAssisted,
			Confidence:    c.Classifier.Confidence,
			Tool:          c.Classifier.Tool,
			Category:      c.Classifier.Category,
			Provider:      "replay",
			PromptVersion: "golden-replay",
		}, true
	}

	req, err := h.renderer.Render(c.Record, ports.RenderOptions{})
	if err != nil {
		return nil, true
	}
	result, err := h.classifier.SubmitDirect(ctx, req, ports.TierStandard)
	if err != nil {
		return nil, true
	}
	return &result, true
}

// compare diffs one case's outcome against its expectations and attributes
// any failure. A detected-sources mismatch is always detector-attributable;
// remaining mismatches point at the classifier only when a verdict actually
// participated, since everything else in the pipeline is deterministic.
func compare(c GoldenCase, signals []domain.Signal, verdict *domain.ClassifierResult, classifierRan bool, score domain.CompositeScore) ([]FieldDiff, Attribution) {
	var diffs []FieldDiff
	detectorFault := false

	detected := detectedSources(signals)
	if c.Expected.DetectedSources != nil {
		want := canonicalSources(c.Expected.DetectedSources)
		if !equalSources(want, detected) {
			diffs = append(diffs, FieldDiff{
				Field:    "detected_sources",
				Expected: joinSources(want),
				Actual:   joinSources(detected),
			})
			detectorFault = true
		}
	}

	assisted := verdictAssisted(verdict) || len(detected) > 0
	if assisted != c.Expected.IsAIAssisted {
		diffs = append(diffs, FieldDiff{
			Field:    "is_ai_assisted",
			Expected: strconv.FormatBool(c.Expected.IsAIAssisted),
			Actual:   strconv.FormatBool(assisted),
		})
	}

	if c.Expected.Tool != "" {
		actual := attributedTool(signals, verdict)
		if !toolsEquivalent(c.Expected.Tool, actual) {
			diffs = append(diffs, FieldDiff{Field: "tool", Expected: c.Expected.Tool, Actual: actual})
		}
	}

	if c.Expected.Category != "" {
		var actual string
		if verdict != nil && verdict.Usable() {
			actual = verdict.Category
		}
		if !strings.EqualFold(c.Expected.Category, actual) {
			diffs = append(diffs, FieldDiff{Field: "category", Expected: c.Expected.Category, Actual: actual})
		}
	}

	if score.Score < c.Expected.ScoreMin || score.Score > c.Expected.ScoreMax {
		diffs = append(diffs, FieldDiff{
			Field:    "score",
			Expected: fmt.Sprintf("[%v, %v]", c.Expected.ScoreMin, c.Expected.ScoreMax),
			Actual:   strconv.FormatFloat(score.Score, 'g', -1, 64),
		})
	}

	switch {
	case len(diffs) == 0:
		return nil, AttributionNone
	case detectorFault || !classifierRan:
		return diffs, AttributionDetector
	default:
		return diffs, AttributionClassifier
	}
}

// verdictAssisted reports whether a usable classifier verdict flagged the
// record.
func verdictAssisted(verdict *domain.ClassifierResult) bool {
	return verdict != nil && verdict.Usable() && verdict.IsAIAssisted
}

// attributedTool picks the tool name the pipeline would surface: the
// classifier's attribution when it flagged the record, otherwise the first
// detector match in canonical source order.
func attributedTool(signals []domain.Signal, verdict *domain.ClassifierResult) string {
	if verdictAssisted(verdict) && verdict.Tool != "" {
		return verdict.Tool
	}

	bySource := make(map[domain.SignalSource]domain.Signal, len(signals))
	for _, sig := range signals {
		bySource[sig.Source] = sig
	}
	for _, source := range domain.SignalSources {
		sig, ok := bySource[source]
		if !ok || !sig.Detected {
			continue
		}
		if tool := sig.Metadata[domain.MetaMatchedTool]; tool != "" {
			return tool
		}
	}
	return ""
}

// detectedSources returns the detector sources that fired, in canonical
// order. The classifier source is excluded: its participation is asserted
// through the expected verdict, not the source list.
func detectedSources(signals []domain.Signal) []domain.SignalSource {
	fired := make(map[domain.SignalSource]bool, len(signals))
	for _, sig := range signals {
		if sig.Detected && sig.Source != domain.SourceClassifier {
			fired[sig.Source] = true
		}
	}

	var ordered []domain.SignalSource
	for _, source := range domain.SignalSources {
		if fired[source] {
			ordered = append(ordered, source)
		}
	}
	return ordered
}

// canonicalSources maps expectation strings onto sources in canonical order
// so dataset authors can list sources in any order.
func canonicalSources(names []string) []domain.SignalSource {
	want := make(map[domain.SignalSource]bool, len(names))
	for _, name := range names {
		want[domain.SignalSource(name)] = true
	}

	var ordered []domain.SignalSource
	for _, source := range domain.SignalSources {
		if want[source] {
			ordered = append(ordered, source)
		}
	}
	return ordered
}

func equalSources(a, b []domain.SignalSource) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinSources(sources []domain.SignalSource) string {
	if len(sources) == 0 {
		return "none"
	}
	parts := make([]string, len(sources))
	for i, source := range sources {
		parts[i] = string(source)
	}
	return strings.Join(parts, ", ")
}

// maxToolEditDistance bounds how far apart two normalized tool names may be
// and still count as the same tool. Two edits absorb pluralization and minor
// rebrandings without letting distinct tools collide.
const maxToolEditDistance = 2

// toolsEquivalent reports whether two tool names refer to the same tool.
// Names are case-folded and stripped of separators before comparison, so
// "Claude Code" matches "claude-code"; a small residual edit distance is
// tolerated on top.
func toolsEquivalent(a, b string) bool {
	na, nb := normalizeTool(a), normalizeTool(b)
	if na == "" || nb == "" {
		return na == nb
	}
	if na == nb {
		return true
	}
	return levenshtein.ComputeDistance(na, nb) <= maxToolEditDistance
}

// normalizeTool case-folds a tool name and drops everything but letters and
// digits, collapsing spacing and punctuation variants of the same name.
func normalizeTool(name string) string {
	folded := cases.Fold().String(name)
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return -1
	}, folded)
}
