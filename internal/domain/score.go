package domain

// ScoreLabel is the confidence band derived from a composite score.
type ScoreLabel string

const (
	// LabelNone means no evidence of AI assistance at all.
	LabelNone ScoreLabel = "none"

	// LabelLow means weak evidence.
	LabelLow ScoreLabel = "low"

	// LabelMedium means moderate evidence.
	LabelMedium ScoreLabel = "medium"

	// LabelHigh means strong evidence.
	LabelHigh ScoreLabel = "high"
)

// Band thresholds for deriving a label from a score.
const (
	HighBandMin   = 0.7
	MediumBandMin = 0.4
)

// LabelForScore maps a composite score onto its confidence band.
func LabelForScore(score float64) ScoreLabel {
	switch {
	case score >= HighBandMin:
		return LabelHigh
	case score >= MediumBandMin:
		return LabelMedium
	case score > 0:
		return LabelLow
	default:
		return LabelNone
	}
}

// Contribution is one signal source's share of a composite score.
type Contribution struct {
	// Source names the contributing signal source.
	Source SignalSource `json:"source"`

	// Weight is the configured weight applied to this source.
	Weight float64 `json:"weight"`

	// Confidence is the signal's confidence at scoring time.
	Confidence float64 `json:"confidence"`

	// Value is the raw contribution: weight times confidence when the
	// signal was detected, zero otherwise.
	Value float64 `json:"value"`
}

// CompositeScore is the final fused output for one change record. It is a
// deterministic pure function of the signal set: recomputing from the same
// signals always yields the same score and breakdown.
type CompositeScore struct {
	// ChangeRecordID identifies the scored change record.
	ChangeRecordID string `json:"change_record_id"`

	// Score is the weighted sum of contributions clamped to [0,1].
	Score float64 `json:"score"`

	// Breakdown lists every source's contribution in canonical source
	// order, for explainability and audit.
	Breakdown []Contribution `json:"breakdown"`

	// Label is the confidence band derived from Score.
	Label ScoreLabel `json:"label"`
}
