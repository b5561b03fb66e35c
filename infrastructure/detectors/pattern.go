package detectors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.Detector = (*PatternDetector)(nil)

// ToolPattern associates disclosure phrases with the AI tool they name.
type ToolPattern struct {
	// Tool is the canonical tool name reported in signal metadata.
	Tool string `yaml:"tool" json:"tool" validate:"required"`

	// Phrases are matched case-insensitively as whole tokens.
	Phrases []string `yaml:"phrases" json:"phrases" validate:"required,min=1,dive,required"`
}

// PatternConfig holds the curated phrase allowlist for the pattern detector.
type PatternConfig struct {
	// Tools lists tool-attributed disclosure phrases.
	Tools []ToolPattern `yaml:"tools" json:"tools" validate:"required,min=1,dive"`

	// GenericPhrases are AI disclosures that name no specific tool.
	GenericPhrases []string `yaml:"generic_phrases" json:"generic_phrases" validate:"omitempty,dive,required"`
}

// DefaultPatternConfig returns the curated production allowlist. Phrases are
// deliberately conservative: bare words that double as common prose
// ("cursor", "agent") are only listed in multi-word forms.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Tools: []ToolPattern{
			{Tool: "Claude", Phrases: []string{"claude code", "claude"}},
			{Tool: "GitHub Copilot", Phrases: []string{"github copilot", "copilot"}},
			{Tool: "Cursor", Phrases: []string{"cursor ai", "cursor agent", "written with cursor", "built with cursor", "generated with cursor"}},
			{Tool: "Aider", Phrases: []string{"aider"}},
			{Tool: "Devin", Phrases: []string{"devin ai", "devin.ai"}},
			{Tool: "Windsurf", Phrases: []string{"windsurf"}},
			{Tool: "ChatGPT", Phrases: []string{"chatgpt", "generated by gpt", "written by gpt"}},
			{Tool: "OpenAI Codex", Phrases: []string{"openai codex"}},
		},
		GenericPhrases: []string{
			"ai-assisted",
			"ai assisted",
			"ai-generated",
			"ai generated",
			"generated with ai",
			"written with ai",
			"with ai assistance",
			"vibe coded",
			"vibe-coded",
		},
	}
}

// compiledPattern is one folded phrase ready for matching. Tool is empty for
// generic phrases.
type compiledPattern struct {
	tool    string
	display string
	folded  string
}

// PatternDetector scans a record's title, description, and commit messages
// for explicit AI disclosure phrases. Matching is case-insensitive and
// whole-token, and more specific phrases take precedence over general ones:
// tool-attributed phrases are tried before generic ones, longest first, so a
// "claude code" disclosure is reported as "claude code" and not "claude".
type PatternDetector struct {
	config   PatternConfig
	patterns []compiledPattern
}

// NewPatternDetector builds a PatternDetector from validated configuration.
func NewPatternDetector(config PatternConfig) (*PatternDetector, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("pattern detector configuration validation failed: %w", err)
	}

	var tools, generic []compiledPattern
	for _, tp := range config.Tools {
		for _, phrase := range tp.Phrases {
			tools = append(tools, compiledPattern{tool: tp.Tool, display: phrase, folded: fold(phrase)})
		}
	}
	for _, phrase := range config.GenericPhrases {
		generic = append(generic, compiledPattern{display: phrase, folded: fold(phrase)})
	}

	longestFirst := func(ps []compiledPattern) {
		sort.SliceStable(ps, func(i, j int) bool {
			return len(ps[i].folded) > len(ps[j].folded)
		})
	}
	longestFirst(tools)
	longestFirst(generic)

	return &PatternDetector{
		config:   config,
		patterns: append(tools, generic...),
	}, nil
}

// Name returns a unique identifier for this detector.
func (d *PatternDetector) Name() string { return "pattern" }

// Source returns the signal source this detector emits.
func (d *PatternDetector) Source() domain.SignalSource { return domain.SourcePattern }

// Validate checks that the detector is properly configured.
func (d *PatternDetector) Validate() error {
	if err := validate.Struct(d.config); err != nil {
		return fmt.Errorf("pattern detector configuration validation failed: %w", err)
	}
	return nil
}

// Detect scans the record's prose fields in order and returns a detected
// signal on the first phrase match. It never fails; a record without an ID
// degrades with a note.
func (d *PatternDetector) Detect(record domain.ChangeRecord) domain.Signal {
	if record.ID == "" {
		return domain.DegradedSignal(domain.SourcePattern, "missing record id")
	}
	if !record.HasText() {
		return domain.AbsentSignal(domain.SourcePattern)
	}

	fields := make([]string, 0, 2+len(record.Commits))
	fields = append(fields, record.Title, record.Description)
	for _, commit := range record.Commits {
		fields = append(fields, commit.Message)
	}

	for _, text := range fields {
		if strings.TrimSpace(text) == "" {
			continue
		}
		folded := fold(text)
		for _, pattern := range d.patterns {
			idx := tokenIndex(folded, pattern.folded)
			if idx < 0 {
				continue
			}
			metadata := map[string]string{
				domain.MetaMatchedPattern: pattern.display,
				domain.MetaExcerpt:        excerptAround(folded, idx, idx+len(pattern.folded)),
			}
			if pattern.tool != "" {
				metadata[domain.MetaMatchedTool] = pattern.tool
			}
			return domain.DetectedSignal(domain.SourcePattern, metadata)
		}
	}

	return domain.AbsentSignal(domain.SourcePattern)
}
