package detectors

import (
	"fmt"
	"strings"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.Detector = (*CommitDetector)(nil)

// AIIdentity is one known AI author identity on commits.
//
// Email is matched as a case-insensitive substring, which covers trailer
// variants like "175728472+Copilot@users.noreply.github.com". Name is
// matched as a whole token, but only against co-author trailer values, never
// against message prose: a commit message mentioning "claude" is the pattern
// detector's business, not an authorship claim.
type AIIdentity struct {
	// Tool is the canonical tool name reported in signal metadata.
	Tool string `yaml:"tool" json:"tool" validate:"required"`

	// Email is an address fragment identifying the tool.
	Email string `yaml:"email" json:"email" validate:"required_without=Name"`

	// Name is the tool's co-author display name.
	Name string `yaml:"name" json:"name" validate:"required_without=Email"`
}

// CommitConfig holds the AI identity allowlist for the commit detector.
type CommitConfig struct {
	Identities []AIIdentity `yaml:"identities" json:"identities" validate:"required,min=1,dive"`
}

// DefaultCommitConfig returns the curated production identity list.
func DefaultCommitConfig() CommitConfig {
	return CommitConfig{
		Identities: []AIIdentity{
			{Tool: "Claude", Email: "noreply@anthropic.com", Name: "claude"},
			{Tool: "Claude", Email: "claude@anthropic.com"},
			{Tool: "GitHub Copilot", Email: "copilot@users.noreply.github.com", Name: "copilot"},
			{Tool: "Cursor", Email: "cursoragent@cursor.com", Name: "cursor agent"},
			{Tool: "Devin", Email: "devin-ai-integration[bot]@users.noreply.github.com", Name: "devin ai"},
			{Tool: "Aider", Email: "aider@aider.chat", Name: "aider"},
			{Tool: "OpenAI Codex", Email: "codex@openai.com", Name: "codex"},
		},
	}
}

// compiledIdentity holds the folded forms of one identity.
type compiledIdentity struct {
	tool    string
	email   string
	name    string
	display string
}

// CommitDetector scans commit co-author trailers and message bodies for
// known AI identities. One matching commit is sufficient: semantics are OR
// across all commits in the record.
type CommitDetector struct {
	config     CommitConfig
	identities []compiledIdentity
}

// NewCommitDetector builds a CommitDetector from validated configuration.
func NewCommitDetector(config CommitConfig) (*CommitDetector, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("commit detector configuration validation failed: %w", err)
	}

	identities := make([]compiledIdentity, 0, len(config.Identities))
	for _, id := range config.Identities {
		display := id.Email
		if display == "" {
			display = id.Name
		}
		identities = append(identities, compiledIdentity{
			tool:    id.Tool,
			email:   fold(id.Email),
			name:    fold(id.Name),
			display: display,
		})
	}

	return &CommitDetector{config: config, identities: identities}, nil
}

// Name returns a unique identifier for this detector.
func (d *CommitDetector) Name() string { return "commit" }

// Source returns the signal source this detector emits.
func (d *CommitDetector) Source() domain.SignalSource { return domain.SourceCommit }

// Validate checks that the detector is properly configured.
func (d *CommitDetector) Validate() error {
	if err := validate.Struct(d.config); err != nil {
		return fmt.Errorf("commit detector configuration validation failed: %w", err)
	}
	return nil
}

// Detect scans every commit's trailers and message body. Trailers match on
// email substring or whole-token name; message bodies match on email only,
// which catches trailers the ingestion layer left inline.
func (d *CommitDetector) Detect(record domain.ChangeRecord) domain.Signal {
	if record.ID == "" {
		return domain.DegradedSignal(domain.SourceCommit, "missing record id")
	}
	if len(record.Commits) == 0 {
		return domain.AbsentSignal(domain.SourceCommit)
	}

	for _, commit := range record.Commits {
		for _, trailer := range commit.CoAuthors {
			folded := fold(trailer)
			for _, id := range d.identities {
				matched := id.email != "" && strings.Contains(folded, id.email)
				if !matched && id.name != "" {
					matched = tokenIndex(folded, id.name) >= 0
				}
				if matched {
					return d.found(commit.SHA, id, strings.TrimSpace(trailer))
				}
			}
		}

		folded := fold(commit.Message)
		for _, id := range d.identities {
			if id.email == "" {
				continue
			}
			idx := strings.Index(folded, id.email)
			if idx >= 0 {
				return d.found(commit.SHA, id, excerptAround(folded, idx, idx+len(id.email)))
			}
		}
	}

	return domain.AbsentSignal(domain.SourceCommit)
}

func (d *CommitDetector) found(sha string, id compiledIdentity, excerpt string) domain.Signal {
	if sha != "" {
		excerpt = fmt.Sprintf("commit %s: %s", shortSHA(sha), excerpt)
	}
	return domain.DetectedSignal(domain.SourceCommit, map[string]string{
		domain.MetaMatchedTool:    id.tool,
		domain.MetaMatchedPattern: id.display,
		domain.MetaExcerpt:        excerpt,
	})
}
