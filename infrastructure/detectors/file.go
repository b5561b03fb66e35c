package detectors

import (
	"fmt"
	"path"
	"strings"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.Detector = (*FileDetector)(nil)

// FileRule maps path patterns to the AI tool whose configuration they are.
// A rule needs at least one of BaseNames, Dirs, or Globs.
type FileRule struct {
	// Tool is the canonical tool name reported in signal metadata.
	// It may be empty for cross-tool conventions like AGENTS.md.
	Tool string `yaml:"tool" json:"tool"`

	// BaseNames are exact, case-insensitive file base names.
	BaseNames []string `yaml:"base_names" json:"base_names" validate:"omitempty,dive,required"`

	// Dirs are directory names matched against any path segment.
	Dirs []string `yaml:"dirs" json:"dirs" validate:"omitempty,dive,required"`

	// Globs are path.Match patterns applied to the full path.
	Globs []string `yaml:"globs" json:"globs" validate:"omitempty,dive,required"`
}

// FileConfig holds the inclusion rules and the exclusion list for the file
// detector.
type FileConfig struct {
	// Exclusions are case-insensitive substrings that suppress any match on
	// a path. Exclusions always win over inclusions.
	Exclusions []string `yaml:"exclusions" json:"exclusions" validate:"omitempty,dive,required"`

	// Rules are the inclusion patterns, tried in order.
	Rules []FileRule `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
}

// DefaultFileConfig returns the curated production rule set.
//
// The exclusions encode documented false positives: pagination-cursor naming
// conventions share a substring with Cursor's config files, and vendored
// trees carry other projects' AI configuration without saying anything about
// this change.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Exclusions: []string{
			"cursor-pagination",
			"pagination-cursor",
			"cursor_pagination",
			"vendor/",
			"node_modules/",
			"third_party/",
		},
		Rules: []FileRule{
			{Tool: "Claude", BaseNames: []string{"claude.md"}, Dirs: []string{".claude"}},
			{Tool: "Cursor", BaseNames: []string{".cursorrules", ".cursorignore"}, Dirs: []string{".cursor"}},
			{Tool: "Windsurf", BaseNames: []string{".windsurfrules"}, Dirs: []string{".windsurf"}},
			{Tool: "Aider", BaseNames: []string{".aider.conf.yml", ".aiderignore"}, Dirs: []string{".aider"}},
			{Tool: "GitHub Copilot", BaseNames: []string{"copilot-instructions.md"}, Globs: []string{".github/copilot-*.md", ".github/prompts/*.prompt.md"}},
			{Tool: "Gemini", BaseNames: []string{"gemini.md"}, Dirs: []string{".gemini"}},
			{BaseNames: []string{"agents.md"}},
		},
	}
}

// compiledRule holds one rule's folded patterns.
type compiledRule struct {
	tool      string
	baseNames map[string]string // folded base name -> display pattern
	dirs      map[string]string // folded segment  -> display pattern
	globs     []globPattern
}

type globPattern struct {
	folded  string
	display string
}

// FileDetector matches changed file paths against AI tool configuration
// patterns. Exclusions are checked before inclusions for every path and
// suppress any match, which keeps documented lookalikes (cursor-pagination
// helpers, vendored SDKs) from flagging a record.
type FileDetector struct {
	config     FileConfig
	exclusions []string
	rules      []compiledRule
}

// NewFileDetector builds a FileDetector from validated configuration.
func NewFileDetector(config FileConfig) (*FileDetector, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("file detector configuration validation failed: %w", err)
	}

	exclusions := make([]string, 0, len(config.Exclusions))
	for _, ex := range config.Exclusions {
		exclusions = append(exclusions, fold(ex))
	}

	rules := make([]compiledRule, 0, len(config.Rules))
	for i, rule := range config.Rules {
		if len(rule.BaseNames) == 0 && len(rule.Dirs) == 0 && len(rule.Globs) == 0 {
			return nil, fmt.Errorf("file rule %d has no base names, dirs, or globs", i)
		}

		compiled := compiledRule{
			tool:      rule.Tool,
			baseNames: make(map[string]string, len(rule.BaseNames)),
			dirs:      make(map[string]string, len(rule.Dirs)),
		}
		for _, name := range rule.BaseNames {
			compiled.baseNames[fold(name)] = name
		}
		for _, dir := range rule.Dirs {
			compiled.dirs[fold(dir)] = dir
		}
		for _, glob := range rule.Globs {
			folded := fold(glob)
			if _, err := path.Match(folded, "probe"); err != nil {
				return nil, fmt.Errorf("file rule %d glob %q: %w", i, glob, err)
			}
			compiled.globs = append(compiled.globs, globPattern{folded: folded, display: glob})
		}
		rules = append(rules, compiled)
	}

	return &FileDetector{config: config, exclusions: exclusions, rules: rules}, nil
}

// Name returns a unique identifier for this detector.
func (d *FileDetector) Name() string { return "file" }

// Source returns the signal source this detector emits.
func (d *FileDetector) Source() domain.SignalSource { return domain.SourceFile }

// Validate checks that the detector is properly configured.
func (d *FileDetector) Validate() error {
	if err := validate.Struct(d.config); err != nil {
		return fmt.Errorf("file detector configuration validation failed: %w", err)
	}
	return nil
}

// Detect matches each changed path, exclusions first. The first inclusion
// match on a non-excluded path wins.
func (d *FileDetector) Detect(record domain.ChangeRecord) domain.Signal {
	if record.ID == "" {
		return domain.DegradedSignal(domain.SourceFile, "missing record id")
	}
	if len(record.ChangedFiles) == 0 {
		return domain.AbsentSignal(domain.SourceFile)
	}

	for _, filePath := range record.ChangedFiles {
		trimmed := strings.TrimSpace(filePath)
		if trimmed == "" {
			continue
		}
		folded := fold(trimmed)

		if d.excluded(folded) {
			continue
		}

		if tool, pattern, ok := d.match(folded); ok {
			metadata := map[string]string{
				domain.MetaMatchedPattern: pattern,
				domain.MetaExcerpt:        trimmed,
			}
			if tool != "" {
				metadata[domain.MetaMatchedTool] = tool
			}
			return domain.DetectedSignal(domain.SourceFile, metadata)
		}
	}

	return domain.AbsentSignal(domain.SourceFile)
}

func (d *FileDetector) excluded(foldedPath string) bool {
	for _, ex := range d.exclusions {
		if strings.Contains(foldedPath, ex) {
			return true
		}
	}
	return false
}

func (d *FileDetector) match(foldedPath string) (tool, pattern string, ok bool) {
	base := path.Base(foldedPath)
	segments := strings.Split(foldedPath, "/")
	if len(segments) > 0 {
		segments = segments[:len(segments)-1]
	}

	for _, rule := range d.rules {
		if display, found := rule.baseNames[base]; found {
			return rule.tool, display, true
		}
		for _, segment := range segments {
			if display, found := rule.dirs[segment]; found {
				return rule.tool, display, true
			}
		}
		for _, glob := range rule.globs {
			if matched, _ := path.Match(glob.folded, foldedPath); matched {
				return rule.tool, glob.display, true
			}
		}
	}

	return "", "", false
}
