// Package prompt renders classification requests for the external classifier
// and validates its structured responses. The static instruction prefix is
// byte-identical across records so providers can cache it; only the
// per-record payload varies.
package prompt

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/yanchuk/tformance-sub010/internal/domain"
	"github.com/yanchuk/tformance-sub010/internal/ports"
)

var _ ports.PromptRenderer = (*Renderer)(nil)

const (
	// DefaultMaxPayloadRunes bounds the per-record payload section when
	// neither the config nor the render options override it. Roughly 6k
	// tokens at four characters per token, leaving headroom under the
	// standard-tier context window.
	DefaultMaxPayloadRunes = 24000

	// maxListedFiles caps the changed-file list; the remainder is
	// summarized as a count so one huge rename PR cannot crowd out the
	// prose the classifier actually needs.
	maxListedFiles = 200
)

// Config defines the configuration parameters for the Renderer.
type Config struct {
	// MaxPayloadRunes caps the per-record payload section when the render
	// options do not override it. Zero applies DefaultMaxPayloadRunes.
	MaxPayloadRunes int `yaml:"max_payload_runes" json:"max_payload_runes" validate:"min=0"`
}

// DefaultConfig returns a Config with the default payload budget.
func DefaultConfig() Config {
	return Config{MaxPayloadRunes: DefaultMaxPayloadRunes}
}

// Renderer builds classification requests from change records and validates
// classifier responses against the output contract. It is stateless after
// construction and safe for concurrent use.
type Renderer struct {
	config          Config
	validator       *validator.Validate
	payloadTemplate *template.Template

	// systemPrefix and version are derived from the static sections at
	// construction so Render never recomputes them.
	systemPrefix string
	version      string
}

// NewRenderer creates a Renderer with the given configuration.
func NewRenderer(config Config) (*Renderer, error) {
	v := validator.New()
	if err := v.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	tmpl, err := template.New("payload").Parse(payloadTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload template: %w", err)
	}

	return &Renderer{
		config:          config,
		validator:       v,
		payloadTemplate: tmpl,
		systemPrefix:    joinSections(staticSections),
		version:         fingerprint(staticSections),
	}, nil
}

// Version returns the fingerprint of the static sections and output
// contract. Results are stamped with it so a contract bump forces
// reprocessing of stored classifications.
func (r *Renderer) Version() string { return r.version }

// Render builds the classification request for one change record. The
// returned request's System field is identical for every record; only
// Payload varies.
func (r *Renderer) Render(record domain.ChangeRecord, opts ports.RenderOptions) (domain.ClassificationRequest, error) {
	if record.ID == "" {
		return domain.ClassificationRequest{}, domain.ErrMissingRecordID
	}

	budget := r.config.MaxPayloadRunes
	if opts.MaxPayloadRunes > 0 {
		budget = opts.MaxPayloadRunes
	}
	if budget <= 0 {
		budget = DefaultMaxPayloadRunes
	}

	view := buildPayloadView(record, budget)

	var buf bytes.Buffer
	if err := r.payloadTemplate.Execute(&buf, view); err != nil {
		return domain.ClassificationRequest{}, fmt.Errorf("failed to execute payload template for record %s: %w", record.ID, err)
	}

	return domain.ClassificationRequest{
		RecordID:      record.ID,
		System:        r.systemPrefix,
		Payload:       clipRunes(buf.String(), budget),
		PromptVersion: r.version,
	}, nil
}

// payloadTemplate lays out the per-record section. Field order is fixed;
// changing it changes what the classifier sees, so treat edits like a
// section bump.
const payloadTemplate = `## Change record

ID: {{.ID}}
Title: {{.Title}}
{{- if .Languages}}
Languages: {{range $i, $l := .Languages}}{{if $i}}, {{end}}{{$l.Name}} ({{$l.Bytes}} bytes){{end}}
{{- end}}
{{- if .Description}}

Description:
{{.Description}}
{{- end}}
{{- if .Commits}}

Commits:
{{- range .Commits}}
--- commit{{if .SHA}} {{.SHA}}{{end}} ---
{{.Message}}
{{- end}}
{{- end}}
{{- if .Reviews}}

Reviews:
{{- range .Reviews}}
--- review by {{.Author}} ---
{{.Body}}
{{- end}}
{{- end}}
{{- if .Files}}

Changed files:
{{- range .Files}}
- {{.}}
{{- end}}
{{- if .OmittedFiles}}
(and {{.OmittedFiles}} more files)
{{- end}}
{{- end}}
`

type payloadView struct {
	ID           string
	Title        string
	Description  string
	Languages    []languageView
	Commits      []commitView
	Reviews      []reviewView
	Files        []string
	OmittedFiles int
}

type commitView struct {
	SHA     string
	Message string
}

type reviewView struct {
	Author string
	Body   string
}

type languageView struct {
	Name  string
	Bytes int64
}

// buildPayloadView projects a record into the template view, clipping
// free-text fields so one oversized field cannot consume the whole budget.
// The description, the usual overflow cause, is held to half the budget;
// the final hard clip in Render enforces the total.
func buildPayloadView(record domain.ChangeRecord, budget int) payloadView {
	view := payloadView{
		ID:          record.ID,
		Title:       record.Title,
		Description: clipRunes(record.Description, budget/2),
	}

	for _, c := range record.Commits {
		view.Commits = append(view.Commits, commitView{SHA: c.SHA, Message: c.Message})
	}
	for _, rev := range record.Reviews {
		view.Reviews = append(view.Reviews, reviewView{Author: rev.Author, Body: rev.Body})
	}

	if len(record.ChangedFiles) > maxListedFiles {
		view.Files = record.ChangedFiles[:maxListedFiles]
		view.OmittedFiles = len(record.ChangedFiles) - maxListedFiles
	} else {
		view.Files = record.ChangedFiles
	}

	// Map iteration order is random; sort by byte count descending, then
	// name, so the payload is deterministic across runs.
	for name, bytes := range record.Languages {
		view.Languages = append(view.Languages, languageView{Name: name, Bytes: bytes})
	}
	sort.Slice(view.Languages, func(i, j int) bool {
		if view.Languages[i].Bytes != view.Languages[j].Bytes {
			return view.Languages[i].Bytes > view.Languages[j].Bytes
		}
		return view.Languages[i].Name < view.Languages[j].Name
	})

	return view
}

// clipRunes truncates s so the result, including the truncation marker,
// never exceeds max runes. A max of zero or less disables clipping.
func clipRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	marker := []rune("\n[truncated]")
	if max <= len(marker) {
		return string(runes[:max])
	}
	return string(runes[:max-len(marker)]) + string(marker)
}
