package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// schemaVersion is the version of the structured-output contract. Bump it
// when the required response keys or their meaning change; bumping section
// versions alone covers wording changes.
const schemaVersion = 1

// Section is one named, independently versioned static block of the
// classifier instructions. Sections concatenate in a fixed order so the
// static portion of every request is a byte-identical prefix.
type Section struct {
	// Name identifies the section for fingerprinting and review.
	Name string

	// Version increments whenever Body changes meaning.
	Version int

	// Body is the instruction text.
	Body string
}

// staticSections lists the instruction sections in render order. The order
// is part of the contract: changing it changes the fingerprint.
var staticSections = []Section{
	{Name: "identity", Version: 1, Body: identityBody},
	{Name: "detection_rules", Version: 1, Body: detectionRulesBody},
	{Name: "taxonomy_rules", Version: 1, Body: taxonomyRulesBody},
	{Name: "output_format", Version: 1, Body: outputFormatBody},
	{Name: "examples", Version: 1, Body: examplesBody},
}

const identityBody = `You are a software-engineering analyst. You receive one change record:
a pull request with its title, description, commits, reviews, and changed
files. Decide whether the change shows evidence that an AI coding tool
assisted in producing it.`

const detectionRulesBody = `Detection rules:
- Co-authored-by trailers naming an AI tool (for example Claude,
  GitHub Copilot, Cursor, Aider, Devin, Windsurf) are strong evidence.
- Reviews authored by AI review bots (for example coderabbitai, Copilot,
  greptile, ellipsis) are strong evidence of AI-assisted review.
- Added or modified AI tool configuration files (for example .claude/,
  CLAUDE.md, .cursorrules, .aider.conf.yml, copilot-instructions.md) are
  strong evidence the tool is in use.
- Explicit statements in the title, description, or commit messages that a
  tool generated or helped write the change are evidence.
- A change that merely works ON AI functionality is NOT evidence: files,
  identifiers, or prose about cursors, pagination, claims, embeddings, or a
  product's own AI features do not imply an AI tool wrote the change.
- When the record contains no evidence, answer is_ai_assisted=false with
  high confidence rather than guessing.`

const taxonomyRulesBody = `Technology taxonomy. When is_ai_assisted is true, set category to the
closest match and tool to the specific product name you identified:
- "assistant": conversational or IDE-embedded assistants that produce code
  under human direction (Claude, Copilot, Cursor).
- "agent": autonomous agents that plan and commit multi-step changes
  (Devin, OpenHands, Claude Code in agent mode).
- "review_bot": automated reviewers commenting on or approving changes
  (CodeRabbit, Greptile).
- "other": AI involvement that fits none of the above.
When is_ai_assisted is false, leave tool and category empty.`

const outputFormatBody = `Respond with a single JSON object and nothing else. Required keys:
{"is_ai_assisted": <true|false>, "confidence": <number 0.0-1.0>,
 "tool": "<product name or empty string>", "category": "<taxonomy value or empty string>"}
confidence expresses how certain you are of the is_ai_assisted verdict.
Do not add keys, comments, or prose outside the JSON object.`

const examplesBody = `Examples:

Record: commit message ends with "Co-Authored-By: Claude <noreply@anthropic.com>".
Answer: {"is_ai_assisted": true, "confidence": 0.98, "tool": "Claude", "category": "assistant"}

Record: changed files include "cursor-pagination.py"; no trailers, no bot
reviews, no tool configuration files, prose only discusses database cursors.
Answer: {"is_ai_assisted": false, "confidence": 0.95, "tool": "", "category": ""}

Record: review authored by "coderabbitai[bot]" approving the change.
Answer: {"is_ai_assisted": true, "confidence": 0.9, "tool": "CodeRabbit", "category": "review_bot"}`

// joinSections concatenates the sections into the static prefix. Sections
// are separated by blank lines; the payload is appended after the prefix by
// the renderer.
func joinSections(sections []Section) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(s.Body)
	}
	return b.String()
}

// fingerprint derives the prompt version from the static sections and the
// output-contract version. Any change to a section body, version, name, or
// order yields a new fingerprint, which invalidates stored results.
func fingerprint(sections []Section) string {
	h := sha256.New()
	for _, s := range sections {
		fmt.Fprintf(h, "%s/%d\n", s.Name, s.Version)
		h.Write([]byte(s.Body))
		h.Write([]byte{0})
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return "v" + strconv.Itoa(schemaVersion) + "-" + sum[:12]
}
