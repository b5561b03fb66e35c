// Package detectors implements the heuristic signal detectors that scan a
// change record's metadata for evidence of AI assistance: disclosure phrases
// in prose, AI co-author identities on commits, known AI reviewer accounts,
// and AI tool configuration files among the changed paths.
//
// Every detector is side-effect-free and never fails: malformed input
// degrades to a detected=false signal carrying a metadata note. Detectors
// share no mutable state, so one instance can serve concurrent records.
package detectors

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
)

var validate = validator.New()

// maxScanBytes caps how much of any single text field a detector scans.
// Records arrive from an ingestion layer that does not bound field sizes;
// a detector must stay cheap even against a pathological megabyte-scale
// commit message.
const maxScanBytes = 1 << 20

// fold lower-cases text with Unicode-aware case folding so matching behaves
// the same across scripts. strings.ToLower mishandles some case pairs.
func fold(s string) string {
	if len(s) > maxScanBytes {
		s = clipToRune(s, maxScanBytes)
	}
	return cases.Fold().String(s)
}

// clipToRune shortens s to at most n bytes without splitting a rune.
func clipToRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// isWordRune reports whether r binds into a word token for boundary checks.
// Letters, digits, combining marks, and connector punctuation count; hyphens,
// dots, and brackets do not, so "[bot]" and "co-authored" split where
// matching needs them to.
func isWordRune(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.In(r, unicode.Mn, unicode.Pc)
}

// boundaryOK reports whether [start,end) sits on whole-token boundaries:
// the runes adjacent to the span must be non-word.
func boundaryOK(s string, start, end int) bool {
	var prev, next rune
	if start > 0 {
		prev, _ = utf8.DecodeLastRuneInString(s[:start])
	}
	if end < len(s) {
		next, _ = utf8.DecodeRuneInString(s[end:])
	}
	return !isWordRune(prev) && !isWordRune(next)
}

// tokenIndex returns the byte offset of the first whole-token occurrence of
// needle in haystack, or -1. Both strings must already be case-folded.
// "claude" matches in "with claude." but not inside "claudette".
func tokenIndex(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			return -1
		}
		start := from + i
		end := start + len(needle)
		if boundaryOK(haystack, start, end) {
			return start
		}
		from = start + 1
	}
}

// excerptAround returns a short window of s around [start,end) for signal
// metadata, clipped to rune boundaries.
func excerptAround(s string, start, end int) string {
	const window = 40
	ls := start - window
	if ls < 0 {
		ls = 0
	}
	for ls > 0 && !utf8.RuneStart(s[ls]) {
		ls--
	}
	rs := end + window
	if rs > len(s) {
		rs = len(s)
	}
	for rs < len(s) && !utf8.RuneStart(s[rs]) {
		rs++
	}
	return s[ls:rs]
}

// shortSHA abbreviates a commit SHA for excerpts.
func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
