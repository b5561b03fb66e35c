package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/domain"
)

// Validation errors distinguishing why a response failed the contract. The
// classifier adapter routes on them: a truncated object suggests the model
// ran out of tokens mid-answer, everything else is a schema violation.
var (
	// ErrNoJSON indicates the response contains no JSON object at all.
	ErrNoJSON = errors.New("no JSON object found in response")

	// ErrTruncatedJSON indicates a JSON object starts but never closes,
	// the signature of a token-limit truncation.
	ErrTruncatedJSON = errors.New("truncated JSON object in response")
)

// classifierResponse is the structured-output contract. Pointer fields
// distinguish a missing key from a legitimate false/zero value: a record
// with no AI assistance answers {"is_ai_assisted": false, ...} and must
// validate.
type classifierResponse struct {
	IsAIAssisted *bool    `json:"is_ai_assisted" validate:"required"`
	Confidence   *float64 `json:"confidence" validate:"required,min=0.0,max=1.0"`
	Tool         string   `json:"tool" validate:"omitempty,max=200"`
	Category     string   `json:"category" validate:"omitempty,max=200"`
}

// ValidateResponse parses and validates a raw classifier response against
// the output contract. A conforming response yields a result stamped with
// the renderer's version; anything else is an error, never a coerced
// default.
func (r *Renderer) ValidateResponse(recordID, raw string) (domain.ClassifierResult, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return domain.ClassifierResult{}, fmt.Errorf("record %s: %w", recordID, err)
	}

	var resp classifierResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return domain.ClassifierResult{}, fmt.Errorf("record %s: failed to parse response JSON: %w", recordID, err)
	}

	if err := r.validator.Struct(resp); err != nil {
		return domain.ClassifierResult{}, fmt.Errorf("record %s: response violates output contract: %w", recordID, err)
	}

	return domain.ClassifierResult{
		RecordID:      recordID,
		IsAIAssisted:  *resp.IsAIAssisted,
		Confidence:    *resp.Confidence,
		Tool:          resp.Tool,
		Category:      resp.Category,
		RawResponse:   raw,
		PromptVersion: r.version,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// extractJSON pulls the first JSON object out of a response that may carry
// surrounding prose or markdown fences. It returns ErrNoJSON when no object
// starts and ErrTruncatedJSON when an object starts but never balances.
func extractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```json") {
		start := strings.Index(response, "```json") + 7
		if end := strings.Index(response[start:], "```"); end != -1 {
			response = strings.TrimSpace(response[start : start+end])
		} else {
			// Opened fence without a close: keep scanning the tail so a
			// truncated fenced object still reports as truncated.
			response = strings.TrimSpace(response[start:])
		}
	} else if strings.Contains(response, "```") {
		start := strings.Index(response, "```") + 3
		if newline := strings.Index(response[start:], "\n"); newline != -1 {
			start += newline + 1
		}
		if end := strings.Index(response[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(response[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				response = candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return "", ErrNoJSON
	}

	// Find the matching closing brace, tracking strings and escapes so
	// braces inside values do not miscount.
	braceCount := 0
	inString := false
	escapeNext := false

	for i := start; i < len(response); i++ {
		char := response[i]

		if escapeNext {
			escapeNext = false
			continue
		}

		if char == '\\' {
			escapeNext = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return response[start : i+1], nil
				}
			}
		}
	}

	return "", ErrTruncatedJSON
}
