// Package extract recovers a structured outcome from an agent's free-text
// response, per spec §4.5. The extraction order is deliberate: a JSON
// candidate is located first by scanning the tail of the response for a
// line that looks like a JSON object, and only that candidate line has
// code-fence markers stripped. Pre-stripping fences from the whole
// response would corrupt multi-line fenced code the agent may have quoted
// as part of its narration.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mpataki/recipeforge/internal/model"
)

// tailWindow is how many trailing lines are searched for a JSON candidate.
const tailWindow = 5

// Extract parses responseText looking for a trailing JSON outcome block
// whose "outcome" field belongs to validOutcomes.
func Extract(responseText string, validOutcomes []string) model.OutcomeResult {
	candidate, found := findCandidate(responseText)
	if !found {
		return model.FailureOutcome("No JSON block found in response", "")
	}

	cleaned := stripFence(candidate)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return model.FailureOutcome(fmt.Sprintf("failed to parse outcome JSON: %v", err), candidate)
	}

	outcomeAny, ok := parsed["outcome"]
	if !ok {
		return model.FailureOutcome("outcome JSON is missing the \"outcome\" field", candidate)
	}
	outcome, ok := outcomeAny.(string)
	if !ok {
		return model.FailureOutcome("outcome field is not a string", candidate)
	}

	if !contains(validOutcomes, outcome) {
		return model.FailureOutcome(fmt.Sprintf("outcome %q not in valid outcomes: %v", outcome, validOutcomes), candidate)
	}

	if outcome == "other" {
		descAny, ok := parsed["otherDescription"]
		if !ok {
			return model.FailureOutcome("outcome \"other\" requires a non-blank otherDescription field", candidate)
		}
		desc, ok := descAny.(string)
		if !ok || strings.TrimSpace(desc) == "" {
			return model.FailureOutcome("outcome \"other\" requires a non-blank otherDescription field", candidate)
		}
		return model.SuccessOutcome(outcome, desc, true)
	}

	return model.SuccessOutcome(outcome, "", false)
}

// findCandidate scans the last tailWindow lines of text from the most
// recent backwards, returning the first line whose trimmed form both
// starts with '{' and ends with '}'.
func findCandidate(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	start := len(lines) - tailWindow
	if start < 0 {
		start = 0
	}
	window := lines[start:]

	for i := len(window) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(window[i])
		if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
			return trimmed, true
		}
	}
	return "", false
}

// stripFence removes a leading ```json or ``` and a trailing ``` from a
// single candidate line, if present.
func stripFence(candidate string) string {
	s := candidate
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
