// Package prompt assembles the text sent to the agent for a step, and the
// retry reminder sent after a failed outcome extraction. Both functions are
// pure: identical Step values produce byte-identical output (spec §8).
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mpataki/recipeforge/internal/model"
)

const outcomeBlockHeader = "End your response with one of these JSON blocks on the last line:"

// BuildStep assembles the prompt sent to the agent for step: the step's
// instruction text, a blank line, then the outcome-format block.
func BuildStep(step *model.Step) string {
	var b strings.Builder
	b.WriteString(step.Prompt)
	b.WriteString("\n\n")
	b.WriteString(outcomeBlock(step.Outcomes))
	return b.String()
}

// BuildReminder assembles the retry reminder sent after a failed outcome
// extraction: it repeats the outcome-format block and asks for nothing
// else.
func BuildReminder(step *model.Step, extractionError string) string {
	var b strings.Builder
	b.WriteString("Your previous response did not include the required JSON outcome block.\n")
	b.WriteString("Please respond now with ONLY the JSON outcome on a single line.\n")
	fmt.Fprintf(&b, "Error: %s\n", extractionError)
	b.WriteString("Valid responses:\n")
	b.WriteString(outcomeExamples(step.Outcomes))
	b.WriteString("Respond with ONLY the JSON block, nothing else.")
	return b.String()
}

// outcomeBlock renders the header line plus the sorted example lines.
func outcomeBlock(outcomes []string) string {
	var b strings.Builder
	b.WriteString(outcomeBlockHeader)
	b.WriteString("\n\n")
	b.WriteString(outcomeExamples(outcomes))
	return b.String()
}

// outcomeExamples renders one JSON example line per outcome: non-"other"
// outcomes sorted lexicographically first, "other" last (with its
// otherDescription field) if present at all.
func outcomeExamples(outcomes []string) string {
	sorted := make([]string, 0, len(outcomes))
	hasOther := false
	for _, o := range outcomes {
		if o == "other" {
			hasOther = true
			continue
		}
		sorted = append(sorted, o)
	}
	sort.Strings(sorted)

	var b strings.Builder
	for _, o := range sorted {
		fmt.Fprintf(&b, "{\"outcome\": %q}\n", o)
	}
	if hasOther {
		b.WriteString(`{"outcome": "other", "otherDescription": "<brief description>"}` + "\n")
	}
	return b.String()
}
