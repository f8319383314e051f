package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpataki/recipeforge/internal/model"
)

func TestBuildStep_Deterministic(t *testing.T) {
	step := &model.Step{
		Name:     "code-review",
		Prompt:   "Review the diff for correctness.",
		Outcomes: []string{"issues-found", "no-issues", "other"},
	}

	a := BuildStep(step)
	b := BuildStep(step)
	assert.Equal(t, a, b)
}

func TestBuildStep_OutcomeOrdering(t *testing.T) {
	step := &model.Step{
		Prompt:   "Do the thing.",
		Outcomes: []string{"other", "zeta", "alpha"},
	}

	out := BuildStep(step)
	alphaIdx := indexOf(out, `"alpha"`)
	zetaIdx := indexOf(out, `"zeta"`)
	otherIdx := indexOf(out, `"other"`)

	assert.True(t, alphaIdx < zetaIdx, "non-other outcomes must be lexicographically ordered")
	assert.True(t, zetaIdx < otherIdx, "other must always be last")
}

func TestBuildStep_ContainsPrompt(t *testing.T) {
	step := &model.Step{Prompt: "Commit the change.", Outcomes: []string{"committed"}}
	out := BuildStep(step)
	assert.Contains(t, out, "Commit the change.")
}

func TestBuildReminder_ContainsErrorAndExamples(t *testing.T) {
	step := &model.Step{Outcomes: []string{"done", "other"}}
	out := BuildReminder(step, "No JSON block found in response")

	assert.Contains(t, out, "No JSON block found in response")
	assert.Contains(t, out, `{"outcome": "done"}`)
	assert.Contains(t, out, `"otherDescription"`)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
