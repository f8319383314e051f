package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpataki/recipeforge/internal/model"
)

// scriptedBackend replays a fixed, ordered sequence of response texts
// regardless of which session asked for them, matching the engine's
// single-threaded-per-run scheduling model (spec §5).
type scriptedBackend struct {
	responses []string
	idx       int
	calls     []recordedCall
}

type recordedCall struct {
	sessionID    string
	isNewSession bool
}

func (b *scriptedBackend) SendPrompt(ctx context.Context, prompt, sessionID string, isNewSession bool, workingDir, modelID string, envOverride map[string]string) (model.AgentResponse, error) {
	b.calls = append(b.calls, recordedCall{sessionID: sessionID, isNewSession: isNewSession})
	if b.idx >= len(b.responses) {
		return model.AgentResponse{}, fmt.Errorf("scriptedBackend: no more responses queued (call %d)", len(b.calls))
	}
	text := b.responses[b.idx]
	b.idx++
	return model.AgentResponse{Success: true, ResponseText: text, SessionID: sessionID}, nil
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) ResolveModel(tier model.ModelTier) string { return string(tier) }

// collectingRecorder captures every event for assertions.
type collectingRecorder struct {
	events []Event
}

func (c *collectingRecorder) Record(e Event) { c.events = append(c.events, e) }

func (c *collectingRecorder) kinds(kind EventKind) []Event {
	var out []Event
	for _, e := range c.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func sequentialSessionIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func reviewAndCommitRecipe() *model.Recipe {
	return &model.Recipe{
		ID:          "review-and-commit",
		InitialStep: "code-review",
		Guardrails:  model.DefaultGuardrails(),
		Steps: map[string]*model.Step{
			"code-review": {
				Name:     "code-review",
				Prompt:   "Review the diff.",
				Outcomes: []string{"issues-found", "no-issues"},
				OnOutcome: map[string]model.Transition{
					"issues-found": model.NextStep("code-review"),
					"no-issues":    model.NextStep("commit"),
				},
			},
			"commit": {
				Name:     "commit",
				Prompt:   "Commit the change.",
				Outcomes: []string{"committed"},
				OnOutcome: map[string]model.Transition{
					"committed": model.Exit("changes-committed"),
				},
			},
		},
	}
}

func TestRun_ScenarioA_HappyPathThreeStepRun(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		`looks clean. {"outcome": "no-issues"}`,
		`done. {"outcome": "committed"}`,
	}}
	reg := NewRegistry(map[string]*model.Recipe{"review-and-commit": reviewAndCommitRecipe()})
	rec := &collectingRecorder{}
	eng := New(backend, reg, rec)

	result, err := eng.Run(context.Background(), "review-and-commit", Options{SessionIDFactory: sequentialSessionIDs("s")})
	require.NoError(t, err)
	assert.Equal(t, "changes-committed", result.Status)
	assert.Equal(t, 2, result.StepCount)
	assert.Len(t, backend.calls, 2)
}

func reviewFixLoopRecipe(maxStepVisits int) *model.Recipe {
	g := model.DefaultGuardrails()
	g.MaxStepVisits = maxStepVisits
	return &model.Recipe{
		ID:          "review-fix-loop",
		InitialStep: "code-review",
		Guardrails:  g,
		Steps: map[string]*model.Step{
			"code-review": {
				Prompt:   "Review.",
				Outcomes: []string{"issues-found"},
				OnOutcome: map[string]model.Transition{
					"issues-found": model.NextStep("fix"),
				},
			},
			"fix": {
				Prompt:   "Fix.",
				Outcomes: []string{"complete"},
				OnOutcome: map[string]model.Transition{
					"complete": model.NextStep("code-review"),
				},
			},
		},
	}
}

func TestRun_ScenarioB_BoundedReviewFixLoop(t *testing.T) {
	responses := make([]string, 0, 8)
	for i := 0; i < 4; i++ {
		responses = append(responses, `{"outcome": "issues-found"}`, `{"outcome": "complete"}`)
	}
	backend := &scriptedBackend{responses: responses}
	reg := NewRegistry(map[string]*model.Recipe{"review-fix-loop": reviewFixLoopRecipe(3)})
	eng := New(backend, reg, nil)

	_, err := eng.Run(context.Background(), "review-fix-loop", Options{SessionIDFactory: sequentialSessionIDs("s")})
	require.Error(t, err)

	guardErr, ok := err.(*model.GuardrailError)
	require.True(t, ok, "expected *model.GuardrailError, got %T", err)
	assert.Equal(t, "max-step-visits-exceeded:code-review", guardErr.Reason)
}

func reminderRecipe() *model.Recipe {
	return &model.Recipe{
		ID:          "single-step",
		InitialStep: "only",
		Guardrails:  model.DefaultGuardrails(),
		Steps: map[string]*model.Step{
			"only": {
				Prompt:   "Say done or other.",
				Outcomes: []string{"done", "other"},
				OnOutcome: map[string]model.Transition{
					"done":  model.Exit("done"),
					"other": model.Exit("other"),
				},
			},
		},
	}
}

func TestRun_ScenarioC_ReminderSucceeds(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		"ok",
		`{"outcome": "done"}`,
	}}
	reg := NewRegistry(map[string]*model.Recipe{"single-step": reminderRecipe()})
	rec := &collectingRecorder{}
	eng := New(backend, reg, rec)

	result, err := eng.Run(context.Background(), "single-step", Options{SessionIDFactory: sequentialSessionIDs("s")})
	require.NoError(t, err)
	assert.Equal(t, "done", result.Status)
	assert.Len(t, rec.kinds(EventReminder), 1)
	assert.Len(t, backend.calls, 2)
}

func TestRun_ScenarioD_ReminderFails(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		"ok",
		"still no JSON here",
	}}
	reg := NewRegistry(map[string]*model.Recipe{"single-step": reminderRecipe()})
	eng := New(backend, reg, nil)

	_, err := eng.Run(context.Background(), "single-step", Options{SessionIDFactory: sequentialSessionIDs("s")})
	require.Error(t, err)
	_, ok := err.(*model.ExtractionError)
	assert.True(t, ok, "expected *model.ExtractionError, got %T", err)
	assert.Len(t, backend.calls, 2)
}

func implementAndReviewAllRecipe() *model.Recipe {
	return &model.Recipe{
		ID:          "implement-and-review-all",
		InitialStep: "implement",
		Guardrails:  model.DefaultGuardrails(),
		Steps: map[string]*model.Step{
			"implement": {
				Prompt:   "Implement the next task, if any.",
				Outcomes: []string{"complete", "no-tasks"},
				OnOutcome: map[string]model.Transition{
					"complete": model.RestartNewSession("implement-and-review-all"),
					"no-tasks": model.Exit("no-tasks"),
				},
			},
		},
	}
}

func TestRun_ScenarioE_RestartLoopsUntilNoTasks(t *testing.T) {
	backend := &scriptedBackend{responses: []string{
		`{"outcome": "complete"}`,
		`{"outcome": "complete"}`,
		`{"outcome": "no-tasks"}`,
	}}
	reg := NewRegistry(map[string]*model.Recipe{"implement-and-review-all": implementAndReviewAllRecipe()})
	rec := &collectingRecorder{}
	eng := New(backend, reg, rec)

	result, err := eng.Run(context.Background(), "implement-and-review-all", Options{SessionIDFactory: sequentialSessionIDs("session")})
	require.NoError(t, err)
	assert.Equal(t, "no-tasks", result.Status)

	sessions := map[string]bool{}
	for _, c := range backend.calls {
		sessions[c.sessionID] = true
	}
	assert.Len(t, sessions, 3, "expected three distinct session identifiers")
	assert.Len(t, rec.kinds(EventRestart), 2)
}

func brokenRecipe() *model.Recipe {
	return &model.Recipe{
		ID:          "broken",
		InitialStep: "missing",
		Guardrails:  model.DefaultGuardrails(),
		Steps: map[string]*model.Step{
			"only": {
				Prompt:   "x",
				Outcomes: []string{"go"},
				OnOutcome: map[string]model.Transition{
					"go": model.NextStep("also-missing"),
				},
			},
		},
	}
}

func TestRun_ScenarioF_ValidatorRefusesBrokenRecipe(t *testing.T) {
	backend := &scriptedBackend{}
	reg := NewRegistry(map[string]*model.Recipe{"broken": brokenRecipe()})
	eng := New(backend, reg, nil)

	_, err := eng.Run(context.Background(), "broken", Options{})
	require.Error(t, err)

	valErr, ok := err.(*model.ValidationError)
	require.True(t, ok, "expected *model.ValidationError, got %T", err)
	assert.GreaterOrEqual(t, len(valErr.Errors), 2)
	assert.Empty(t, backend.calls, "the backend must never be invoked for an invalid recipe")
}

func TestRun_UnknownRecipeIsConfigError(t *testing.T) {
	reg := NewRegistry(map[string]*model.Recipe{})
	eng := New(&scriptedBackend{}, reg, nil)

	_, err := eng.Run(context.Background(), "nope", Options{})
	require.Error(t, err)
	_, ok := err.(*model.ConfigError)
	assert.True(t, ok)
}
