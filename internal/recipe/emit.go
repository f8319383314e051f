package recipe

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mpataki/recipeforge/internal/model"
)

// Emit serializes r back to canonical recipe YAML. Emit(r) followed by
// ParseBytes is required to reproduce a Recipe equal to r in every
// observable field (the loader/emitter round-trip property in spec §8).
func Emit(r *model.Recipe) ([]byte, error) {
	raw := toRaw(r)
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal recipe: %w", err)
	}
	return data, nil
}

func toRaw(r *model.Recipe) *rawRecipe {
	raw := &rawRecipe{
		ID:          r.ID,
		Label:       r.Label,
		Description: r.Description,
		InitialStep: r.InitialStep,
		Steps:       make(map[string]*rawStep, len(r.Steps)),
	}

	if r.Model != "" {
		raw.Model = string(r.Model)
	}

	def := model.DefaultGuardrails()
	if r.Guardrails != def {
		raw.Guardrails = &rawGuardrails{
			MaxStepVisits: intPtr(r.Guardrails.MaxStepVisits),
			MaxTotalSteps: intPtr(r.Guardrails.MaxTotalSteps),
			ExitOnOther:   boolPtr(r.Guardrails.ExitOnOther),
		}
	}

	for name, step := range r.Steps {
		rs := &rawStep{
			Prompt:    step.Prompt,
			Outcomes:  append([]string(nil), step.Outcomes...),
			OnOutcome: make(map[string]*rawTransition, len(step.OnOutcome)),
		}
		if step.Model != "" {
			rs.Model = string(step.Model)
		}
		for outcome, t := range step.OnOutcome {
			rs.OnOutcome[outcome] = fromModelTransition(t)
		}
		raw.Steps[name] = rs
	}

	return raw
}

func fromModelTransition(t model.Transition) *rawTransition {
	switch t.Kind {
	case model.TransitionNextStep:
		return &rawTransition{NextStep: t.NextStepName}
	case model.TransitionExit:
		return &rawTransition{Action: "exit", Reason: t.ExitReason}
	case model.TransitionRestartNewSession:
		return &rawTransition{Action: "restart-new-session", RecipeID: t.RestartRecipeID}
	default:
		return &rawTransition{}
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
