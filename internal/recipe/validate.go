package recipe

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mpataki/recipeforge/internal/model"
)

// Validate runs the structural rules of spec §4.2 against r and returns
// every violation found, in a stable order. An empty result means r is
// safe to execute. Validate is pure: repeated calls on the same *Recipe
// return the same errors (spec §8, "Validator idempotence").
func Validate(r *model.Recipe) []string {
	var errs []string

	// Rule 1: initial step must be a key of steps.
	if _, ok := r.Steps[r.InitialStep]; !ok {
		errs = append(errs, fmt.Sprintf("initial step %q is not a defined step", r.InitialStep))
	}

	stepNames := make([]string, 0, len(r.Steps))
	for name := range r.Steps {
		stepNames = append(stepNames, name)
	}
	sort.Strings(stepNames)

	for _, name := range stepNames {
		step := r.Steps[name]

		// Rule 7: non-blank prompt, non-empty outcomes, present onOutcome.
		if strings.TrimSpace(step.Prompt) == "" {
			errs = append(errs, fmt.Sprintf("step %q has a blank prompt", name))
		}
		if len(step.Outcomes) == 0 {
			errs = append(errs, fmt.Sprintf("step %q declares no outcomes", name))
		}
		if step.OnOutcome == nil {
			errs = append(errs, fmt.Sprintf("step %q has no onOutcome mapping", name))
		}

		outcomeSet := make(map[string]bool, len(step.Outcomes))
		for _, o := range step.Outcomes {
			outcomeSet[o] = true
		}

		// Rule 2: every onOutcome key must be a declared outcome.
		onOutcomeKeys := make([]string, 0, len(step.OnOutcome))
		for outcome := range step.OnOutcome {
			onOutcomeKeys = append(onOutcomeKeys, outcome)
		}
		sort.Strings(onOutcomeKeys)
		for _, outcome := range onOutcomeKeys {
			if !outcomeSet[outcome] {
				errs = append(errs, fmt.Sprintf("step %q: onOutcome key %q is not in outcomes", name, outcome))
			}
		}

		// Rule 3: every declared outcome must have an onOutcome entry.
		for _, outcome := range step.Outcomes {
			if _, ok := step.OnOutcome[outcome]; !ok {
				errs = append(errs, fmt.Sprintf("step %q: outcome %q has no onOutcome entry", name, outcome))
			}
		}

		for _, outcome := range onOutcomeKeys {
			t := step.OnOutcome[outcome]
			switch t.Kind {
			case model.TransitionNextStep:
				// Rule 4: NextStep target must be a defined step.
				if _, ok := r.Steps[t.NextStepName]; !ok {
					errs = append(errs, fmt.Sprintf("step %q outcome %q: nextStep target %q is not a defined step", name, outcome, t.NextStepName))
				}
			case model.TransitionExit:
				// Rule 5: Exit.reason must be non-empty.
				if strings.TrimSpace(t.ExitReason) == "" {
					errs = append(errs, fmt.Sprintf("step %q outcome %q: exit transition has an empty reason", name, outcome))
				}
			case model.TransitionRestartNewSession:
				// Rule 5: RestartNewSession.recipeId must be non-empty.
				if strings.TrimSpace(t.RestartRecipeID) == "" {
					errs = append(errs, fmt.Sprintf("step %q outcome %q: restart-new-session transition has an empty recipeId", name, outcome))
				}
			}
		}

		// Rule 6: step-level model must be in the closed tier set, if set.
		if step.Model != "" && !step.Model.Valid() {
			errs = append(errs, fmt.Sprintf("step %q: model %q is not one of haiku, sonnet, opus", name, step.Model))
		}
	}

	// Rule 6: recipe-level model must be in the closed tier set, if set.
	if r.Model != "" && !r.Model.Valid() {
		errs = append(errs, fmt.Sprintf("recipe model %q is not one of haiku, sonnet, opus", r.Model))
	}

	return errs
}
