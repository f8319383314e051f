// Package recipe parses recipe definitions from YAML into the engine's
// data model (internal/model) and validates the result before execution.
package recipe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mpataki/recipeforge/internal/model"
)

// rawRecipe mirrors the on-disk YAML shape described in spec §4.1.
type rawRecipe struct {
	ID          string               `yaml:"id"`
	Label       string               `yaml:"label"`
	Description string               `yaml:"description"`
	InitialStep string               `yaml:"initialStep"`
	Model       string               `yaml:"model,omitempty"`
	Guardrails  *rawGuardrails       `yaml:"guardrails,omitempty"`
	Steps       map[string]*rawStep  `yaml:"steps"`
}

type rawGuardrails struct {
	MaxStepVisits *int  `yaml:"maxStepVisits,omitempty"`
	MaxTotalSteps *int  `yaml:"maxTotalSteps,omitempty"`
	ExitOnOther   *bool `yaml:"exitOnOther,omitempty"`
}

type rawStep struct {
	Prompt    string                    `yaml:"prompt"`
	Outcomes  []string                  `yaml:"outcomes"`
	OnOutcome map[string]*rawTransition `yaml:"onOutcome"`
	Model     string                    `yaml:"model,omitempty"`
}

// rawTransition is discriminated by field presence, in the fixed priority
// order fixed by spec §6: nextStep, then action=="exit", then
// action=="restart-new-session". Any other shape is a loader error.
type rawTransition struct {
	NextStep string `yaml:"nextStep,omitempty"`
	Action   string `yaml:"action,omitempty"`
	Reason   string `yaml:"reason,omitempty"`
	RecipeID string `yaml:"recipeId,omitempty"`
}

func (t *rawTransition) toModel() (model.Transition, error) {
	switch {
	case t.NextStep != "":
		return model.NextStep(t.NextStep), nil
	case t.Action == "exit":
		if t.Reason == "" {
			return model.Transition{}, fmt.Errorf("exit transition requires a non-empty reason")
		}
		return model.Exit(t.Reason), nil
	case t.Action == "restart-new-session":
		if t.RecipeID == "" {
			return model.Transition{}, fmt.Errorf("restart-new-session transition requires a non-empty recipeId")
		}
		return model.RestartNewSession(t.RecipeID), nil
	case t.Action != "":
		return model.Transition{}, fmt.Errorf("unknown transition action %q", t.Action)
	default:
		return model.Transition{}, fmt.Errorf("transition matches none of nextStep/exit/restart-new-session")
	}
}

// Parse reads and decodes a single recipe file. It does not validate the
// result; call Validate separately before executing it.
func Parse(path string) (*model.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}
	return ParseBytes(data)
}

// ParseBytes decodes recipe YAML already read into memory.
func ParseBytes(data []byte) (*model.Recipe, error) {
	var raw rawRecipe
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse recipe YAML: %w", err)
	}
	return fromRaw(&raw)
}

func fromRaw(raw *rawRecipe) (*model.Recipe, error) {
	r := &model.Recipe{
		ID:          raw.ID,
		Label:       raw.Label,
		Description: raw.Description,
		InitialStep: raw.InitialStep,
		Steps:       make(map[string]*model.Step, len(raw.Steps)),
		Guardrails:  model.DefaultGuardrails(),
	}

	if raw.Model != "" {
		r.Model = model.ModelTier(raw.Model)
	}

	if raw.Guardrails != nil {
		if raw.Guardrails.MaxStepVisits != nil {
			r.Guardrails.MaxStepVisits = *raw.Guardrails.MaxStepVisits
		}
		if raw.Guardrails.MaxTotalSteps != nil {
			r.Guardrails.MaxTotalSteps = *raw.Guardrails.MaxTotalSteps
		}
		if raw.Guardrails.ExitOnOther != nil {
			r.Guardrails.ExitOnOther = *raw.Guardrails.ExitOnOther
		}
	}

	for name, rs := range raw.Steps {
		step := &model.Step{
			Name:      name,
			Prompt:    rs.Prompt,
			Outcomes:  append([]string(nil), rs.Outcomes...),
			OnOutcome: make(map[string]model.Transition, len(rs.OnOutcome)),
		}
		if rs.Model != "" {
			step.Model = model.ModelTier(rs.Model)
		}
		for outcome, rt := range rs.OnOutcome {
			t, err := rt.toModel()
			if err != nil {
				return nil, fmt.Errorf("recipe %q step %q outcome %q: %w", raw.ID, name, outcome, err)
			}
			step.OnOutcome[outcome] = t
		}
		r.Steps[name] = step
	}

	return r, nil
}

// LoadAll parses every .yaml/.yml file in each directory of dirs, sorted by
// filename within a directory, keyed by recipe ID (falling back to the
// filename stem when the recipe does not declare one). When two files share
// an id, the first one loaded is kept. Missing directories
// are skipped rather than treated as errors, matching the teacher's
// LoadAll.
func LoadAll(dirs []string) (map[string]*model.Recipe, error) {
	recipes := make(map[string]*model.Recipe)

	for _, dir := range dirs {
		if err := loadFromDir(dir, recipes); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load recipes from %s: %w", dir, err)
		}
	}

	return recipes, nil
}

func loadFromDir(dir string, recipes map[string]*model.Recipe) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") || strings.HasSuffix(n, ".yml") {
			names = append(names, n)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		r, err := Parse(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		id := r.ID
		if id == "" {
			id = strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
			r.ID = id
		}
		if _, exists := recipes[id]; exists {
			continue
		}
		recipes[id] = r
	}

	return nil
}
