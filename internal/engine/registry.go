package engine

import (
	"sync"

	"github.com/mpataki/recipeforge/internal/model"
	"github.com/mpataki/recipeforge/internal/recipe"
)

// Registry resolves recipe ids to validated recipes for the engine.
// Validation runs at most once per recipe (spec §4.2: "runs once per
// loaded recipe before execution begins") and its result is cached so a
// RestartNewSession loop that keeps returning to the same recipe id does
// not re-validate on every iteration.
type Registry struct {
	mu      sync.Mutex
	recipes map[string]*model.Recipe
	checked map[string]bool
}

// NewRegistry wraps a pre-loaded recipe set, e.g. the result of
// recipe.LoadAll.
func NewRegistry(recipes map[string]*model.Recipe) *Registry {
	return &Registry{recipes: recipes, checked: make(map[string]bool)}
}

// Get returns the validated recipe for id, or a *model.ValidationError if
// validation fails, or a *model.ConfigError if id is unknown.
func (r *Registry) Get(id string) (*model.Recipe, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recipes[id]
	if !ok {
		return nil, &model.ConfigError{Reason: "unknown recipe id: " + id}
	}

	if r.checked[id] {
		return rec, nil
	}

	if errs := recipe.Validate(rec); len(errs) > 0 {
		return nil, &model.ValidationError{RecipeID: id, Errors: errs}
	}
	r.checked[id] = true
	return rec, nil
}

// IDs returns every loaded recipe id, unordered.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.recipes))
	for id := range r.recipes {
		ids = append(ids, id)
	}
	return ids
}

// Peek returns the recipe for id without running validation, or nil if
// id is unknown. Used by callers (--list) that want to inspect a recipe's
// declared structure regardless of whether it is valid.
func (r *Registry) Peek(id string) (*model.Recipe, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipes[id]
	return rec, ok
}
