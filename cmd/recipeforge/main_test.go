package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpataki/recipeforge/internal/model"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &model.ValidationError{RecipeID: "r", Errors: []string{"x"}}, 1},
		{"extraction", &model.ExtractionError{Step: "s", Reason: "x"}, 2},
		{"guardrail", &model.GuardrailError{Reason: "x"}, 3},
		{"backend", &model.BackendError{Backend: "b", Reason: "x"}, 4},
		{"config", &model.ConfigError{Reason: "x"}, 5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeFor(tc.err))
		})
	}
}
