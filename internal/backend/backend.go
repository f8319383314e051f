// Package backend defines the polymorphic capability the engine drives to
// turn a prompt into an agent response (spec §4.4). Concrete backends live
// in subpackages, e.g. internal/backend/cliagent for the subprocess-based
// reference implementation.
package backend

import (
	"context"

	"github.com/mpataki/recipeforge/internal/model"
)

// Backend turns (prompt, session flags) into an AgentResponse by driving
// an opaque agent CLI or API.
type Backend interface {
	// SendPrompt sends prompt to the agent. When isNewSession is true the
	// backend must create a new conversation addressed by sessionID; when
	// false it must resume the existing conversation, preserving prior
	// turns. modelID is the concrete identifier already resolved by
	// ResolveModel, or "" to omit the flag and let the backend pick its
	// default. envOverride entries are applied after the backend strips
	// its own nested-session variables from the inherited environment.
	SendPrompt(ctx context.Context, prompt, sessionID string, isNewSession bool, workingDir, modelID string, envOverride map[string]string) (model.AgentResponse, error)

	// Name identifies the backend for error messages and CLI selection.
	Name() string

	// ResolveModel maps an abstract tier to the backend's concrete model
	// identifier, or "" when the tier should be omitted so the backend
	// uses its own default.
	ResolveModel(tier model.ModelTier) string
}
