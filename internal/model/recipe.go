// Package model holds the value types shared by the recipe loader,
// validator, prompt builder, outcome extractor, backend, and engine.
package model

// ModelTier is the closed set of abstract model sizes a recipe or step may
// request. The backend resolves a tier to a concrete model identifier.
type ModelTier string

const (
	TierHaiku  ModelTier = "haiku"
	TierSonnet ModelTier = "sonnet"
	TierOpus   ModelTier = "opus"
)

// Valid reports whether t is one of the three closed tiers.
func (t ModelTier) Valid() bool {
	switch t {
	case TierHaiku, TierSonnet, TierOpus:
		return true
	default:
		return false
	}
}

// TransitionKind discriminates the three closed forms a Transition may take.
type TransitionKind int

const (
	TransitionNextStep TransitionKind = iota
	TransitionExit
	TransitionRestartNewSession
)

// Transition is a tagged variant with exactly three cases, chosen by the
// loader from field presence in the recipe file and dispatched exhaustively
// by the engine. Only the fields relevant to Kind are populated.
type Transition struct {
	Kind TransitionKind

	// NextStep case.
	NextStepName string

	// Exit case.
	ExitReason string

	// RestartNewSession case.
	RestartRecipeID string
}

func NextStep(name string) Transition {
	return Transition{Kind: TransitionNextStep, NextStepName: name}
}

func Exit(reason string) Transition {
	return Transition{Kind: TransitionExit, ExitReason: reason}
}

func RestartNewSession(recipeID string) Transition {
	return Transition{Kind: TransitionRestartNewSession, RestartRecipeID: recipeID}
}

// Step is one node of the recipe's state machine: an instruction sent to
// the agent plus the total outcome-to-transition mapping that decides what
// happens next.
type Step struct {
	Name      string
	Prompt    string
	Outcomes  []string              // the declared outcome alphabet, as written in the recipe
	OnOutcome map[string]Transition // must cover every entry in Outcomes
	Model     ModelTier             // optional; zero value means "unset"
}

// HasOutcome reports whether token is a member of the step's declared
// outcome alphabet.
func (s *Step) HasOutcome(token string) bool {
	for _, o := range s.Outcomes {
		if o == token {
			return true
		}
	}
	return false
}

// Guardrails bounds runaway execution. All fields have defaults applied by
// the loader when absent from the recipe file.
type Guardrails struct {
	MaxStepVisits int  // default 3
	MaxTotalSteps int  // default 100
	ExitOnOther   bool // default true; advisory only, see spec Open Question (i)
}

// DefaultGuardrails returns the guardrail values a recipe gets when it does
// not specify its own.
func DefaultGuardrails() Guardrails {
	return Guardrails{
		MaxStepVisits: 3,
		MaxTotalSteps: 100,
		ExitOnOther:   true,
	}
}

// Recipe is a validated finite state machine of steps. Immutable after
// load: nothing in this package or its callers may mutate a Recipe once
// the loader returns it.
type Recipe struct {
	ID          string
	Label       string
	Description string
	InitialStep string
	Steps       map[string]*Step
	Guardrails  Guardrails
	Model       ModelTier // recipe-level default; optional
}

// Step looks up a step by name, returning nil if absent. Callers that have
// already validated the recipe may assume InitialStep and every NextStep
// target resolve.
func (r *Recipe) Step(name string) *Step {
	return r.Steps[name]
}
