// Package engine implements the orchestration loop of spec §4.6: it
// consults execution state, asks the prompt builder for the next prompt,
// drives the backend, hands the response to the outcome extractor, and
// applies the resulting transition. The engine is the sole authority over
// control flow — an agent's free text can never select a transition, only
// its declared outcome token can.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mpataki/recipeforge/internal/backend"
	"github.com/mpataki/recipeforge/internal/extract"
	"github.com/mpataki/recipeforge/internal/model"
	"github.com/mpataki/recipeforge/internal/prompt"
)

// DefaultStepDeadline is the recommended per-invocation deadline for a
// recipe-driven step (spec §5).
const DefaultStepDeadline = 24 * time.Hour

// UnlimitedRestarts is the sentinel Options.MaxRestarts value meaning no
// CLI-provided cap on RestartNewSession transitions.
const UnlimitedRestarts = -1

// Options configures a single call to Run. Zero-value fields fall back to
// the documented defaults.
type Options struct {
	WorkingDir string
	Env        map[string]string

	// ModelOverride is the CLI --model flag. It is the last fallback: a
	// per-step tier wins, then the recipe's default tier, then this value
	// (see resolveTier).
	ModelOverride model.ModelTier

	// MaxStepVisitsOverride and MaxTotalStepsOverride are the CLI
	// --max-visits/--max-steps flags. Guardrails cannot be overridden by
	// the agent; only by these caller-supplied values (spec §7).
	MaxStepVisitsOverride *int
	MaxTotalStepsOverride *int

	// MaxRestarts caps RestartNewSession transitions across the whole
	// call to Run. UnlimitedRestarts (the default) means no cap; the
	// initial run is never counted (spec §9, Open Question ii).
	MaxRestarts int

	StepDeadline time.Duration

	// SessionIDFactory generates a fresh session id on the initial run
	// and on every restart. Defaults to uuid.NewString.
	SessionIDFactory func() string
}

func (o Options) withDefaults() Options {
	if o.StepDeadline == 0 {
		o.StepDeadline = DefaultStepDeadline
	}
	if o.MaxRestarts == 0 {
		o.MaxRestarts = UnlimitedRestarts
	}
	if o.SessionIDFactory == nil {
		o.SessionIDFactory = uuid.NewString
	}
	return o
}

// RunResult is the outcome of a completed (non-error) run: an Exit
// transition was reached somewhere in the (possibly restarted) chain.
type RunResult struct {
	Status    string // the Exit transition's reason, preserved verbatim
	SessionID string
	StepCount int
}

// Engine drives recipe runs against a single Backend.
type Engine struct {
	Backend  backend.Backend
	Registry *Registry
	Locker   *SessionLocker
	Recorder Recorder
}

// New constructs an Engine. recorder may be nil.
func New(b backend.Backend, reg *Registry, recorder Recorder) *Engine {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Engine{
		Backend:  b,
		Registry: reg,
		Locker:   NewSessionLocker(),
		Recorder: recorder,
	}
}

// restartRequest is returned internally by runOnce when a
// RestartNewSession transition was taken.
type restartRequest struct {
	recipeID string
}

// Run executes recipeID to completion, following RestartNewSession
// transitions until an Exit transition is reached or an error terminates
// the run. The returned error, when non-nil, is always one of
// *model.ValidationError, *model.ExtractionError (encoded as
// "orchestration-error" per spec §7 — the error itself carries the
// underlying reason), *model.GuardrailError, *model.BackendError, or
// *model.ConfigError.
func (e *Engine) Run(ctx context.Context, recipeID string, opts Options) (*RunResult, error) {
	opts = opts.withDefaults()
	runID := uuid.NewString()
	sessionID := opts.SessionIDFactory()
	restartsUsed := 0

	for {
		rec, err := e.Registry.Get(recipeID)
		if err != nil {
			e.Recorder.Record(Event{RunID: runID, RecipeID: recipeID, SessionID: sessionID, Kind: EventRunEnd, Detail: err.Error()})
			return nil, err
		}

		result, restart, err := e.runOnce(ctx, runID, sessionID, rec, opts)
		if err != nil {
			e.Recorder.Record(Event{RunID: runID, RecipeID: recipeID, SessionID: sessionID, Kind: EventRunEnd, Detail: err.Error()})
			return nil, err
		}

		if restart == nil {
			e.Recorder.Record(Event{RunID: runID, RecipeID: recipeID, SessionID: sessionID, Kind: EventRunEnd, Detail: result.Status, StepCount: result.StepCount})
			return result, nil
		}

		restartsUsed++
		if opts.MaxRestarts != UnlimitedRestarts && restartsUsed > opts.MaxRestarts {
			guardErr := &model.GuardrailError{Reason: "max-restarts-exceeded"}
			e.Recorder.Record(Event{RunID: runID, RecipeID: recipeID, SessionID: sessionID, Kind: EventGuardrailTrip, Detail: guardErr.Reason})
			return nil, guardErr
		}

		recipeID = restart.recipeID
		sessionID = opts.SessionIDFactory()
		e.Recorder.Record(Event{RunID: runID, RecipeID: recipeID, SessionID: sessionID, Kind: EventRestart})
	}
}

// runOnce drives a single ExecutionState from the recipe's initial step
// until an Exit or RestartNewSession transition, or a fatal error. It
// owns the ExecutionState exclusively for its duration and holds the
// session lock for sessionID for the same duration (spec §5).
func (e *Engine) runOnce(ctx context.Context, runID, sessionID string, rec *model.Recipe, opts Options) (*RunResult, *restartRequest, error) {
	release := e.Locker.Acquire(sessionID)
	defer release()

	guardrails := effectiveGuardrails(rec.Guardrails, opts)
	state := model.NewExecutionState(rec.ID, rec.InitialStep, time.Now())

	for {
		step := rec.Step(state.CurrentStep)
		e.Recorder.Record(Event{
			RunID: runID, RecipeID: rec.ID, SessionID: sessionID, Step: state.CurrentStep,
			Kind: EventStepStart, StepCount: state.StepCount, Visit: state.VisitCount(state.CurrentStep),
		})

		tier := resolveTier(step.Model, rec.Model, opts.ModelOverride)
		modelID := e.Backend.ResolveModel(tier)
		promptText := prompt.BuildStep(step)
		isNewSession := !state.SessionCreated

		resp, err := e.send(ctx, promptText, sessionID, isNewSession, opts.WorkingDir, modelID, opts.Env, opts.StepDeadline)
		if err != nil {
			return nil, nil, err
		}
		state.MarkSessionCreated()

		result := extract.Extract(resp.ResponseText, step.Outcomes)
		if !result.Success {
			if state.RetryCount(state.CurrentStep) == 0 {
				state.IncrementRetry(state.CurrentStep)
				e.Recorder.Record(Event{RunID: runID, RecipeID: rec.ID, SessionID: sessionID, Step: state.CurrentStep, Kind: EventReminder})

				reminder := prompt.BuildReminder(step, result.Error)
				resp2, err := e.send(ctx, reminder, sessionID, false, opts.WorkingDir, modelID, opts.Env, opts.StepDeadline)
				if err != nil {
					return nil, nil, err
				}
				result = extract.Extract(resp2.ResponseText, step.Outcomes)
			}
			if !result.Success {
				return nil, nil, &model.ExtractionError{Step: state.CurrentStep, Reason: result.Error}
			}
		}

		transition, ok := step.OnOutcome[result.Outcome]
		if !ok {
			// Cannot happen against a validated recipe (total coverage,
			// spec §4.2 rule 3) combined with extractor rule 5, which
			// already rejects outcomes outside the step's set.
			return nil, nil, &model.ExtractionError{Step: state.CurrentStep, Reason: fmt.Sprintf("outcome %q has no transition", result.Outcome)}
		}

		e.Recorder.Record(Event{RunID: runID, RecipeID: rec.ID, SessionID: sessionID, Step: state.CurrentStep, Kind: EventTransition, Detail: result.Outcome})

		switch transition.Kind {
		case model.TransitionExit:
			return &RunResult{Status: transition.ExitReason, SessionID: sessionID, StepCount: state.StepCount}, nil, nil

		case model.TransitionRestartNewSession:
			return nil, &restartRequest{recipeID: transition.RestartRecipeID}, nil

		case model.TransitionNextStep:
			target := transition.NextStepName
			if state.VisitCount(target)+1 > guardrails.MaxStepVisits {
				reason := fmt.Sprintf("max-step-visits-exceeded:%s", target)
				e.Recorder.Record(Event{RunID: runID, RecipeID: rec.ID, SessionID: sessionID, Step: state.CurrentStep, Kind: EventGuardrailTrip, Detail: reason})
				return nil, nil, &model.GuardrailError{Reason: reason}
			}
			if state.StepCount == guardrails.MaxTotalSteps {
				e.Recorder.Record(Event{RunID: runID, RecipeID: rec.ID, SessionID: sessionID, Step: state.CurrentStep, Kind: EventGuardrailTrip, Detail: "max-total-steps"})
				return nil, nil, &model.GuardrailError{Reason: "max-total-steps"}
			}
			state.TransitionTo(target)
		}
	}
}

func (e *Engine) send(ctx context.Context, promptText, sessionID string, isNewSession bool, workingDir, modelID string, env map[string]string, deadline time.Duration) (model.AgentResponse, error) {
	stepCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	resp, err := e.Backend.SendPrompt(stepCtx, promptText, sessionID, isNewSession, workingDir, modelID, env)
	if err != nil {
		return model.AgentResponse{}, err
	}
	if !resp.Success {
		return model.AgentResponse{}, &model.BackendError{Backend: e.Backend.Name(), Reason: resp.Error}
	}
	return resp, nil
}

// resolveTier applies the fallback order step ?? recipe ?? cliOverride.
func resolveTier(step, recipe, cliOverride model.ModelTier) model.ModelTier {
	if step != "" {
		return step
	}
	if recipe != "" {
		return recipe
	}
	return cliOverride
}

// effectiveGuardrails applies CLI overrides on top of the recipe's own
// guardrails without mutating the (immutable) recipe.
func effectiveGuardrails(g model.Guardrails, opts Options) model.Guardrails {
	if opts.MaxStepVisitsOverride != nil {
		g.MaxStepVisits = *opts.MaxStepVisitsOverride
	}
	if opts.MaxTotalStepsOverride != nil {
		g.MaxTotalSteps = *opts.MaxTotalStepsOverride
	}
	return g
}
