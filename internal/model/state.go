package model

import "time"

// ExecutionState is the mutable per-run bookkeeping the engine owns for the
// lifetime of a single recipe run. No component outside the engine may
// mutate it; the engine discards and replaces it wholesale on
// RestartNewSession.
type ExecutionState struct {
	RecipeID      string
	CurrentStep   string
	StepCount     int // starts at 1, counting the initial step
	visits        map[string]int
	retries       map[string]int
	StartedAt     time.Time
	SessionCreated bool
}

// NewExecutionState creates the state for a fresh run entering
// initialStep. StepCount starts at 1 and the initial step's visit count
// starts at 1, per spec.
func NewExecutionState(recipeID, initialStep string, startedAt time.Time) *ExecutionState {
	s := &ExecutionState{
		RecipeID:    recipeID,
		CurrentStep: initialStep,
		StepCount:   1,
		visits:      make(map[string]int),
		retries:     make(map[string]int),
		StartedAt:   startedAt,
	}
	s.visits[initialStep] = 1
	return s
}

// VisitCount returns how many times step has been entered so far,
// including the current visit if step is the current step.
func (s *ExecutionState) VisitCount(step string) int {
	return s.visits[step]
}

// RetryCount returns how many reminders have been sent for step's current
// visit. Cleared to 0 whenever the step is (re-)entered via TransitionTo.
func (s *ExecutionState) RetryCount(step string) int {
	return s.retries[step]
}

// IncrementRetry records that a reminder was sent for the current step.
func (s *ExecutionState) IncrementRetry(step string) {
	s.retries[step]++
}

// MarkSessionCreated records that the backend has been asked, at least
// once, to create sessionId as a new session. Subsequent invocations in
// this run must resume rather than create.
func (s *ExecutionState) MarkSessionCreated() {
	s.SessionCreated = true
}

// TransitionTo moves execution to step: increments StepCount, increments
// step's visit counter, resets step's retry counter, and sets CurrentStep.
// Guardrail checks happen in the engine before this is called.
func (s *ExecutionState) TransitionTo(step string) {
	s.CurrentStep = step
	s.StepCount++
	s.visits[step]++
	s.retries[step] = 0
}
