package main

import (
	"log/slog"

	"github.com/mpataki/recipeforge/internal/engine"
)

// multiRecorder fans a single event out to every recorder in the slice. A
// nil entry is skipped, so an unopened audit store can be passed through
// without a guard at every call site.
type multiRecorder []engine.Recorder

func (m multiRecorder) Record(e engine.Event) {
	for _, r := range m {
		if r != nil {
			r.Record(e)
		}
	}
}

// slogRecorder renders each event as a structured debug-level log line,
// implementing the --verbose flag from spec §6.
type slogRecorder struct {
	logger *slog.Logger
}

func (s slogRecorder) Record(e engine.Event) {
	s.logger.Debug(string(e.Kind),
		"run", e.RunID,
		"recipe", e.RecipeID,
		"session", e.SessionID,
		"step", e.Step,
		"detail", e.Detail,
		"stepCount", e.StepCount,
		"visit", e.Visit,
	)
}
