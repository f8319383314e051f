package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mpataki/recipeforge/internal/audit"
	"github.com/mpataki/recipeforge/internal/backend"
	"github.com/mpataki/recipeforge/internal/backend/cliagent"
	"github.com/mpataki/recipeforge/internal/config"
	"github.com/mpataki/recipeforge/internal/engine"
	"github.com/mpataki/recipeforge/internal/model"
	"github.com/mpataki/recipeforge/internal/recipe"
)

type runOptions struct {
	backendName  string
	modelTier    model.ModelTier
	maxSteps     int
	maxVisits    int
	workingDir   string
	systemPrompt string
	maxRestarts  int
}

func loadRegistry(cfg *config.Config) (*engine.Registry, error) {
	recipes, err := recipe.LoadAll(cfg.RecipeDirs)
	if err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("failed to load recipes: %v", err)}
	}
	return engine.NewRegistry(recipes), nil
}

func resolveBackend(cfg *config.Config, name, systemPrompt string) (backend.Backend, error) {
	if name == "" {
		name = cfg.DefaultBackend
	}
	switch name {
	case "cliagent", "":
		b, err := cliagent.New()
		if err != nil {
			return nil, err
		}
		b.SystemPromptAppend = systemPrompt
		if cfg.NestedSessionFlagVar != "" {
			b.NestedSessionFlagVar = cfg.NestedSessionFlagVar
		}
		if cfg.NestedSessionIDVar != "" {
			b.NestedSessionIDVar = cfg.NestedSessionIDVar
		}
		return b, nil
	default:
		return nil, &model.ConfigError{Reason: fmt.Sprintf("unknown backend %q", name)}
	}
}

func runRecipe(ctx context.Context, cfg *config.Config, recipeID string, opts runOptions, store *audit.Store, logger *slog.Logger) (*engine.RunResult, error) {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	b, err := resolveBackend(cfg, opts.backendName, opts.systemPrompt)
	if err != nil {
		return nil, err
	}

	recorder := multiRecorder{store, slogRecorder{logger}}
	eng := engine.New(b, reg, recorder)

	modelOverride := opts.modelTier
	if modelOverride == "" {
		modelOverride = cfg.DefaultModel
	}

	engOpts := engine.Options{
		WorkingDir:    opts.workingDir,
		ModelOverride: modelOverride,
		MaxRestarts:   opts.maxRestarts,
		StepDeadline:  cfg.StepDeadline,
	}
	if opts.maxVisits > 0 {
		engOpts.MaxStepVisitsOverride = &opts.maxVisits
	}
	if opts.maxSteps > 0 {
		engOpts.MaxTotalStepsOverride = &opts.maxSteps
	}

	return eng.Run(ctx, recipeID, engOpts)
}

func listCommand(cfg *config.Config, logger *slog.Logger) error {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	ids := reg.IDs()
	sort.Strings(ids)
	for _, id := range ids {
		rec, _ := reg.Peek(id)
		if rec == nil {
			continue
		}
		fmt.Printf("%s\t%s\t(initial: %s)\n", rec.ID, rec.Label, rec.InitialStep)
	}
	return nil
}

func dryRunCommand(cfg *config.Config, recipeID string, logger *slog.Logger) error {
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	rec, err := reg.Get(recipeID)
	if err != nil {
		return err
	}

	data, err := recipe.Emit(rec)
	if err != nil {
		return &model.ConfigError{Reason: fmt.Sprintf("failed to render recipe: %v", err)}
	}
	fmt.Print(string(data))
	return nil
}
