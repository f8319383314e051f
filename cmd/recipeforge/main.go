// Command recipeforge drives a recipe (spec §2) against an agent CLI
// backend. Command form: recipeforge [options] <recipe-id>.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mpataki/recipeforge/internal/audit"
	"github.com/mpataki/recipeforge/internal/config"
	"github.com/mpataki/recipeforge/internal/model"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		backendName  string
		modelTier    string
		maxSteps     int
		maxVisits    int
		workingDir   string
		systemPrompt string
		maxRestarts  int
		verbose      bool
		dryRun       bool
		listRecipes  bool
	)

	root := &cobra.Command{
		Use:           "recipeforge [options] <recipe-id>",
		Short:         "Run a recipe against an agent CLI backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			logger := newLogger(verbose)
			cfg, err := config.New()
			if err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to resolve configuration: %v", err)}
			}
			if err := cfg.EnsureDataDir(); err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to create data directory: %v", err)}
			}

			if listRecipes {
				return listCommand(cfg, logger)
			}

			if len(cliArgs) != 1 {
				return &model.ValidationError{Errors: []string{"missing recipe id: expected recipeforge [options] <recipe-id>"}}
			}
			recipeID := cliArgs[0]

			if dryRun {
				return dryRunCommand(cfg, recipeID, logger)
			}

			store, err := audit.Open(cfg.AuditDBPath)
			if err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to open audit store: %v", err)}
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts := runOptions{
				backendName:  backendName,
				modelTier:    model.ModelTier(modelTier),
				maxSteps:     maxSteps,
				maxVisits:    maxVisits,
				workingDir:   workingDir,
				systemPrompt: systemPrompt,
				maxRestarts:  maxRestarts,
			}
			result, err := runRecipe(ctx, cfg, recipeID, opts, store, logger)
			if err != nil {
				return err
			}
			fmt.Printf("exit: %s (session %s, %d step(s))\n", result.Status, result.SessionID, result.StepCount)
			return nil
		},
	}

	root.Flags().StringVar(&backendName, "backend", "", "backend name (default: configured default)")
	root.Flags().StringVar(&modelTier, "model", "", "model tier override: haiku, sonnet, or opus")
	root.Flags().IntVar(&maxSteps, "max-steps", 0, "override the recipe's maxTotalSteps guardrail")
	root.Flags().IntVar(&maxVisits, "max-visits", 0, "override the recipe's maxStepVisits guardrail")
	root.Flags().StringVar(&workingDir, "working-dir", ".", "working directory passed to the backend")
	root.Flags().StringVar(&systemPrompt, "system-prompt", "", "text appended to the backend's system prompt")
	root.Flags().IntVar(&maxRestarts, "max-restarts", -1, "cap on RestartNewSession transitions (-1 = unlimited)")
	root.Flags().BoolVar(&verbose, "verbose", false, "emit structured per-event lines to stderr")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "validate and print the state-machine structure; skip execution")
	root.Flags().BoolVar(&listRecipes, "list", false, "enumerate loaded recipes")

	root.AddCommand(newHistoryCommand())

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "recipeforge:", err)
		return exitCodeFor(err)
	}
	return 0
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitCodeFor maps the engine's closed error taxonomy to the process exit
// codes documented in spec §7. A clean Exit transition is 0 and is never
// represented by an error at all.
func exitCodeFor(err error) int {
	switch err.(type) {
	case *model.ValidationError:
		return 1
	case *model.ExtractionError:
		return 2
	case *model.GuardrailError:
		return 3
	case *model.BackendError:
		return 4
	case *model.ConfigError:
		return 5
	default:
		return 5
	}
}
