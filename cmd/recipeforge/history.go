package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpataki/recipeforge/internal/audit"
	"github.com/mpataki/recipeforge/internal/config"
	"github.com/mpataki/recipeforge/internal/model"
)

// newHistoryCommand exposes the audit trail's structural facts only: run
// id, recipe id, session id, step name, counters, and transitions. It
// never has prompt or response text to show, because the store never
// received any.
func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded run events, or list recent run ids",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to resolve configuration: %v", err)}
			}
			store, err := audit.Open(cfg.AuditDBPath)
			if err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to open audit store: %v", err)}
			}
			defer store.Close()

			if len(args) == 0 {
				ids, err := store.RecentRunIDs(limit)
				if err != nil {
					return &model.ConfigError{Reason: fmt.Sprintf("failed to list runs: %v", err)}
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}

			events, err := store.History(args[0])
			if err != nil {
				return &model.ConfigError{Reason: fmt.Sprintf("failed to load run history: %v", err)}
			}
			for _, e := range events {
				fmt.Printf("%s\t%-16s\tstep=%-20s\tvisit=%d\t%s\n", e.RecordedAt.Format("15:04:05"), e.Kind, e.Step, e.Visit, e.Detail)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of run ids to list")
	return cmd
}
