package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/odin/internal/store"
)

// newRunsCmd lists runs recorded in the database.
func newRunsCmd(a *app) *cobra.Command {
	var limit int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs stored in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			url := a.cfg.Store().URL
			if url == "" {
				return fmt.Errorf("store.url is not configured (ODIN_STORE_URL)")
			}

			pool, err := pgxpool.New(ctx, url)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			st, err := store.New(ctx, pool, a.logger)
			if err != nil {
				return err
			}
			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return runsCmd
}
