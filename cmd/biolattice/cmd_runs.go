package main

import (
	"fmt"
	"time"

	"github.com/nvandessel/biolattice/internal/store"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Manage recorded runs",
		Long: `List, delete and check runs recorded into a SQLite database.

Examples:
  biolattice runs list --db runs.db
  biolattice runs delete 3f2a... --db runs.db
  biolattice runs check --db runs.db`,
	}

	cmd.PersistentFlags().String("db", "", "SQLite database holding the runs (default ~/.biolattice/runs.db)")
	cmd.AddCommand(
		newRunsListCmd(),
		newRunsDeleteCmd(),
		newRunsCheckCmd(),
	)
	return cmd
}

func openRunsStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	path, _ := cmd.Flags().GetString("db")
	path, err := store.ResolveDatabasePath(path)
	if err != nil {
		return nil, err
	}
	db, err := store.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func newRunsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			db, err := openRunsStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				for i := range runs {
					runs[i].Config = ""
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"runs": runs, "count": len(runs)})
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-14s  %6s\n", "ID", "CREATED", "SHAPE", "SPIN MODEL", "FRAMES")
			for _, r := range runs {
				fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-14s  %6d\n",
					r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Shape, r.SpinModel, r.Frames)
			}
			return nil
		},
	}
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a run and its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			db, err := openRunsStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete run %s: %w", args[0], err)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
			return nil
		},
	}
}

func newRunsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check database integrity",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openRunsStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Validate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", db.Path())
			return nil
		},
	}
}
