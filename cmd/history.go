package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simon/managectl/internal/state"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently finished runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.Open()
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := store.Recent(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		fmt.Printf("%-19s  %-20s  %-12s  %-18s  %5s  %8s\n", "FINISHED", "ACTION", "TARGET", "OUTCOME", "CODE", "DURATION")
		for _, r := range runs {
			fmt.Printf("%-19s  %-20s  %-12s  %-18s  %5d  %8s\n",
				r.FinishedAt.Local().Format(time.DateTime),
				r.Action,
				r.Target,
				r.Outcome,
				r.ExitCode,
				r.Duration().Round(100*time.Millisecond),
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}
