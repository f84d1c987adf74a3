package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/claim-intel/internal/statemachine"
)

var historyCmd = &cobra.Command{
	Use:   "history <claim-id>",
	Short: "Show the lifecycle history of a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Machine.History(ctx, args[0])
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Printf("claim %s has no state history\n", args[0])
			return nil
		}

		for _, e := range entries {
			line := fmt.Sprintf("%s  %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.CurrentState)
			if e.Notes != "" {
				line += "  (" + e.Notes + ")"
			}
			fmt.Println(line)
		}

		current := entries[len(entries)-1].CurrentState
		fmt.Printf("\ncurrent: %s\n", current)
		fmt.Printf("allowed next: %v\n", statemachine.AllowedNextStates(&current))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
