package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/claim-intel/internal/model"
	"github.com/sells-group/claim-intel/internal/resilience"
)

var (
	transitionOrg   string
	transitionNotes string
)

var transitionCmd = &cobra.Command{
	Use:   "transition <claim-id> <state>",
	Short: "Move a claim to a new lifecycle state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		newState := model.ClaimState(args[1])
		if !newState.IsValid() {
			return eris.Errorf("unknown state %q (valid: %v)", args[1], model.AllStates())
		}

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Concurrent writers can invalidate the transition between the
		// validity check and the append. Retry on conflict.
		entry, err := resilience.DoVal(ctx, resilience.ConflictRetryConfig(), func(ctx context.Context) (*model.StateHistoryEntry, error) {
			return env.Machine.Transition(ctx, args[0], transitionOrg, newState, transitionNotes)
		})
		if err != nil {
			return err
		}

		if entry.PreviousState != nil {
			fmt.Printf("claim %s: %s -> %s\n", entry.ClaimID, *entry.PreviousState, entry.CurrentState)
		} else {
			fmt.Printf("claim %s: -> %s\n", entry.ClaimID, entry.CurrentState)
		}

		return nil
	},
}

func init() {
	transitionCmd.Flags().StringVar(&transitionOrg, "org", "", "organization id recorded in history")
	transitionCmd.Flags().StringVar(&transitionNotes, "notes", "", "free-form note attached to the transition")
	rootCmd.AddCommand(transitionCmd)
}
