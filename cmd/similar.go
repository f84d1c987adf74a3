package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/claim-intel/internal/model"
)

var (
	similarLimit int
	similarText  string
)

var similarCmd = &cobra.Command{
	Use:   "similar [claim-id]",
	Short: "Find historical claims similar to a claim or free-text description",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 && similarText == "" {
			return fmt.Errorf("provide a claim id or --text")
		}

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var matches []model.SimilarClaim
		if len(args) > 0 {
			matches = env.Searcher.FindSimilarClaims(ctx, args[0], similarLimit)
		} else {
			matches = env.Searcher.FindSimilarClaimsByText(ctx, similarText, similarLimit)
		}

		if len(matches) == 0 {
			fmt.Println("no similar claims found")
			return nil
		}

		for _, m := range matches {
			fmt.Printf("%-24s %.3f\n", m.ClaimID, m.Score)
		}

		return nil
	},
}

func init() {
	similarCmd.Flags().IntVar(&similarLimit, "limit", 5, "maximum matches to return")
	similarCmd.Flags().StringVar(&similarText, "text", "", "free-text description to match against indexed claims")
	rootCmd.AddCommand(similarCmd)
}
