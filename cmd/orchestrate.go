package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/explain"
	"github.com/sells-group/claim-intel/internal/orchestrator"
	"github.com/sells-group/claim-intel/pkg/anthropic"
)

var (
	orchestrateOrg    string
	orchestrateType   string
	orchestratePolish bool
)

var orchestrateCmd = &cobra.Command{
	Use:   "orchestrate <claim-id>",
	Short: "Run full intelligence orchestration for a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Orchestrator.OrchestrateClaim(ctx, orchestrator.Request{
			ClaimID:     args[0],
			OrgID:       orchestrateOrg,
			RequestType: orchestrateType,
		})
		if err != nil {
			return err
		}

		if orchestratePolish {
			if cfg.Anthropic.Key == "" {
				zap.L().Warn("polish requested but no anthropic key configured, skipping")
			} else {
				polisher := explain.NewPolisher(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model)
				out.Explanation = polisher.Polish(ctx, out.Explanation)
			}
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode output")
		}
		fmt.Println(string(data))

		return nil
	},
}

func init() {
	orchestrateCmd.Flags().StringVar(&orchestrateOrg, "org", "", "organization id recorded in the action log")
	orchestrateCmd.Flags().StringVar(&orchestrateType, "type", orchestrator.RequestFullIntelligence,
		"request type: full_intelligence, negotiate, or next_actions")
	orchestrateCmd.Flags().BoolVar(&orchestratePolish, "polish", false, "rewrite the explanation narrative with Claude")
	rootCmd.AddCommand(orchestrateCmd)
}
