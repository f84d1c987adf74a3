package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claim-intel/internal/claimctx"
	"github.com/sells-group/claim-intel/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage and evaluate business rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		defs, err := env.Store.ListRules(ctx)
		if err != nil {
			return err
		}

		if len(defs) == 0 {
			fmt.Println("no rules stored (run: claim-intel rules seed)")
			return nil
		}

		for _, r := range defs {
			status := "enabled"
			if !r.Enabled {
				status = "disabled"
			}
			fmt.Printf("%-28s %-10s %-18s %s\n", r.ID, status, r.Action.Type, r.Name)
		}

		return nil
	},
}

var rulesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the built-in rule set into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := rules.Seed(ctx, env.Store)
		if err != nil {
			return err
		}
		zap.L().Info("seeded rules", zap.Int("count", n))

		return nil
	},
}

var rulesEvalCmd = &cobra.Command{
	Use:   "eval <claim-id>",
	Short: "Evaluate stored rules against a claim",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		claim, err := env.Store.GetClaim(ctx, args[0])
		if err != nil {
			return err
		}
		state, err := env.Machine.CurrentState(ctx, args[0])
		if err != nil {
			return err
		}

		engine, err := rules.Load(ctx, env.Store, rules.Options{DedupeActions: cfg.Orchestrator.DedupeActions})
		if err != nil {
			return err
		}

		claimCtx := claimctx.NewBuilder(env.Store).Build(ctx, *claim, state)
		fired := engine.EvaluateForClaim(claimCtx)

		if len(fired) == 0 {
			fmt.Println("no rules fired")
			return nil
		}

		for _, r := range fired {
			fmt.Printf("%-28s %-18s %s\n", r.ID, r.Action.Type, r.Name)
		}
		fmt.Printf("\nactions: %v\n", engine.ExecuteActions(fired))

		return nil
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd, rulesSeedCmd, rulesEvalCmd)
	rootCmd.AddCommand(rulesCmd)
}
