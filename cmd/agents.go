package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/claim-intel/internal/model"
)

var (
	agentName string
	agentGoal string
	agentDesc string
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the agent catalog",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		defs, err := env.Agents.List(ctx)
		if err != nil {
			return err
		}

		for _, a := range defs {
			fmt.Printf("%-24s %-28s %s\n", a.ID, a.Name, a.Goal)
		}

		return nil
	},
}

var agentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a custom agent for this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initCore(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		created, err := env.Agents.Create(ctx, model.AgentDefinition{
			Name:        agentName,
			Goal:        agentGoal,
			Description: agentDesc,
		})
		if err != nil {
			return err
		}

		fmt.Printf("created agent %s (%s)\n", created.ID, created.Name)

		return nil
	},
}

func init() {
	agentsCreateCmd.Flags().StringVar(&agentName, "name", "", "agent name (required)")
	agentsCreateCmd.Flags().StringVar(&agentGoal, "goal", "", "agent goal (required)")
	agentsCreateCmd.Flags().StringVar(&agentDesc, "description", "", "agent description")
	agentsCreateCmd.MarkFlagRequired("name") //nolint:errcheck
	agentsCreateCmd.MarkFlagRequired("goal") //nolint:errcheck

	agentsCmd.AddCommand(agentsListCmd, agentsCreateCmd)
	rootCmd.AddCommand(agentsCmd)
}
