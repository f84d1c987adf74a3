package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"serve", "orchestrate", "transition", "history", "rules", "agents", "similar", "claims", "storms", "export"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "claim-intel", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestOrchestrateCommand_Flags(t *testing.T) {
	flag := orchestrateCmd.Flags().Lookup("type")
	require.NotNil(t, flag, "orchestrate command should have --type flag")
	assert.Equal(t, "full_intelligence", flag.DefValue)

	require.NotNil(t, orchestrateCmd.Flags().Lookup("polish"))
}

func TestRulesCommand_HasSubcommands(t *testing.T) {
	cmds := rulesCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "seed", "eval"} {
		assert.True(t, names[name], "expected rules subcommand %q not found", name)
	}
}

func TestClaimsCommand_HasSubcommands(t *testing.T) {
	cmds := claimsCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, name := range []string{"import", "show", "list"} {
		assert.True(t, names[name], "expected claims subcommand %q not found", name)
	}
}
