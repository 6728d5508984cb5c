package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"migrate", "import", "cleanup-tokens", "reset-usage", "reset-database", "stats"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestResetDatabaseRequiresConfirmation(t *testing.T) {
	err := execute(t, "reset-database")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestImportValidatesArguments(t *testing.T) {
	err := execute(t, "import", "startups", "data.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown import entity")

	err = execute(t, "import", "investors")
	require.Error(t, err)
}

func TestCommandsRequireDatabaseURL(t *testing.T) {
	err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL required")
}
