//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"process", "init-filter", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "wardrive", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"list", "show", "delete"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}

func TestRoot_InvalidConfigFile(t *testing.T) {
	workspace(t)
	writeFile(t, "config.yaml", "log: [unterminated")

	_, err := execute(t, "process", "--creeps", "home.csv")
	assert.ErrorContains(t, err, "load config")
}

func TestRoot_InvalidLogLevel(t *testing.T) {
	workspace(t)
	t.Setenv("WARDRIVE_LOG_LEVEL", "loud")

	_, err := execute(t, "process", "--creeps", "home.csv")
	assert.ErrorContains(t, err, "init logger")
}
