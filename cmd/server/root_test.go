package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_LeavesErrorReportingToMain(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--no-such-flag"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag: --no-such-flag")
	assert.NotContains(t, out.String(), "Error:")
	assert.True(t, rootCmd.SilenceErrors)
}
