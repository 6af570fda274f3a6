package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelp(t *testing.T) {
	assert := assert.New(t)

	cli := mustCreateCli(t)

	rootCmd := newRootCmd(cli)
	rootCmd.PersistentPostRun = nil

	rootCmd.SetArgs([]string{})
	assert.NoError(rootCmd.Execute())

	rootCmd.SetArgs([]string{"definition"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"instance"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"task"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"version"})
	assert.NoError(rootCmd.Execute())

	rootCmd.SetArgs([]string{"definition", "deploy", "--help"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"instance", "start", "--help"})
	assert.NoError(rootCmd.Execute())
	rootCmd.SetArgs([]string{"run-jobs", "--help"})
	assert.NoError(rootCmd.Execute())
}

func TestParsePropertyValue(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(true, parsePropertyValue("true"))
	assert.Equal(3, parsePropertyValue("3"))
	assert.Equal("Review the budget", parsePropertyValue("Review the budget"))
}
