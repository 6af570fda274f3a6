package cli

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeployStartAndComplete(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	cli := mustCreateCli(t)

	// when
	definitionId := strings.TrimSpace(mustExecute(t, cli,
		"definition",
		"deploy",
		"--bpmn-file",
		"../test/bpmn/review.bpmn",
	))

	// then
	require.NotEmpty(definitionId, "no definition ID printed")

	definition, err := cli.a.DefinitionById(cli.context(), definitionId)
	require.NoError(err, "failed to get definition")
	require.NotNil(definition, "definition not found")
	assert.Equal("review", definition.Name)

	// when
	instanceId := strings.TrimSpace(mustExecute(t, cli,
		"instance",
		"start",
		"--definition-id",
		definitionId,
		"--property",
		"bpm:description=Review the budget",
	))

	// then
	require.NotEmpty(instanceId, "no instance ID printed")

	instance, err := cli.a.InstanceById(cli.context(), instanceId)
	require.NoError(err, "failed to get instance")
	require.NotNil(instance, "instance not found")
	assert.True(instance.Active)
	assert.Equal("Review the budget", instance.Description)

	// when task is queried and completed
	tasks, err := cli.a.QueryTasks(cli.context(), workflow.TaskQuery{
		ProcessId: instanceId,
		TaskName:  "wf:reviewTask",
	})
	require.NoError(err, "failed to query tasks")
	require.Len(tasks, 1, "expected one review task")

	mustExecute(t, cli,
		"task",
		"complete",
		"--id",
		tasks[0].Id,
	)

	// then
	instance, err = cli.a.InstanceById(cli.context(), instanceId)
	require.NoError(err, "failed to get instance")
	require.NotNil(instance, "instance not found")
	assert.False(instance.Active)
}

func TestDefinitionQuery(t *testing.T) {
	assert := assert.New(t)

	cli := mustCreateCli(t)

	mustExecute(t, cli, "definition", "deploy", "--bpmn-file", "../test/bpmn/review.bpmn")
	mustExecute(t, cli, "definition", "deploy", "--bpmn-file", "../test/bpmn/review.bpmn")

	// the table consists of a header, a spacer and one row per definition
	out := mustExecute(t, cli, "definition", "query")
	assert.Equal(4, strings.Count(out, "\n"))

	out = mustExecute(t, cli, "definition", "query", "--latest")
	assert.Equal(3, strings.Count(out, "\n"))
}
