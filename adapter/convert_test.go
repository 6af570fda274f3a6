package adapter

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/model"
	"github.com/procflow/procflow/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindUserTasks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m, err := model.New(strings.NewReader(mustReadBpmnFile(t, "review.bpmn")))
	require.NoError(err)

	// when
	userTasks := findUserTasks(m, "review")

	// then
	require.Len(userTasks, 1)
	assert.Equal("reviewTask", userTasks[0].Id)
}

func TestFindUserTasksOnCyclicGraph(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m, err := model.New(strings.NewReader(mustReadBpmnFile(t, "cycle.bpmn")))
	require.NoError(err)

	// when the graph contains a cycle back to the first task
	userTasks := findUserTasks(m, "cycle")

	// then the traversal terminates, visiting each task once in first-visit order
	require.Len(userTasks, 2)
	assert.Equal("draft", userTasks[0].Id)
	assert.Equal("approve", userTasks[1].Id)
}

func TestFindUserTasksWithUnknownProcess(t *testing.T) {
	m, err := model.New(strings.NewReader(mustReadBpmnFile(t, "review.bpmn")))
	require.NoError(t, err)

	assert.Empty(t, findUserTasks(m, "unknown"))
}

func TestConvertUnsupportedType(t *testing.T) {
	a, _ := mustCreateAdapter(t, false)

	// when an unknown native type is converted
	_, err := a.converter.Convert(userContext("jane"), struct{}{})

	// then
	assert.True(t, workflow.HasType(err, workflow.ErrUnsupportedConversion))
}
