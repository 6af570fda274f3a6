package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/procflow/procflow/auth"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/engine/mem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustCreateWrappedEngine creates an engine whose job handler runs under a
// resolved identity and records it.
func mustCreateWrappedEngine(t *testing.T, executedAs *[]string) engine.Engine {
	var e engine.Engine

	people := testPeople()

	delegate := func(ctx context.Context, job engine.Job) error {
		*executedAs = append(*executedAs, auth.User(ctx))
		return nil
	}

	// the closure reads e at execution time, after the engine exists
	handler := func(ctx context.Context, job engine.Job) error {
		return NewJobHandler(e, people, delegate, zerolog.Nop())(ctx, job)
	}

	e, err := mem.New(func(o *mem.Options) {
		o.Common.JobHandler = handler
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

func TestJobHandlerRunsAsInitiator(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var executedAs []string
	e := mustCreateWrappedEngine(t, &executedAs)

	ctx := context.Background()

	_, definitions, err := e.CreateDeployment(ctx, engine.CreateDeploymentCmd{
		BpmnXml: mustReadBpmnFile(t, "service.bpmn"),
		Name:    "service.bpmn",
	})
	require.NoError(err)
	require.Len(definitions, 1)

	_, err = e.StartProcessInstance(ctx, engine.StartProcessInstanceCmd{
		ProcessDefinitionId: definitions[0].Id,
		StartedBy:           "jane",
		Variables: map[string]any{
			varInitiator: "workspace://SpacesStore/person-jane",
		},
	})
	require.NoError(err)

	// when the async continuation job executes
	completed, failed, err := e.ExecuteJobs(ctx, engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(err)
	require.Len(completed, 1)
	require.Empty(failed)

	// then it ran as the process initiator
	assert.Equal([]string{"jane"}, executedAs)
}

func TestJobHandlerRunsAsAssignee(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var executedAs []string
	e := mustCreateWrappedEngine(t, &executedAs)

	ctx := context.Background()

	_, definitions, err := e.CreateDeployment(ctx, engine.CreateDeploymentCmd{
		BpmnXml: mustReadBpmnFile(t, "timer.bpmn"),
		Name:    "timer.bpmn",
	})
	require.NoError(err)
	require.Len(definitions, 1)

	_, err = e.StartProcessInstance(ctx, engine.StartProcessInstanceCmd{
		ProcessDefinitionId: definitions[0].Id,
		StartedBy:           "jane",
		Variables: map[string]any{
			varInitiator: "workspace://SpacesStore/person-jane",
		},
	})
	require.NoError(err)

	require.NoError(e.SetTime(ctx, engine.SetTimeCmd{Time: time.Now().Add(2 * time.Hour)}))

	// when the reminder timer of the assigned user task executes
	completed, failed, err := e.ExecuteJobs(ctx, engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(err)
	require.Len(completed, 1)
	require.Empty(failed)

	// then it ran as the task assignee
	assert.Equal([]string{"admin"}, executedAs)
}

func TestJobHandlerFallsBackToSystem(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	var executedAs []string
	e := mustCreateWrappedEngine(t, &executedAs)

	ctx := context.Background()

	_, definitions, err := e.CreateDeployment(ctx, engine.CreateDeploymentCmd{
		BpmnXml: mustReadBpmnFile(t, "service.bpmn"),
		Name:    "service.bpmn",
	})
	require.NoError(err)

	// started without an initiator variable
	_, err = e.StartProcessInstance(ctx, engine.StartProcessInstanceCmd{
		ProcessDefinitionId: definitions[0].Id,
	})
	require.NoError(err)

	completed, _, err := e.ExecuteJobs(ctx, engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(err)
	require.Len(completed, 1)

	assert.Equal([]string{auth.SystemUserId}, executedAs)
}
