package mem

import (
	"context"
	"testing"
	"time"

	"github.com/procflow/procflow/engine"
	"github.com/stretchr/testify/assert"
	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeployment(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	// when
	deployment, definitions := mustCreateDeployment(t, e, "review.bpmn")

	// then
	assert.NotEmpty(deployment.Id)
	assert.Equal("review.bpmn", deployment.Name)
	assert.False(deployment.DeployedAt.IsZero())

	require.Len(t, definitions, 1)
	assert.Equal("review", definitions[0].Key)
	assert.Equal("Document Review", definitions[0].Name)
	assert.Equal("Review and approve a submitted document.", definitions[0].Description)
	assert.Equal("wf:submitReviewTask", definitions[0].StartFormKey)
	assert.Equal(deployment.Id, definitions[0].DeploymentId)
	assert.Equal(1, definitions[0].Version)

	// when deployed again
	_, redeployed := mustCreateDeployment(t, e, "review.bpmn")

	// then version is incremented
	require.Len(t, redeployed, 1)
	assert.Equal(2, redeployed[0].Version)
	assert.NotEqual(definitions[0].Id, redeployed[0].Id)
}

func TestCreateDeploymentWithInvalidXml(t *testing.T) {
	e := mustCreateEngine(t)
	defer e.Shutdown()

	// when
	_, _, err := e.CreateDeployment(context.Background(), engine.CreateDeploymentCmd{
		BpmnXml: "not a model",
		Name:    "invalid",
	})

	// then
	require.Error(t, err)

	engineErr, ok := err.(engine.Error)
	require.True(t, ok)
	assert.Equal(t, engine.ErrorProcessModel, engineErr.Type)
}

func TestDeleteDeployment(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	deployment, definitions := mustCreateDeployment(t, e, "review.bpmn")
	mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// when deleted without cascade
	err := e.DeleteDeployment(context.Background(), engine.DeleteDeploymentCmd{Id: deployment.Id})

	// then running instance blocks the deletion
	require.Error(t, err)
	assert.Equal(engine.ErrorConflict, err.(engine.Error).Type)

	// when deleted with cascade
	err = e.DeleteDeployment(context.Background(), engine.DeleteDeploymentCmd{Id: deployment.Id, Cascade: true})
	require.NoError(t, err)

	// then
	deployments, err := e.CreateQuery().QueryDeployments(context.Background(), engine.DeploymentCriteria{Id: deployment.Id})
	require.NoError(t, err)
	assert.Empty(deployments)

	historicInstances, err := e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{
		ProcessDefinitionKey: "review",
	})
	require.NoError(t, err)
	assert.Empty(historicInstances)
}

func TestStartProcessInstance(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "review.bpmn")

	// when
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, map[string]any{
		"wf_description": "please review",
	})

	// then the instance waits at the user task
	assert.Equal(definitions[0].Id, processInstance.ProcessDefinitionId)
	assert.Equal("test-user", processInstance.StartedBy)

	activityIds, err := e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"reviewTask"}, activityIds)

	variables, err := e.GetVariables(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal(map[string]any{"wf_description": "please review"}, variables)

	// then a task with candidate groups exists
	tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	assert.Equal("reviewTask", tasks[0].TaskDefinitionKey)
	assert.Equal("Review Document", tasks[0].Name)
	assert.Equal("wf:reviewTask", tasks[0].FormKey)
	assert.False(tasks[0].IsAssigned())

	identityLinks, err := e.GetIdentityLinks(context.Background(), tasks[0].Id)
	require.NoError(t, err)
	require.Len(t, identityLinks, 1)
	assert.Equal(engine.IdentityCandidate, identityLinks[0].Type)
	assert.Equal("GROUP_reviewers", identityLinks[0].GroupId)
}

func TestCompleteTask(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "review.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	// when
	err = e.CompleteTask(context.Background(), engine.CompleteTaskCmd{
		Id:        tasks[0].Id,
		Variables: map[string]any{"wf_reviewOutcome": "Approve"},
	})
	require.NoError(t, err)

	// then the instance has ended
	processInstances, err := e.CreateQuery().QueryProcessInstances(context.Background(), engine.ProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	assert.Empty(processInstances)

	historicInstances, err := e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, historicInstances, 1)
	assert.True(historicInstances[0].IsEnded())
	assert.Equal("start", historicInstances[0].StartActivityId)
	assert.Equal("end", historicInstances[0].EndActivityId)

	// then variables set on completion are retained
	historicVariables, err := e.GetHistoricVariables(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal("Approve", historicVariables["wf_reviewOutcome"])

	// then completing the task again is a conflict
	err = e.CompleteTask(context.Background(), engine.CompleteTaskCmd{Id: tasks[0].Id})
	require.Error(t, err)
	assert.Equal(engine.ErrorConflict, err.(engine.Error).Type)
}

func TestSignalExecution(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "receive-after-start.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	activityIds, err := e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"wait"}, activityIds)

	// when
	err = e.SignalExecution(context.Background(), engine.SignalExecutionCmd{ExecutionId: processInstance.Id})
	require.NoError(t, err)

	// then the instance moved on to the user task
	activityIds, err = e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"doTask"}, activityIds)

	// then signaling a user task is a conflict
	err = e.SignalExecution(context.Background(), engine.SignalExecutionCmd{ExecutionId: processInstance.Id})
	require.Error(t, err)
	assert.Equal(engine.ErrorConflict, err.(engine.Error).Type)
}

func TestDeleteProcessInstance(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "review.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// when
	err := e.DeleteProcessInstance(context.Background(), engine.DeleteProcessInstanceCmd{
		Id:           processInstance.Id,
		DeleteReason: "obsolete",
	})
	require.NoError(t, err)

	// then the historic record is retained and tagged
	historicInstances, err := e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, historicInstances, 1)
	assert.True(historicInstances[0].IsEnded())
	assert.Equal("obsolete", historicInstances[0].DeleteReason)

	historicTasks, err := e.CreateQuery().QueryHistoricTasks(context.Background(), engine.HistoricTaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, historicTasks, 1)
	assert.Equal("obsolete", historicTasks[0].DeleteReason)

	// when the historic record is purged
	err = e.DeleteHistoricProcessInstance(context.Background(), processInstance.Id)
	require.NoError(t, err)

	// then
	historicInstances, err = e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	assert.Empty(historicInstances)
}

func TestExecuteServiceTaskJob(t *testing.T) {
	assert := assert.New(t)

	var handledJobs []engine.Job

	e := mustCreateEngine(t, func(o *Options) {
		o.Common.JobHandler = func(_ context.Context, job engine.Job) error {
			handledJobs = append(handledJobs, job)
			return nil
		}
	})
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "service.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// then the instance waits at the service task
	jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(engine.JobAsyncContinuation, jobs[0].Type)
	assert.Equal("notify", jobs[0].ActivityId)

	// when
	completedJobs, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{
		ProcessInstanceId: processInstance.Id,
		Limit:             10,
	})
	require.NoError(t, err)

	// then
	assert.Len(completedJobs, 1)
	assert.Empty(failedJobs)
	assert.Len(handledJobs, 1)

	activityIds, err := e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"confirmTask"}, activityIds)
}

func TestExecuteTimerJob(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "timer.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// then a reminder job for the assigned user task exists
	jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(engine.JobTimer, jobs[0].Type)
	assert.Equal("remindTask", jobs[0].ActivityId)

	tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal("admin", tasks[0].Assignee)
	require.NotNil(t, tasks[0].DueAt)

	// when time is advanced past the reminder
	err = e.SetTime(context.Background(), engine.SetTimeCmd{Time: time.Now().UTC().Add(2 * time.Hour)})
	require.NoError(t, err)

	completedJobs, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(t, err)

	// then the reminder completes without advancing the execution
	assert.Len(completedJobs, 1)
	assert.Empty(failedJobs)

	activityIds, err := e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"remindTask"}, activityIds)

	// when the task is completed, the execution waits at the timer catch event
	err = e.CompleteTask(context.Background(), engine.CompleteTaskCmd{Id: tasks[0].Id})
	require.NoError(t, err)

	activityIds, err = e.GetActiveActivityIds(context.Background(), processInstance.Id)
	require.NoError(t, err)
	assert.Equal([]string{"dueTimer"}, activityIds)

	// when time is advanced past the catch event
	err = e.SetTime(context.Background(), engine.SetTimeCmd{Time: time.Now().UTC().Add(4 * time.Hour)})
	require.NoError(t, err)

	completedJobs, _, err = e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(t, err)
	assert.Len(completedJobs, 1)

	// then the instance has ended
	historicInstances, err := e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, historicInstances, 1)
	assert.True(historicInstances[0].IsEnded())
}

func TestExecuteJobsWithFailingHandler(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t, func(o *Options) {
		o.Common.JobHandler = func(_ context.Context, job engine.Job) error {
			return tassert.AnError
		}
		o.Common.JobRetryLimit = 1
	})
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "service.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// when executed twice
	_, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(t, err)
	assert.Len(failedJobs, 1)

	_, failedJobs, err = e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(t, err)
	assert.Len(failedJobs, 1)

	// then the job keeps its error and is no longer due
	jobs, err := e.CreateQuery().QueryJobs(context.Background(), engine.JobCriteria{ProcessInstanceId: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(jobs[0].HasError())

	completedJobs, failedJobs, err := e.ExecuteJobs(context.Background(), engine.ExecuteJobsCmd{Limit: 10})
	require.NoError(t, err)
	assert.Empty(completedJobs)
	assert.Empty(failedJobs)
}

func TestExclusiveGatewayDefaultFlow(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "cycle.bpmn")
	processInstance := mustStartProcessInstance(t, e, definitions[0].Id, nil)

	// when draft and approve are completed
	for _, taskDefinitionKey := range []string{"draft", "approve"} {
		tasks, err := e.CreateQuery().QueryTasks(context.Background(), engine.TaskCriteria{ProcessInstanceId: processInstance.Id})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		require.Equal(t, taskDefinitionKey, tasks[0].TaskDefinitionKey)

		require.NoError(t, e.CompleteTask(context.Background(), engine.CompleteTaskCmd{Id: tasks[0].Id}))
	}

	// then the default flow is taken and the instance has ended
	historicInstances, err := e.CreateQuery().QueryHistoricProcessInstances(context.Background(), engine.HistoricProcessInstanceCriteria{Id: processInstance.Id})
	require.NoError(t, err)
	require.Len(t, historicInstances, 1)
	assert.True(historicInstances[0].IsEnded())
	assert.Equal("end", historicInstances[0].EndActivityId)
}

func TestQueryOptions(t *testing.T) {
	assert := assert.New(t)

	e := mustCreateEngine(t)
	defer e.Shutdown()

	_, definitions := mustCreateDeployment(t, e, "review.bpmn")
	for i := 0; i < 5; i++ {
		mustStartProcessInstance(t, e, definitions[0].Id, nil)
	}

	q := e.CreateQuery()
	q.SetOptions(engine.QueryOptions{Limit: 2, Offset: 1})

	// when
	tasks, err := q.QueryTasks(context.Background(), engine.TaskCriteria{ProcessDefinitionKey: "review"})
	require.NoError(t, err)

	// then
	assert.Len(tasks, 2)
}
