package mem

import (
	"context"
	"reflect"
	"slices"
	"time"

	"github.com/procflow/procflow/engine"
)

type query struct {
	e *memEngine

	options engine.QueryOptions
}

func (q *query) SetOptions(options engine.QueryOptions) {
	q.options = options
	if q.options.Limit <= 0 {
		q.options.Limit = q.e.defaultQueryLimit
	}
}

func (q *query) QueryDeployments(_ context.Context, c engine.DeploymentCriteria) ([]engine.Deployment, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.Deployment
	for _, e := range ctx.deployments {
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.Category != "" && e.Category.String != c.Category {
			continue
		}
		if c.Name != "" && e.Name != c.Name {
			continue
		}
		results = append(results, e.Deployment())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryProcessDefinitions(_ context.Context, c engine.ProcessDefinitionCriteria) ([]engine.ProcessDefinition, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.ProcessDefinition
	for _, e := range ctx.definitions {
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.DeploymentId != "" && e.DeploymentId != c.DeploymentId {
			continue
		}
		if c.Key != "" && e.Key != c.Key {
			continue
		}
		results = append(results, e.ProcessDefinition())
	}

	if c.LatestVersion {
		latest := make(map[string]engine.ProcessDefinition)
		for _, definition := range results {
			if latest[definition.Key].Version < definition.Version {
				latest[definition.Key] = definition
			}
		}

		results = slices.DeleteFunc(results, func(definition engine.ProcessDefinition) bool {
			return latest[definition.Key].Id != definition.Id
		})
	}

	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryProcessInstances(_ context.Context, c engine.ProcessInstanceCriteria) ([]engine.ProcessInstance, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.ProcessInstance
	for _, e := range ctx.processInstances {
		if e.IsEnded() {
			continue
		}
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ProcessDefinitionId != "" && e.ProcessDefinitionId != c.ProcessDefinitionId {
			continue
		}
		if c.ProcessDefinitionKey != "" && e.ProcessDefinitionKey != c.ProcessDefinitionKey {
			continue
		}
		if !matchesVariables(ctx.variablesOf(e.Id, ""), c.VariableEquals) {
			continue
		}
		results = append(results, e.ProcessInstance())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryExecutions(_ context.Context, c engine.ExecutionCriteria) ([]engine.Execution, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.Execution
	for _, e := range ctx.processInstances {
		if e.IsEnded() {
			continue
		}
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ActivityId != "" && e.ActivityId.String != c.ActivityId {
			continue
		}
		if c.ProcessInstanceId != "" && e.Id != c.ProcessInstanceId {
			continue
		}
		results = append(results, e.Execution())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryTasks(_ context.Context, c engine.TaskCriteria) ([]engine.Task, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.Task
	for _, e := range ctx.tasks {
		if e.IsEnded() {
			continue
		}
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ExecutionId != "" && e.ProcessInstanceId != c.ExecutionId {
			continue
		}
		if c.ProcessDefinitionId != "" && e.ProcessDefinitionId != c.ProcessDefinitionId {
			continue
		}
		if c.ProcessDefinitionKey != "" && e.ProcessDefinitionKey != c.ProcessDefinitionKey {
			continue
		}
		if c.ProcessInstanceId != "" && e.ProcessInstanceId != c.ProcessInstanceId {
			continue
		}
		if c.Assignee != "" && e.Assignee.String != c.Assignee {
			continue
		}
		if c.Unassigned && e.Assignee.Valid {
			continue
		}
		if c.Name != "" && e.Name.String != c.Name {
			continue
		}
		if c.TaskDefinitionKey != "" && e.TaskDefinitionKey != c.TaskDefinitionKey {
			continue
		}
		if !matchesDue(timeOrNil(e.DueAt), c.DueAfter, c.DueBefore) {
			continue
		}
		if len(c.CandidateGroups) != 0 && !ctx.isCandidateGroupTask(e.Id, c.CandidateGroups) {
			continue
		}
		if c.CandidateUserId != "" && !ctx.isCandidateUserTask(e.Id, c.CandidateUserId) {
			continue
		}
		if !matchesVariables(ctx.variablesOf(e.ProcessInstanceId, ""), c.ProcessVariableEquals) {
			continue
		}
		if !matchesVariables(ctx.taskScopeVariables(e.ProcessInstanceId, e.Id), c.TaskVariableEquals) {
			continue
		}
		results = append(results, e.Task())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryHistoricTasks(_ context.Context, c engine.HistoricTaskCriteria) ([]engine.HistoricTask, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.HistoricTask
	for _, e := range ctx.tasks {
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ProcessDefinitionKey != "" && e.ProcessDefinitionKey != c.ProcessDefinitionKey {
			continue
		}
		if c.ProcessInstanceId != "" && e.ProcessInstanceId != c.ProcessInstanceId {
			continue
		}
		if c.Assignee != "" && e.Assignee.String != c.Assignee {
			continue
		}
		if c.Name != "" && e.Name.String != c.Name {
			continue
		}
		if c.TaskDefinitionKey != "" && e.TaskDefinitionKey != c.TaskDefinitionKey {
			continue
		}
		if c.Finished && !e.IsEnded() {
			continue
		}
		if c.Unfinished && e.IsEnded() {
			continue
		}
		if !matchesDue(timeOrNil(e.DueAt), c.DueAfter, c.DueBefore) {
			continue
		}
		if !matchesDue(timeOrNil(e.EndedAt), c.CompletedAfter, c.CompletedBefore) {
			continue
		}
		if !matchesVariables(ctx.variablesOf(e.ProcessInstanceId, ""), c.ProcessVariableEquals) {
			continue
		}
		if !matchesVariables(ctx.taskScopeVariables(e.ProcessInstanceId, e.Id), c.TaskVariableEquals) {
			continue
		}
		results = append(results, e.HistoricTask())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryHistoricProcessInstances(_ context.Context, c engine.HistoricProcessInstanceCriteria) ([]engine.HistoricProcessInstance, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.HistoricProcessInstance
	for _, e := range ctx.processInstances {
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ProcessDefinitionId != "" && e.ProcessDefinitionId != c.ProcessDefinitionId {
			continue
		}
		if c.ProcessDefinitionKey != "" && e.ProcessDefinitionKey != c.ProcessDefinitionKey {
			continue
		}
		if c.StartedBy != "" && e.StartedBy.String != c.StartedBy {
			continue
		}
		if c.Finished && !e.IsEnded() {
			continue
		}
		if c.Unfinished && e.IsEnded() {
			continue
		}
		if c.StartedAfter != nil && !e.StartedAt.After(*c.StartedAfter) {
			continue
		}
		if c.StartedBefore != nil && !e.StartedAt.Before(*c.StartedBefore) {
			continue
		}
		if !matchesDue(timeOrNil(e.EndedAt), c.FinishedAfter, c.FinishedBefore) {
			continue
		}
		if !matchesVariables(ctx.variablesOf(e.Id, ""), c.VariableEquals) {
			continue
		}
		results = append(results, e.HistoricProcessInstance())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func (q *query) QueryJobs(_ context.Context, c engine.JobCriteria) ([]engine.Job, error) {
	defer q.e.unlock()
	ctx := q.e.lock()

	var results []engine.Job
	for _, e := range ctx.jobs {
		if c.Id != "" && e.Id != c.Id {
			continue
		}
		if c.ExecutionId != "" && e.ProcessInstanceId != c.ExecutionId {
			continue
		}
		if c.ProcessInstanceId != "" && e.ProcessInstanceId != c.ProcessInstanceId {
			continue
		}
		if c.Type != 0 && e.Type != c.Type {
			continue
		}
		results = append(results, e.Job())
	}
	return apply(results, q.options, q.e.defaultQueryLimit), nil
}

func apply[E any](results []E, options engine.QueryOptions, defaultLimit int) []E {
	offset := options.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return nil
	}

	limit := options.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	results = results[offset:]
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

func (c *memContext) isCandidateGroupTask(taskId string, groupIds []string) bool {
	for _, e := range c.identityLinks {
		if e.TaskId == taskId && e.Type == engine.IdentityCandidate && e.GroupId.Valid && slices.Contains(groupIds, e.GroupId.String) {
			return true
		}
	}
	return false
}

func (c *memContext) isCandidateUserTask(taskId string, userId string) bool {
	for _, e := range c.identityLinks {
		if e.TaskId == taskId && e.Type == engine.IdentityCandidate && e.UserId.String == userId {
			return true
		}
	}
	return false
}

func matchesDue(t *time.Time, after *time.Time, before *time.Time) bool {
	if after != nil && (t == nil || !t.After(*after)) {
		return false
	}
	if before != nil && (t == nil || !t.Before(*before)) {
		return false
	}
	return true
}

func matchesVariables(variables map[string]any, equals map[string]any) bool {
	for name, value := range equals {
		actual, ok := variables[name]
		if !ok || !reflect.DeepEqual(actual, value) {
			return false
		}
	}
	return true
}
