package mem

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
)

// setVariable sets or deletes a single variable.
// An empty task ID addresses the process instance scope, nil values delete.
func (c *memContext) setVariable(processInstanceId string, taskId string, name string, value any) {
	for i := range c.variables {
		e := &c.variables[i]
		if e.ProcessInstanceId == processInstanceId && e.TaskId.String == taskId && e.Name == name {
			if value == nil {
				c.variables = append(c.variables[:i], c.variables[i+1:]...)
			} else {
				e.Value = value
			}
			return
		}
	}

	if value == nil {
		return
	}

	c.variables = append(c.variables, variableEntity{
		ProcessInstanceId: processInstanceId,
		TaskId:            pgtype.Text{String: taskId, Valid: taskId != ""},

		Name:  name,
		Value: value,
	})
}

func (c *memContext) variablesOf(processInstanceId string, taskId string) map[string]any {
	variables := make(map[string]any)
	for _, e := range c.variables {
		if e.ProcessInstanceId == processInstanceId && e.TaskId.String == taskId {
			variables[e.Name] = e.Value
		}
	}
	return variables
}

// taskScopeVariables merges process-scope variables under task-local ones, so
// reads through a task see the full scope chain. Task-local values win.
func (c *memContext) taskScopeVariables(processInstanceId string, taskId string) map[string]any {
	variables := c.variablesOf(processInstanceId, "")
	for name, value := range c.variablesOf(processInstanceId, taskId) {
		variables[name] = value
	}
	return variables
}

func (c *memContext) getVariables(executionId string) (map[string]any, error) {
	instance, err := c.instanceById(executionId)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get variables",
			Detail: fmt.Sprintf("execution %s could not be found", executionId),
		}
	}

	if instance.IsEnded() {
		return nil, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to get variables",
			Detail: fmt.Sprintf("process instance %s has ended", executionId),
		}
	}

	return c.variablesOf(instance.Id, ""), nil
}

func (c *memContext) setVariables(cmd engine.SetVariablesCmd) error {
	instance, err := c.instanceById(cmd.ExecutionId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to set variables",
			Detail: fmt.Sprintf("execution %s could not be found", cmd.ExecutionId),
		}
	}

	if instance.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set variables",
			Detail: fmt.Sprintf("process instance %s has ended", cmd.ExecutionId),
		}
	}

	for name, value := range cmd.Variables {
		c.setVariable(instance.Id, "", name, value)
	}
	return nil
}

func (c *memContext) getTaskVariables(taskId string) (map[string]any, error) {
	task, err := c.taskById(taskId)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get task variables",
			Detail: fmt.Sprintf("task %s could not be found", taskId),
		}
	}

	if task.IsEnded() {
		return nil, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to get task variables",
			Detail: fmt.Sprintf("task %s has ended", taskId),
		}
	}

	return c.taskScopeVariables(task.ProcessInstanceId, task.Id), nil
}

func (c *memContext) setTaskVariables(cmd engine.SetTaskVariablesCmd) error {
	task, err := c.taskById(cmd.TaskId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to set task variables",
			Detail: fmt.Sprintf("task %s could not be found", cmd.TaskId),
		}
	}

	if task.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set task variables",
			Detail: fmt.Sprintf("task %s has ended", cmd.TaskId),
		}
	}

	for name, value := range cmd.Variables {
		c.setVariable(task.ProcessInstanceId, task.Id, name, value)
	}
	return nil
}

// getHistoricVariables returns the last known process variables of an active or ended process instance.
// Variables are retained until the historic process instance is deleted.
func (c *memContext) getHistoricVariables(processInstanceId string) (map[string]any, error) {
	if _, err := c.instanceById(processInstanceId); err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get historic variables",
			Detail: fmt.Sprintf("historic process instance %s could not be found", processInstanceId),
		}
	}

	return c.variablesOf(processInstanceId, ""), nil
}

func (c *memContext) getHistoricTaskVariables(taskId string) (map[string]any, error) {
	task, err := c.taskById(taskId)
	if err == pgx.ErrNoRows {
		return nil, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to get historic task variables",
			Detail: fmt.Sprintf("historic task %s could not be found", taskId),
		}
	}

	return c.taskScopeVariables(task.ProcessInstanceId, task.Id), nil
}
