package mem

import (
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
)

// createUserTask creates a task for a user task element, together with its
// identity links and an optional reminder timer job.
func (c *memContext) createUserTask(instance *processInstanceEntity, element *model.Element) {
	task := taskEntity{
		Id: c.nextId(),

		ProcessDefinitionId:  instance.ProcessDefinitionId,
		ProcessDefinitionKey: instance.ProcessDefinitionKey,
		ProcessInstanceId:    instance.Id,

		Assignee:          pgtype.Text{String: element.Assignee, Valid: element.Assignee != ""},
		CreatedAt:         c.time(),
		Description:       pgtype.Text{String: element.Documentation, Valid: element.Documentation != ""},
		FormKey:           pgtype.Text{String: element.FormKey, Valid: element.FormKey != ""},
		Name:              pgtype.Text{String: element.Name, Valid: element.Name != ""},
		TaskDefinitionKey: element.Id,
	}

	if element.Timer != "" {
		if due, err := engine.ResolveDue(element.Timer, c.time()); err == nil {
			task.DueAt = pgtype.Timestamp{Time: due, Valid: true}
			c.createJob(instance, element.Id, engine.JobTimer, due)
		}
	}

	c.tasks = append(c.tasks, task)

	for _, userId := range element.CandidateUsers {
		c.identityLinks = append(c.identityLinks, identityLinkEntity{
			TaskId: task.Id,
			Type:   engine.IdentityCandidate,
			UserId: pgtype.Text{String: userId, Valid: true},
		})
	}
	for _, groupId := range element.CandidateGroups {
		c.identityLinks = append(c.identityLinks, identityLinkEntity{
			TaskId:  task.Id,
			Type:    engine.IdentityCandidate,
			GroupId: pgtype.Text{String: groupId, Valid: true},
		})
	}
}

func (c *memContext) completeTask(cmd engine.CompleteTaskCmd) error {
	task, err := c.taskById(cmd.Id)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to complete task",
			Detail: fmt.Sprintf("task %s could not be found", cmd.Id),
		}
	}

	if task.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to complete task",
			Detail: fmt.Sprintf("task %s has already ended", cmd.Id),
		}
	}

	instance, err := c.instanceById(task.ProcessInstanceId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to complete task",
			Detail: fmt.Sprintf("process instance %s could not be found", task.ProcessInstanceId),
		}
	}

	m, _, err := c.activeElement(instance, "failed to complete task")
	if err != nil {
		return err
	}

	for name, value := range cmd.Variables {
		c.setVariable(instance.Id, "", name, value)
	}

	task.EndedAt = pgtype.Timestamp{Time: c.time(), Valid: true}

	// a pending reminder is obsolete once the task is completed
	c.jobs = slices.DeleteFunc(c.jobs, func(e jobEntity) bool {
		return e.ProcessInstanceId == instance.Id && e.ActivityId == task.TaskDefinitionKey && e.Type == engine.JobTimer
	})

	return c.advance(instance, m)
}

func (c *memContext) setTaskAssignee(cmd engine.SetTaskAssigneeCmd) error {
	task, err := c.taskById(cmd.Id)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to set task assignee",
			Detail: fmt.Sprintf("task %s could not be found", cmd.Id),
		}
	}

	if task.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to set task assignee",
			Detail: fmt.Sprintf("task %s has already ended", cmd.Id),
		}
	}

	task.Assignee = pgtype.Text{String: cmd.Assignee, Valid: cmd.Assignee != ""}
	return nil
}

func (c *memContext) addIdentityLink(cmd engine.AddIdentityLinkCmd) error {
	task, err := c.taskById(cmd.TaskId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to add identity link",
			Detail: fmt.Sprintf("task %s could not be found", cmd.TaskId),
		}
	}

	if cmd.Type == engine.IdentityAssignee {
		task.Assignee = pgtype.Text{String: cmd.UserId, Valid: cmd.UserId != ""}
		return nil
	}

	c.identityLinks = append(c.identityLinks, identityLinkEntity{
		TaskId: cmd.TaskId,

		GroupId: pgtype.Text{String: cmd.GroupId, Valid: cmd.GroupId != ""},
		Type:    cmd.Type,
		UserId:  pgtype.Text{String: cmd.UserId, Valid: cmd.UserId != ""},
	})
	return nil
}
