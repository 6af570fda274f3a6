package mem

import (
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
)

func (c *memContext) startProcessInstance(cmd engine.StartProcessInstanceCmd) (engine.ProcessInstance, error) {
	definition, err := c.definitionById(cmd.ProcessDefinitionId)
	if err == pgx.ErrNoRows {
		return engine.ProcessInstance{}, engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to start process instance",
			Detail: fmt.Sprintf("process definition %s could not be found", cmd.ProcessDefinitionId),
		}
	}

	m, err := c.cachedModel(definition)
	if err != nil {
		return engine.ProcessInstance{}, err
	}

	startEvent := m.InitialElement(definition.Key)

	instance := processInstanceEntity{
		Id: c.nextId(),

		ProcessDefinitionId:  definition.Id,
		ProcessDefinitionKey: definition.Key,

		ActivityId:      pgtype.Text{String: startEvent.Id, Valid: true},
		BusinessKey:     pgtype.Text{String: cmd.BusinessKey, Valid: cmd.BusinessKey != ""},
		StartActivityId: pgtype.Text{String: startEvent.Id, Valid: true},
		StartedAt:       c.time(),
		StartedBy:       pgtype.Text{String: cmd.StartedBy, Valid: cmd.StartedBy != ""},
	}

	c.processInstances = append(c.processInstances, instance)

	for name, value := range cmd.Variables {
		c.setVariable(instance.Id, "", name, value)
	}

	stored, _ := c.instanceById(instance.Id)
	if err := c.advance(stored, m); err != nil {
		return engine.ProcessInstance{}, err
	}
	return stored.ProcessInstance(), nil
}

func (c *memContext) signalExecution(cmd engine.SignalExecutionCmd) error {
	instance, err := c.instanceById(cmd.ExecutionId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to signal execution",
			Detail: fmt.Sprintf("execution %s could not be found", cmd.ExecutionId),
		}
	}

	m, element, err := c.activeElement(instance, "failed to signal execution")
	if err != nil {
		return err
	}

	if element.Type != model.ElementReceiveTask {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to signal execution",
			Detail: fmt.Sprintf("execution %s is waiting at %s, not at a receive task", instance.Id, element.Id),
		}
	}

	return c.advance(instance, m)
}

func (c *memContext) deleteProcessInstance(cmd engine.DeleteProcessInstanceCmd) error {
	instance, err := c.instanceById(cmd.Id)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to delete process instance",
			Detail: fmt.Sprintf("process instance %s could not be found", cmd.Id),
		}
	}

	if instance.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to delete process instance",
			Detail: fmt.Sprintf("process instance %s has already ended", cmd.Id),
		}
	}

	now := c.time()
	for i := range c.tasks {
		task := &c.tasks[i]
		if task.ProcessInstanceId == instance.Id && !task.IsEnded() {
			task.EndedAt = pgtype.Timestamp{Time: now, Valid: true}
			task.DeleteReason = pgtype.Text{String: cmd.DeleteReason, Valid: cmd.DeleteReason != ""}
		}
	}

	c.endProcessInstance(instance, instance.ActivityId.String)
	instance.DeleteReason = pgtype.Text{String: cmd.DeleteReason, Valid: cmd.DeleteReason != ""}
	return nil
}

// activeElement resolves the BPMN element the instance is currently waiting at.
func (c *memContext) activeElement(instance *processInstanceEntity, title string) (*model.Model, *model.Element, error) {
	if instance.IsEnded() {
		return nil, nil, engine.Error{
			Type:   engine.ErrorConflict,
			Title:  title,
			Detail: fmt.Sprintf("process instance %s has ended", instance.Id),
		}
	}

	definition, err := c.definitionById(instance.ProcessDefinitionId)
	if err == pgx.ErrNoRows {
		return nil, nil, engine.Error{
			Type:   engine.ErrorBug,
			Title:  title,
			Detail: fmt.Sprintf("process definition %s could not be found", instance.ProcessDefinitionId),
		}
	}

	m, err := c.cachedModel(definition)
	if err != nil {
		return nil, nil, err
	}

	element := m.ElementById(instance.ActivityId.String)
	if element == nil {
		return nil, nil, engine.Error{
			Type:   engine.ErrorBug,
			Title:  title,
			Detail: fmt.Sprintf("BPMN element %s could not be found", instance.ActivityId.String),
		}
	}
	return m, element, nil
}

// advance moves the execution from its current element to the next wait state or the end.
func (c *memContext) advance(instance *processInstanceEntity, m *model.Model) error {
	element := m.ElementById(instance.ActivityId.String)
	if element == nil {
		return engine.Error{
			Type:   engine.ErrorBug,
			Title:  "failed to advance execution",
			Detail: fmt.Sprintf("BPMN element %s could not be found", instance.ActivityId.String),
		}
	}

	for {
		next := nextElement(element)
		if next == nil {
			c.endProcessInstance(instance, element.Id)
			return nil
		}

		instance.ActivityId = pgtype.Text{String: next.Id, Valid: true}

		switch next.Type {
		case model.ElementUserTask:
			c.createUserTask(instance, next)
			return nil
		case model.ElementReceiveTask:
			return nil
		case model.ElementServiceTask:
			c.createJob(instance, next.Id, engine.JobAsyncContinuation, c.time())
			return nil
		case model.ElementTimerCatchEvent:
			due, err := engine.ResolveDue(next.Timer, c.time())
			if err != nil {
				return engine.Error{
					Type:   engine.ErrorProcessModel,
					Title:  "failed to advance execution",
					Detail: fmt.Sprintf("invalid timer at BPMN element %s: %v", next.Id, err),
				}
			}
			c.createJob(instance, next.Id, engine.JobTimer, due)
			return nil
		case model.ElementEndEvent:
			c.endProcessInstance(instance, next.Id)
			return nil
		default: // an exclusive gateway is passed through
			element = next
		}
	}
}

// nextElement returns the element the execution moves to, or nil, if the path ends.
func nextElement(element *model.Element) *model.Element {
	if len(element.Outgoing) == 0 {
		return nil
	}

	if gateway, ok := element.Model.(model.ExclusiveGateway); ok && gateway.Default != "" {
		for _, sequenceFlow := range element.Outgoing {
			if sequenceFlow.Id == gateway.Default {
				return sequenceFlow.Target
			}
		}
	}
	return element.Outgoing[0].Target
}

func (c *memContext) endProcessInstance(instance *processInstanceEntity, endActivityId string) {
	instance.ActivityId = pgtype.Text{}
	instance.EndActivityId = pgtype.Text{String: endActivityId, Valid: true}
	instance.EndedAt = pgtype.Timestamp{Time: c.time(), Valid: true}

	// pending jobs, like user task reminders, are obsolete now
	c.jobs = slices.DeleteFunc(c.jobs, func(e jobEntity) bool {
		return e.ProcessInstanceId == instance.Id
	})
}
