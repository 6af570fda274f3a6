package mem

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
	"github.com/procflow/procflow/model"
)

func (c *memContext) createDeployment(cmd engine.CreateDeploymentCmd) (engine.Deployment, []engine.ProcessDefinition, error) {
	m, err := model.New(strings.NewReader(cmd.BpmnXml))
	if err != nil {
		return engine.Deployment{}, nil, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to create deployment",
			Detail: err.Error(),
		}
	}

	if causes := engine.ValidateModel(m); len(causes) != 0 {
		return engine.Deployment{}, nil, engine.Error{
			Type:   engine.ErrorProcessModel,
			Title:  "failed to create deployment",
			Detail: "BPMN model cannot be executed",
			Causes: causes,
		}
	}

	deployment := deploymentEntity{
		Id: uuid.NewString(),

		Category:     pgtype.Text{String: cmd.Category, Valid: cmd.Category != ""},
		DeployedAt:   c.time(),
		Name:         cmd.Name,
		ResourceName: pgtype.Text{String: cmd.ResourceName, Valid: cmd.ResourceName != ""},
		TenantId:     pgtype.Text{String: cmd.TenantId, Valid: cmd.TenantId != ""},
	}

	var definitions []engine.ProcessDefinition
	for _, processElement := range m.Definitions.Processes {
		version := 1
		for i := range c.definitions {
			if c.definitions[i].Key == processElement.Id && c.definitions[i].Version >= version {
				version = c.definitions[i].Version + 1
			}
		}

		var startFormKey string
		if startEvent := m.InitialElement(processElement.Id); startEvent != nil {
			startFormKey = startEvent.FormKey
		}

		definition := definitionEntity{
			Id: fmt.Sprintf("%s:%d:%s", processElement.Id, version, c.nextId()),

			BpmnXml:      cmd.BpmnXml,
			Category:     deployment.Category,
			DeploymentId: deployment.Id,
			Description:  pgtype.Text{String: processElement.Documentation, Valid: processElement.Documentation != ""},
			Key:          processElement.Id,
			Name:         processElement.Name,
			StartFormKey: pgtype.Text{String: startFormKey, Valid: startFormKey != ""},
			Version:      version,
		}

		c.definitions = append(c.definitions, definition)
		c.modelCache.Set(definition.Id, m, modelCacheTTL)

		definitions = append(definitions, definition.ProcessDefinition())
	}

	c.deployments = append(c.deployments, deployment)
	return deployment.Deployment(), definitions, nil
}

func (c *memContext) deleteDeployment(cmd engine.DeleteDeploymentCmd) error {
	var deployment *deploymentEntity
	for i := range c.deployments {
		if c.deployments[i].Id == cmd.Id {
			deployment = &c.deployments[i]
			break
		}
	}
	if deployment == nil {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to delete deployment",
			Detail: fmt.Sprintf("deployment %s could not be found", cmd.Id),
		}
	}

	definitionIds := make(map[string]bool)
	for i := range c.definitions {
		if c.definitions[i].DeploymentId == cmd.Id {
			definitionIds[c.definitions[i].Id] = true
		}
	}

	if !cmd.Cascade {
		for i := range c.processInstances {
			instance := &c.processInstances[i]
			if definitionIds[instance.ProcessDefinitionId] && !instance.IsEnded() {
				return engine.Error{
					Type:   engine.ErrorConflict,
					Title:  "failed to delete deployment",
					Detail: fmt.Sprintf("process instance %s of deployment %s is still running", instance.Id, cmd.Id),
				}
			}
		}
	}

	instanceIds := make(map[string]bool)
	for i := range c.processInstances {
		if definitionIds[c.processInstances[i].ProcessDefinitionId] {
			instanceIds[c.processInstances[i].Id] = true
		}
	}

	taskIds := make(map[string]bool)
	for i := range c.tasks {
		if instanceIds[c.tasks[i].ProcessInstanceId] {
			taskIds[c.tasks[i].Id] = true
		}
	}

	c.processInstances = slices.DeleteFunc(c.processInstances, func(e processInstanceEntity) bool {
		return instanceIds[e.Id]
	})
	c.tasks = slices.DeleteFunc(c.tasks, func(e taskEntity) bool {
		return taskIds[e.Id]
	})
	c.jobs = slices.DeleteFunc(c.jobs, func(e jobEntity) bool {
		return instanceIds[e.ProcessInstanceId]
	})
	c.variables = slices.DeleteFunc(c.variables, func(e variableEntity) bool {
		return instanceIds[e.ProcessInstanceId]
	})
	c.identityLinks = slices.DeleteFunc(c.identityLinks, func(e identityLinkEntity) bool {
		return taskIds[e.TaskId]
	})

	c.definitions = slices.DeleteFunc(c.definitions, func(e definitionEntity) bool {
		return definitionIds[e.Id]
	})
	for definitionId := range definitionIds {
		c.modelCache.Delete(definitionId)
	}

	c.deployments = slices.DeleteFunc(c.deployments, func(e deploymentEntity) bool {
		return e.Id == cmd.Id
	})
	return nil
}

func (c *memContext) deleteHistoricProcessInstance(processInstanceId string) error {
	instance, err := c.instanceById(processInstanceId)
	if err == pgx.ErrNoRows {
		return engine.Error{
			Type:   engine.ErrorNotFound,
			Title:  "failed to delete historic process instance",
			Detail: fmt.Sprintf("historic process instance %s could not be found", processInstanceId),
		}
	}

	if !instance.IsEnded() {
		return engine.Error{
			Type:   engine.ErrorConflict,
			Title:  "failed to delete historic process instance",
			Detail: fmt.Sprintf("process instance %s is still running", processInstanceId),
		}
	}

	taskIds := make(map[string]bool)
	for i := range c.tasks {
		if c.tasks[i].ProcessInstanceId == processInstanceId {
			taskIds[c.tasks[i].Id] = true
		}
	}

	c.processInstances = slices.DeleteFunc(c.processInstances, func(e processInstanceEntity) bool {
		return e.Id == processInstanceId
	})
	c.tasks = slices.DeleteFunc(c.tasks, func(e taskEntity) bool {
		return taskIds[e.Id]
	})
	c.variables = slices.DeleteFunc(c.variables, func(e variableEntity) bool {
		return e.ProcessInstanceId == processInstanceId
	})
	c.identityLinks = slices.DeleteFunc(c.identityLinks, func(e identityLinkEntity) bool {
		return taskIds[e.TaskId]
	})
	return nil
}
