package mem

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/procflow/procflow/engine"
)

type deploymentEntity struct {
	Id string

	Category     pgtype.Text
	DeployedAt   time.Time
	Name         string
	ResourceName pgtype.Text
	TenantId     pgtype.Text
}

func (e deploymentEntity) Deployment() engine.Deployment {
	return engine.Deployment{
		Id: e.Id,

		Category:     e.Category.String,
		DeployedAt:   e.DeployedAt,
		Name:         e.Name,
		ResourceName: e.ResourceName.String,
		TenantId:     e.TenantId.String,
	}
}

type definitionEntity struct {
	Id string

	BpmnXml      string
	Category     pgtype.Text
	DeploymentId string
	Description  pgtype.Text
	Key          string
	Name         string
	StartFormKey pgtype.Text
	Version      int
}

func (e definitionEntity) ProcessDefinition() engine.ProcessDefinition {
	return engine.ProcessDefinition{
		Id: e.Id,

		Category:     e.Category.String,
		DeploymentId: e.DeploymentId,
		Description:  e.Description.String,
		Key:          e.Key,
		Name:         e.Name,
		StartFormKey: e.StartFormKey.String,
		Version:      e.Version,
	}
}

type processInstanceEntity struct {
	Id string

	ProcessDefinitionId  string
	ProcessDefinitionKey string

	ActivityId      pgtype.Text // empty once the instance has ended
	BusinessKey     pgtype.Text
	DeleteReason    pgtype.Text
	EndActivityId   pgtype.Text
	EndedAt         pgtype.Timestamp
	StartActivityId pgtype.Text
	StartedAt       time.Time
	StartedBy       pgtype.Text
}

func (e processInstanceEntity) IsEnded() bool {
	return e.EndedAt.Valid
}

func (e processInstanceEntity) ProcessInstance() engine.ProcessInstance {
	return engine.ProcessInstance{
		Id: e.Id,

		ProcessDefinitionId: e.ProcessDefinitionId,

		ActivityId:  e.ActivityId.String,
		BusinessKey: e.BusinessKey.String,
		StartedAt:   e.StartedAt,
		StartedBy:   e.StartedBy.String,
	}
}

func (e processInstanceEntity) Execution() engine.Execution {
	return engine.Execution{
		Id: e.Id,

		ProcessInstanceId: e.Id,

		ActivityId: e.ActivityId.String,
		IsEnded:    e.IsEnded(),
	}
}

func (e processInstanceEntity) HistoricProcessInstance() engine.HistoricProcessInstance {
	return engine.HistoricProcessInstance{
		Id: e.Id,

		ProcessDefinitionId:  e.ProcessDefinitionId,
		ProcessDefinitionKey: e.ProcessDefinitionKey,

		BusinessKey:     e.BusinessKey.String,
		DeleteReason:    e.DeleteReason.String,
		EndActivityId:   e.EndActivityId.String,
		EndedAt:         timeOrNil(e.EndedAt),
		StartActivityId: e.StartActivityId.String,
		StartedAt:       e.StartedAt,
		StartedBy:       e.StartedBy.String,
	}
}

type taskEntity struct {
	Id string

	ProcessDefinitionId  string
	ProcessDefinitionKey string
	ProcessInstanceId    string

	Assignee          pgtype.Text
	CreatedAt         time.Time
	DeleteReason      pgtype.Text
	Description       pgtype.Text
	DueAt             pgtype.Timestamp
	EndedAt           pgtype.Timestamp
	FormKey           pgtype.Text
	Name              pgtype.Text
	Owner             pgtype.Text
	Priority          int
	TaskDefinitionKey string
}

func (e taskEntity) IsEnded() bool {
	return e.EndedAt.Valid
}

func (e taskEntity) Task() engine.Task {
	return engine.Task{
		Id: e.Id,

		ExecutionId:         e.ProcessInstanceId,
		ProcessDefinitionId: e.ProcessDefinitionId,
		ProcessInstanceId:   e.ProcessInstanceId,

		Assignee:          e.Assignee.String,
		CreatedAt:         e.CreatedAt,
		Description:       e.Description.String,
		DueAt:             timeOrNil(e.DueAt),
		FormKey:           e.FormKey.String,
		Name:              e.Name.String,
		Owner:             e.Owner.String,
		Priority:          e.Priority,
		TaskDefinitionKey: e.TaskDefinitionKey,
	}
}

func (e taskEntity) HistoricTask() engine.HistoricTask {
	return engine.HistoricTask{
		Id: e.Id,

		ExecutionId:         e.ProcessInstanceId,
		ProcessDefinitionId: e.ProcessDefinitionId,
		ProcessInstanceId:   e.ProcessInstanceId,

		Assignee:          e.Assignee.String,
		CreatedAt:         e.CreatedAt,
		DeleteReason:      e.DeleteReason.String,
		Description:       e.Description.String,
		DueAt:             timeOrNil(e.DueAt),
		EndedAt:           timeOrNil(e.EndedAt),
		FormKey:           e.FormKey.String,
		Name:              e.Name.String,
		Owner:             e.Owner.String,
		Priority:          e.Priority,
		TaskDefinitionKey: e.TaskDefinitionKey,
	}
}

type jobEntity struct {
	Id string

	ProcessDefinitionId string
	ProcessInstanceId   string

	ActivityId string
	DueAt      time.Time
	Error      pgtype.Text
	LockedBy   pgtype.Text
	RetryCount int
	Type       engine.JobType
}

func (e jobEntity) Job() engine.Job {
	return engine.Job{
		Id: e.Id,

		ExecutionId:         e.ProcessInstanceId,
		ProcessDefinitionId: e.ProcessDefinitionId,
		ProcessInstanceId:   e.ProcessInstanceId,

		ActivityId: e.ActivityId,
		DueAt:      e.DueAt,
		Error:      e.Error.String,
		RetryCount: e.RetryCount,
		Type:       e.Type,
	}
}

type variableEntity struct {
	ProcessInstanceId string
	TaskId            pgtype.Text // set for task scoped variables

	Name  string
	Value any
}

type identityLinkEntity struct {
	TaskId string

	GroupId pgtype.Text
	Type    engine.IdentityLinkType
	UserId  pgtype.Text
}

func (e identityLinkEntity) IdentityLink() engine.IdentityLink {
	return engine.IdentityLink{
		TaskId: e.TaskId,

		GroupId: e.GroupId.String,
		Type:    e.Type,
		UserId:  e.UserId.String,
	}
}

func timeOrNil(v pgtype.Timestamp) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
