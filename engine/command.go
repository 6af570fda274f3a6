package engine

import (
	"time"
)

// CreateDeploymentCmd provides data for the deployment of a BPMN resource.
type CreateDeploymentCmd struct {
	// Model of the BPMN processes as XML.
	BpmnXml string `json:"bpmnXml" validate:"required"`
	// Optional category, used to mark internal deployments.
	Category string `json:"category,omitempty"`
	// Deployment name.
	Name string `json:"name" validate:"required"`
	// Name of the deployed BPMN resource.
	ResourceName string `json:"resourceName,omitempty"`
	// Optional tenant qualifier.
	TenantId string `json:"tenantId,omitempty"`
}

// DeleteDeploymentCmd deletes a deployment and its process definitions.
type DeleteDeploymentCmd struct {
	// Deployment ID.
	Id string `json:"-" validate:"required"`

	// Determines if running and historic process instances are deleted as well.
	Cascade bool `json:"cascade,omitempty"`
}

// StartProcessInstanceCmd provides data for the creation of a process instance.
type StartProcessInstanceCmd struct {
	// ID of an existing process definition.
	ProcessDefinitionId string `json:"processDefinitionId" validate:"required"`

	// Optional key, used to correlate the process instance with a business entity.
	BusinessKey string `json:"businessKey,omitempty"`
	// User the process instance is started by.
	StartedBy string `json:"startedBy,omitempty"`
	// Variables to set at process instance scope.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100"`
}

// SignalExecutionCmd advances an execution that is waiting at a receive task.
type SignalExecutionCmd struct {
	// Execution ID.
	ExecutionId string `json:"-" validate:"required"`
}

// DeleteProcessInstanceCmd deletes a running process instance.
// The historic record is retained and tagged with the delete reason.
type DeleteProcessInstanceCmd struct {
	// Process instance ID.
	Id string `json:"-" validate:"required"`

	// Reason, recorded on the historic process instance.
	DeleteReason string `json:"deleteReason,omitempty"`
}

// CompleteTaskCmd completes a user task and advances its execution.
type CompleteTaskCmd struct {
	// Task ID.
	Id string `json:"-" validate:"required"`

	// Variables to set at process instance scope before the execution is advanced.
	Variables map[string]any `json:"variables,omitempty" validate:"max=100"`
}

// SetTaskAssigneeCmd assigns a user task to a user.
type SetTaskAssigneeCmd struct {
	// Task ID.
	Id string `json:"-" validate:"required"`

	// User to assign. If empty, the task becomes unassigned.
	Assignee string `json:"assignee,omitempty"`
}

// SetVariablesCmd sets or deletes variables at process instance scope.
// A variable mapped to nil is deleted.
type SetVariablesCmd struct {
	// Execution ID.
	ExecutionId string `json:"-" validate:"required"`

	Variables map[string]any `json:"variables,omitempty" validate:"max=100"`
}

// SetTaskVariablesCmd sets or deletes variables at task scope.
// A variable mapped to nil is deleted.
type SetTaskVariablesCmd struct {
	// Task ID.
	TaskId string `json:"-" validate:"required"`

	Variables map[string]any `json:"variables,omitempty" validate:"max=100"`
}

// AddIdentityLinkCmd relates a user or group to a task.
type AddIdentityLinkCmd struct {
	// Task ID.
	TaskId string `json:"-" validate:"required"`

	GroupId string           `json:"groupId,omitempty"`
	Type    IdentityLinkType `json:"type" validate:"required"`
	UserId  string           `json:"userId,omitempty"`
}

// ExecuteJobsCmd specifies which due jobs are executed by the engine.
//
// Due jobs are normally handled by the engine's job executor.
// When waiting for a due job to be executed during testing, this command must be used.
type ExecuteJobsCmd struct {
	// Job condition.
	Id string `json:"id,omitempty"`

	// Process instance condition.
	ProcessInstanceId string `json:"processInstanceId,omitempty"`

	// Maximum number of jobs to execute.
	Limit int `json:"limit,omitempty" validate:"gte=1,lte=100"`
}

// SetTimeCmd increases the engine's time for testing purposes.
type SetTimeCmd struct {
	// A future point in time.
	Time time.Time `json:"time" validate:"required"`
}
