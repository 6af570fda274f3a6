package engine

import (
	"fmt"
	"time"

	"github.com/procflow/procflow/model"
)

// JobType describes the different types of asynchronous jobs, executed by the engine's job executor.
//
//   - [JobAsyncContinuation]: continuation of an execution that reached a service task
//   - [JobTimer]: a due timer, attached to a user task or defined by a timer catch event
type JobType int

const (
	JobAsyncContinuation JobType = iota + 1
	JobTimer
)

func MapJobType(s string) JobType {
	switch s {
	case "ASYNC_CONTINUATION":
		return JobAsyncContinuation
	case "TIMER":
		return JobTimer
	default:
		return 0
	}
}

func (v JobType) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v JobType) String() string {
	switch v {
	case JobAsyncContinuation:
		return "ASYNC_CONTINUATION"
	case JobTimer:
		return "TIMER"
	default:
		return ""
	}
}

func (v *JobType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapJobType(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid job type data %s", s)
	}
	return nil
}

// IdentityLinkType describes how a user or group is related to a task.
type IdentityLinkType int

const (
	IdentityAssignee IdentityLinkType = iota + 1
	IdentityCandidate
	IdentityOwner
)

func (v IdentityLinkType) String() string {
	switch v {
	case IdentityAssignee:
		return "ASSIGNEE"
	case IdentityCandidate:
		return "CANDIDATE"
	case IdentityOwner:
		return "OWNER"
	default:
		return ""
	}
}

// Deployment represents one deployed BPMN resource.
type Deployment struct {
	Id string `json:"id"` // Deployment ID.

	Category     string    `json:"category,omitempty"`     // Optional category, used to mark internal deployments.
	DeployedAt   time.Time `json:"deployedAt"`             // Deployment time.
	Name         string    `json:"name"`                   // Deployment name.
	ResourceName string    `json:"resourceName,omitempty"` // Name of the deployed BPMN resource.
	TenantId     string    `json:"tenantId,omitempty"`     // Optional tenant qualifier.
}

func (v Deployment) String() string {
	return fmt.Sprintf("%s:%s", v.Id, v.Name)
}

// ProcessDefinition represents a deployed BPMN process in a specific version.
type ProcessDefinition struct {
	Id string `json:"id"` // Process definition ID.

	Category     string `json:"category,omitempty"` // Category, inherited from the deployment.
	DeploymentId string `json:"deploymentId"`       // ID of the owning deployment.
	Description  string `json:"description,omitempty"`
	Key          string `json:"key"`  // ID of the process element within the BPMN XML.
	Name         string `json:"name"` // Name of the process element within the BPMN XML.
	StartFormKey string `json:"startFormKey,omitempty"`
	Version      int    `json:"version"` // Version, incremented per key on redeployment.
}

func (v ProcessDefinition) String() string {
	return fmt.Sprintf("%s:%s:%d", v.Id, v.Key, v.Version)
}

// ProcessInstance is a running instance of a BPMN process.
//
// The engine executes a process instance as a single path, so the process
// instance doubles as its only execution: execution IDs and process instance
// IDs are interchangeable.
type ProcessInstance struct {
	Id string `json:"id"` // Process instance ID.

	ProcessDefinitionId string `json:"processDefinitionId"` // ID of the related process definition.

	ActivityId  string    `json:"activityId,omitempty"` // ID of the BPMN element the execution is currently at.
	BusinessKey string    `json:"businessKey,omitempty"`
	StartedAt   time.Time `json:"startedAt"` // Start time.
	StartedBy   string    `json:"startedBy,omitempty"`
}

func (v ProcessInstance) String() string {
	return fmt.Sprintf("%s:%s", v.Id, v.ProcessDefinitionId)
}

// Execution is the view of a process instance's active path.
type Execution struct {
	Id string `json:"id"` // Execution ID - equal to the process instance ID.

	ProcessInstanceId string `json:"processInstanceId"`

	ActivityId string `json:"activityId,omitempty"` // ID of the BPMN element the execution is currently at.
	IsEnded    bool   `json:"ended"`
}

// Task is a native user task, waiting to be completed.
type Task struct {
	Id string `json:"id"` // Task ID.

	ExecutionId         string `json:"executionId"`
	ProcessDefinitionId string `json:"processDefinitionId"`
	ProcessInstanceId   string `json:"processInstanceId"`

	Assignee          string     `json:"assignee,omitempty"` // User the task is assigned to.
	CreatedAt         time.Time  `json:"createdAt"`
	Description       string     `json:"description,omitempty"`
	DueAt             *time.Time `json:"dueAt,omitempty"`
	FormKey           string     `json:"formKey,omitempty"` // Key of the form or metadata type attached to the task.
	Name              string     `json:"name,omitempty"`
	Owner             string     `json:"owner,omitempty"`
	Priority          int        `json:"priority"`
	TaskDefinitionKey string     `json:"taskDefinitionKey"` // ID of the user task element within the BPMN XML.
}

func (v Task) IsAssigned() bool {
	return v.Assignee != ""
}

func (v Task) String() string {
	return fmt.Sprintf("%s:%s", v.Id, v.TaskDefinitionKey)
}

// HistoricTask is the historic record of a task, written when the task is created and updated when it ends.
type HistoricTask struct {
	Id string `json:"id"` // Task ID.

	ExecutionId         string `json:"executionId"`
	ProcessDefinitionId string `json:"processDefinitionId"`
	ProcessInstanceId   string `json:"processInstanceId"`

	Assignee          string     `json:"assignee,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	DeleteReason      string     `json:"deleteReason,omitempty"`
	Description       string     `json:"description,omitempty"`
	DueAt             *time.Time `json:"dueAt,omitempty"`
	EndedAt           *time.Time `json:"endedAt,omitempty"` // End time - set once the task is completed or deleted.
	FormKey           string     `json:"formKey,omitempty"`
	Name              string     `json:"name,omitempty"`
	Owner             string     `json:"owner,omitempty"`
	Priority          int        `json:"priority"`
	TaskDefinitionKey string     `json:"taskDefinitionKey"`
}

func (v HistoricTask) IsEnded() bool {
	return v.EndedAt != nil
}

// HistoricProcessInstance is the historic record of a process instance.
// It is written on start, so it exists for active instances as well.
type HistoricProcessInstance struct {
	Id string `json:"id"` // Process instance ID.

	ProcessDefinitionId  string `json:"processDefinitionId"`
	ProcessDefinitionKey string `json:"processDefinitionKey"`

	BusinessKey    string     `json:"businessKey,omitempty"`
	DeleteReason   string     `json:"deleteReason,omitempty"` // Reason, provided when the runtime instance was deleted.
	EndActivityId  string     `json:"endActivityId,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`
	StartActivityId string    `json:"startActivityId,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	StartedBy      string     `json:"startedBy,omitempty"`
}

func (v HistoricProcessInstance) IsEnded() bool {
	return v.EndedAt != nil
}

// Job is a unit of asynchronous work, due at a point in time.
type Job struct {
	Id string `json:"id"` // Job ID.

	ExecutionId         string `json:"executionId"`
	ProcessDefinitionId string `json:"processDefinitionId"`
	ProcessInstanceId   string `json:"processInstanceId"`

	ActivityId string    `json:"activityId"` // ID of the BPMN element the job belongs to.
	DueAt      time.Time `json:"dueAt"`      // Point in time the job becomes due.
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retryCount"`
	Type       JobType   `json:"type"`
}

func (v Job) HasError() bool {
	return v.Error != ""
}

func (v Job) String() string {
	return fmt.Sprintf("%s:%s", v.Id, v.Type)
}

// IdentityLink relates a user or a group to a task.
type IdentityLink struct {
	TaskId string `json:"taskId"`

	GroupId string           `json:"groupId,omitempty"`
	Type    IdentityLinkType `json:"type"`
	UserId  string           `json:"userId,omitempty"`
}

// ParsedDefinition bundles a process definition with its decoded BPMN model.
type ParsedDefinition struct {
	Definition ProcessDefinition
	Model      *model.Model
}

// Process returns the process element of the definition's model.
func (v ParsedDefinition) Process() *model.Element {
	return v.Model.ProcessById(v.Definition.Key)
}
