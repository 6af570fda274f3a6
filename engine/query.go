package engine

import "time"

// DeploymentCriteria specifies the results, returned by a deployment query.
type DeploymentCriteria struct {
	Id string `json:"id,omitempty"` // Deployment filter.

	Category string `json:"category,omitempty"` // Category filter.
	Name     string `json:"name,omitempty"`     // Name filter.
}

// ProcessDefinitionCriteria specifies the results, returned by a process definition query.
type ProcessDefinitionCriteria struct {
	Id string `json:"id,omitempty"` // Process definition filter.

	DeploymentId string `json:"deploymentId,omitempty"` // Deployment filter.
	Key          string `json:"key,omitempty"`          // BPMN process ID filter.
	// LatestVersion restricts the results to the highest deployed version per key.
	LatestVersion bool `json:"latestVersion,omitempty"`
}

// ProcessInstanceCriteria specifies the results, returned by a process instance query.
type ProcessInstanceCriteria struct {
	Id string `json:"id,omitempty"` // Process instance filter.

	ProcessDefinitionId  string `json:"processDefinitionId,omitempty"`
	ProcessDefinitionKey string `json:"processDefinitionKey,omitempty"`

	// VariableEquals restricts the results to instances whose process variables match all given values.
	VariableEquals map[string]any `json:"variableEquals,omitempty"`
}

// ExecutionCriteria specifies the results, returned by an execution query.
type ExecutionCriteria struct {
	Id string `json:"id,omitempty"` // Execution filter.

	ActivityId        string `json:"activityId,omitempty"`
	ProcessInstanceId string `json:"processInstanceId,omitempty"`
}

// TaskCriteria specifies the results, returned by a task query.
type TaskCriteria struct {
	Id string `json:"id,omitempty"` // Task filter.

	ExecutionId          string `json:"executionId,omitempty"`
	ProcessDefinitionId  string `json:"processDefinitionId,omitempty"`
	ProcessDefinitionKey string `json:"processDefinitionKey,omitempty"`
	ProcessInstanceId    string `json:"processInstanceId,omitempty"`

	Assignee          string     `json:"assignee,omitempty"`
	CandidateGroups   []string   `json:"candidateGroups,omitempty" validate:"max=100"`
	CandidateUserId   string     `json:"candidateUserId,omitempty"`
	DueAfter          *time.Time `json:"dueAfter,omitempty"`
	DueBefore         *time.Time `json:"dueBefore,omitempty"`
	Name              string     `json:"name,omitempty"`
	TaskDefinitionKey string     `json:"taskDefinitionKey,omitempty"`
	Unassigned        bool       `json:"unassigned,omitempty"`

	// ProcessVariableEquals restricts the results to tasks whose process variables match all given values.
	ProcessVariableEquals map[string]any `json:"processVariableEquals,omitempty"`
	// TaskVariableEquals restricts the results to tasks whose local variables match all given values.
	TaskVariableEquals map[string]any `json:"taskVariableEquals,omitempty"`
}

// HistoricTaskCriteria specifies the results, returned by a historic task query.
type HistoricTaskCriteria struct {
	Id string `json:"id,omitempty"` // Task filter.

	ProcessDefinitionKey string `json:"processDefinitionKey,omitempty"`
	ProcessInstanceId    string `json:"processInstanceId,omitempty"`

	Assignee          string     `json:"assignee,omitempty"`
	CompletedAfter    *time.Time `json:"completedAfter,omitempty"`
	CompletedBefore   *time.Time `json:"completedBefore,omitempty"`
	DueAfter          *time.Time `json:"dueAfter,omitempty"`
	DueBefore         *time.Time `json:"dueBefore,omitempty"`
	Finished          bool       `json:"finished,omitempty"`
	Name              string     `json:"name,omitempty"`
	TaskDefinitionKey string     `json:"taskDefinitionKey,omitempty"`
	Unfinished        bool       `json:"unfinished,omitempty"`

	ProcessVariableEquals map[string]any `json:"processVariableEquals,omitempty"`
	TaskVariableEquals    map[string]any `json:"taskVariableEquals,omitempty"`
}

// HistoricProcessInstanceCriteria specifies the results, returned by a historic process instance query.
type HistoricProcessInstanceCriteria struct {
	Id string `json:"id,omitempty"` // Process instance filter.

	ProcessDefinitionId  string `json:"processDefinitionId,omitempty"`
	ProcessDefinitionKey string `json:"processDefinitionKey,omitempty"`

	FinishedAfter  *time.Time `json:"finishedAfter,omitempty"`
	FinishedBefore *time.Time `json:"finishedBefore,omitempty"`
	Finished       bool       `json:"finished,omitempty"`
	StartedAfter   *time.Time `json:"startedAfter,omitempty"`
	StartedBefore  *time.Time `json:"startedBefore,omitempty"`
	StartedBy      string     `json:"startedBy,omitempty"`
	Unfinished     bool       `json:"unfinished,omitempty"`

	VariableEquals map[string]any `json:"variableEquals,omitempty"`
}

// JobCriteria specifies the results, returned by a job query.
type JobCriteria struct {
	Id string `json:"id,omitempty"` // Job filter.

	ExecutionId       string `json:"executionId,omitempty"`
	ProcessInstanceId string `json:"processInstanceId,omitempty"`

	Type JobType `json:"type,omitempty"` // Job type filter.
}
