package workflow

import "time"

// TaskQuery specifies the tasks returned by a task query.
//
// Predicates are conjunctive: a task is included only if every supplied
// predicate matches. The query is translated into native query-builder calls
// for ordinary tasks and evaluated manually against synthesized start tasks.
type TaskQuery struct {
	TaskId   string    `json:"taskId,omitempty"`   // Global task ID filter.
	TaskName string    `json:"taskName,omitempty"` // Namespaced task type name filter.
	State    TaskState `json:"state,omitempty"`    // Zero value matches any state.

	Actor string `json:"actor,omitempty"` // Task assignee, or the initiator for start tasks.

	ProcessId   string `json:"processId,omitempty"`   // Global instance ID filter.
	ProcessName string `json:"processName,omitempty"` // Definition name filter.
	Active      *bool  `json:"active,omitempty"`      // Instance active flag filter.

	DueAfter  *time.Time `json:"dueAfter,omitempty"`
	DueBefore *time.Time `json:"dueBefore,omitempty"`

	// TaskProperties restricts the results to tasks whose properties match all given values.
	TaskProperties map[string]any `json:"taskProperties,omitempty" validate:"max=100"`
	// ProcessProperties restricts the results to tasks of instances whose properties match all given values.
	ProcessProperties map[string]any `json:"processProperties,omitempty" validate:"max=100"`
}

// InstanceQuery specifies the instances returned by an instance query.
type InstanceQuery struct {
	DefinitionId string `json:"definitionId,omitempty"` // Global definition ID filter.
	Active       *bool  `json:"active,omitempty"`

	StartedAfter  *time.Time `json:"startedAfter,omitempty"`
	StartedBefore *time.Time `json:"startedBefore,omitempty"`
	EndedAfter    *time.Time `json:"endedAfter,omitempty"`
	EndedBefore   *time.Time `json:"endedBefore,omitempty"`

	// Properties restricts the results to instances whose properties match all given values.
	Properties map[string]any `json:"properties,omitempty" validate:"max=100"`
}
