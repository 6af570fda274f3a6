// Package workflow defines the generic workflow object model exposed to
// callers: definitions, instances, paths, nodes, tasks and timers.
//
// All values are transient projections over native engine state, computed per
// call. Identifiers are global, i.e. engine-prefixed.
package workflow

import (
	"fmt"
	"time"
)

const (
	// DefaultTransitionId is the single synthetic transition every node exposes.
	DefaultTransitionId = "Next"
)

// TaskState describes the lifecycle state of a task.
type TaskState int

const (
	TaskInProgress TaskState = iota + 1
	TaskCompleted
)

func MapTaskState(s string) TaskState {
	switch s {
	case "IN_PROGRESS":
		return TaskInProgress
	case "COMPLETED":
		return TaskCompleted
	default:
		return 0
	}
}

func (v TaskState) MarshalJSON() ([]byte, error) {
	s := v.String()
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", s)), nil
}

func (v TaskState) String() string {
	switch v {
	case TaskInProgress:
		return "IN_PROGRESS"
	case TaskCompleted:
		return "COMPLETED"
	default:
		return ""
	}
}

func (v *TaskState) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) > 2 {
		s = s[1 : len(s)-1]
		*v = MapTaskState(s)
	}
	if *v == 0 {
		return fmt.Errorf("invalid task state data %s", s)
	}
	return nil
}

// TaskKind distinguishes the synthetic start task of a process instance from
// an ordinary native task.
//
//   - [TaskStart]: the virtual start task; it has no native task entity and
//     its local ID is derived from the process instance ID
//   - [TaskOrdinary]: a task backed by a native task or historic task
type TaskKind int

const (
	TaskOrdinary TaskKind = iota + 1
	TaskStart
)

func (v TaskKind) String() string {
	switch v {
	case TaskOrdinary:
		return "ORDINARY"
	case TaskStart:
		return "START"
	default:
		return ""
	}
}

// Definition is a deployed workflow definition in a specific version.
type Definition struct {
	Id string `json:"id"` // Global definition ID.

	Key     string `json:"key"`  // Engine-native definition key, tenant-qualified when multi-tenancy is enabled.
	Name    string `json:"name"` // Definition name with any tenant prefix stripped.
	Version int    `json:"version"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	// StartTaskDefinition describes the synthetic start task of instances of this definition.
	StartTaskDefinition TaskDefinition `json:"startTaskDefinition"`
}

// Deployment wraps the definition created by one deploy call.
type Deployment struct {
	Definition Definition `json:"definition"`

	DeployedAt   time.Time `json:"deployedAt"`
	ResourceName string    `json:"resourceName,omitempty"`

	// Problems reported by the engine during deployment, if any.
	Problems []string `json:"problems,omitempty"`
}

// Instance is a workflow instance, backed by a native process instance or its
// historic record.
type Instance struct {
	Id string `json:"id"` // Global instance ID.

	Definition *Definition `json:"definition,omitempty"`

	Active      bool           `json:"active"`
	Description string         `json:"description,omitempty"`
	DueAt       *time.Time     `json:"dueAt,omitempty"`
	EndedAt     *time.Time     `json:"endedAt,omitempty"`
	Initiator   string         `json:"initiator,omitempty"`
	PackageRef  string         `json:"packageRef,omitempty"` // Node reference of the workflow package.
	Priority    int            `json:"priority,omitempty"`
	Properties  map[string]any `json:"properties,omitempty"` // Namespaced typed property values.
	StartedAt   time.Time      `json:"startedAt"`
}

func (v Instance) String() string {
	return fmt.Sprintf("%s:%t", v.Id, v.Active)
}

// Path is the active (or finished) execution path of an instance.
// Paths are recomputed on every query, never stored.
type Path struct {
	Id string `json:"id"` // Global path ID - equal to the global execution ID.

	Instance *Instance `json:"instance,omitempty"`

	Active bool  `json:"active"`
	Node   *Node `json:"node,omitempty"` // Current node, nil when the path has finished.
}

// Node is the static view of an activity within a definition.
type Node struct {
	Name string `json:"name"` // Activity ID within the definition.

	DefinitionKey string `json:"definitionKey"`

	Description string `json:"description,omitempty"`
	IsTaskNode  bool   `json:"isTaskNode"`
	Title       string `json:"title,omitempty"`
	Type        string `json:"type"` // Node type tag, e.g. "userTask" or "startEvent".

	// DefaultTransition is the single exposed outgoing transition.
	DefaultTransition Transition `json:"defaultTransition"`
}

// Transition is an outgoing connection of a node. Only the synthetic default
// transition is exposed; named native transitions are mapped onto the outcome
// property mechanism instead.
type Transition struct {
	Id string `json:"id"`

	Title string `json:"title,omitempty"`
}

// TaskDefinition bundles the metadata of a task: its type name, node and form key.
type TaskDefinition struct {
	Id string `json:"id"` // Task definition key - the activity ID, or "start" for the start task.

	Node     *Node  `json:"node,omitempty"`
	TypeName string `json:"typeName,omitempty"` // Namespaced metadata type, derived from the form key.
}

// Task is a unit of work presented to users: either the virtual start task of
// an instance or an ordinary native task.
type Task struct {
	Id string `json:"id"` // Global task ID.

	Kind TaskKind `json:"-"`

	Definition TaskDefinition `json:"definition"`
	Path       *Path          `json:"path,omitempty"`

	Description string         `json:"description,omitempty"`
	Name        string         `json:"name"` // Namespaced type name of the task.
	Properties  map[string]any `json:"properties,omitempty"`
	State       TaskState      `json:"state"`
	Title       string         `json:"title,omitempty"`
}

func (v Task) String() string {
	return fmt.Sprintf("%s:%s", v.Id, v.State)
}

// Timer is a pending native timer job, associated with a path and, when the
// execution waits at a user task, with that task.
type Timer struct {
	Id string `json:"id"` // Global timer ID.

	DueAt time.Time `json:"dueAt"`
	Error string    `json:"error,omitempty"`

	Path *Path `json:"path,omitempty"`
	Task *Task `json:"task,omitempty"` // Set only if the execution waits at a user task.
}
