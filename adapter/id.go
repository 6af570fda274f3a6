// Package adapter maps the generic workflow object model onto a native
// process engine: identifier translation, multi-tenant filtering, property
// and type conversion, and authenticated execution of asynchronous jobs.
package adapter

import (
	"strings"

	"github.com/procflow/procflow/workflow"
)

const (
	// idSeparator separates the engine ID from the native local ID within a global ID.
	idSeparator = "$"

	// startTaskPrefix marks the local ID of a virtual start task. The
	// remainder of such an ID is the native process instance ID.
	startTaskPrefix = "start"
)

// GlobalId builds a global identifier from an engine ID and a native local ID.
func GlobalId(engineId string, localId string) string {
	return engineId + idSeparator + localId
}

// LocalId extracts the native local identifier from a global one.
// It fails with a workflow error of type [workflow.ErrInvalidFormat], if the
// global ID does not carry the expected engine prefix.
func LocalId(engineId string, globalId string) (string, error) {
	prefix := engineId + idSeparator
	if !strings.HasPrefix(globalId, prefix) || len(globalId) == len(prefix) {
		return "", workflow.NewError(workflow.ErrInvalidFormat, "global ID %s lacks the engine prefix %s", globalId, prefix)
	}
	return globalId[len(prefix):], nil
}

// IsStartTaskId determines if a native local ID denotes a virtual start task.
//
// The prefix test is confined to the identifier boundary: once a local ID is
// recognized, callers dispatch on [workflow.TaskKind], not on the prefix.
func IsStartTaskId(localId string) bool {
	return strings.HasPrefix(localId, startTaskPrefix) && len(localId) > len(startTaskPrefix)
}

// StartTaskLocalId derives the local ID of the virtual start task of a process instance.
func StartTaskLocalId(processInstanceId string) string {
	return startTaskPrefix + processInstanceId
}

// StartTaskInstanceId derives the native process instance ID a start-task local ID belongs to.
func StartTaskInstanceId(startTaskLocalId string) string {
	return strings.TrimPrefix(startTaskLocalId, startTaskPrefix)
}
