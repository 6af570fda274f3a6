package engine

import (
	"fmt"
	"strings"
)

type Error struct {
	Type   ErrorType
	Title  string
	Detail string
	Causes []ErrorCause
}

func (e Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s: %s: %s", e.Type, e.Title, e.Detail))

	for _, cause := range e.Causes {
		sb.WriteRune('\n')
		sb.WriteString(cause.String())
	}

	return sb.String()
}

type ErrorType int

const (
	ErrorBug ErrorType = iota + 1
	ErrorConflict
	ErrorNotFound
	ErrorProcessModel
	ErrorQuery
	ErrorValidation
)

func (v ErrorType) String() string {
	switch v {
	case ErrorBug:
		return "BUG"
	case ErrorConflict:
		return "CONFLICT"
	case ErrorNotFound:
		return "NOT_FOUND"
	case ErrorProcessModel:
		return "PROCESS_MODEL"
	case ErrorQuery:
		return "QUERY"
	case ErrorValidation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// IsNotFound determines if an error indicates a missing entity.
func IsNotFound(err error) bool {
	e, ok := err.(Error)
	return ok && e.Type == ErrorNotFound
}

// A cause of a process model or validation [Error] like an unsupported BPMN element or an invalid sequence flow.
type ErrorCause struct {
	Pointer string // A pointer, locating the invalid BPMN element or sequence flow.
	Type    string // Type indicator.
	Detail  string // Human-readable, detailed information about the cause.
}

func (e ErrorCause) String() string {
	return fmt.Sprintf("%s: %s: %s", e.Type, e.Pointer, e.Detail)
}
