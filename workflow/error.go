package workflow

import (
	"errors"
	"fmt"
)

// ErrorType is the closed taxonomy of workflow errors. Each type carries its
// own message key, so localization is a pure lookup keyed by the type.
type ErrorType int

const (
	ErrEngineFailure ErrorType = iota + 1
	ErrIllegalUpdate
	ErrInvalidFormat
	ErrInvalidTransition
	ErrUnknownDefinition
	ErrUnknownInstance
	ErrUnknownTask
	ErrUnsupportedConversion
)

func (v ErrorType) String() string {
	switch v {
	case ErrEngineFailure:
		return "ENGINE_FAILURE"
	case ErrIllegalUpdate:
		return "ILLEGAL_UPDATE"
	case ErrInvalidFormat:
		return "INVALID_FORMAT"
	case ErrInvalidTransition:
		return "INVALID_TRANSITION"
	case ErrUnknownDefinition:
		return "UNKNOWN_DEFINITION"
	case ErrUnknownInstance:
		return "UNKNOWN_INSTANCE"
	case ErrUnknownTask:
		return "UNKNOWN_TASK"
	case ErrUnsupportedConversion:
		return "UNSUPPORTED_CONVERSION"
	default:
		return "UNKNOWN"
	}
}

// MessageKey returns the localization key of the error type.
func (v ErrorType) MessageKey() string {
	switch v {
	case ErrEngineFailure:
		return "workflow.err.engine.failure"
	case ErrIllegalUpdate:
		return "workflow.err.task.illegal.update"
	case ErrInvalidFormat:
		return "workflow.err.id.invalid.format"
	case ErrInvalidTransition:
		return "workflow.err.task.invalid.transition"
	case ErrUnknownDefinition:
		return "workflow.err.definition.unknown"
	case ErrUnknownInstance:
		return "workflow.err.instance.unknown"
	case ErrUnknownTask:
		return "workflow.err.task.unknown"
	case ErrUnsupportedConversion:
		return "workflow.err.conversion.unsupported"
	default:
		return "workflow.err.unknown"
	}
}

// Error is the single carrier for all failures of the workflow layer.
// Callers distinguish cases by type, the mapped message key, not by distinct
// error types.
type Error struct {
	Type   ErrorType
	Detail string
	Err    error // Wrapped cause, usually a native engine error.
}

func (e Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Detail)
}

func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates a workflow error with a formatted detail.
func NewError(errorType ErrorType, format string, args ...any) Error {
	return Error{Type: errorType, Detail: fmt.Sprintf(format, args...)}
}

// WrapError creates a workflow error that preserves its cause.
func WrapError(errorType ErrorType, err error, format string, args ...any) Error {
	return Error{Type: errorType, Detail: fmt.Sprintf(format, args...), Err: err}
}

// HasType determines if an error is, or wraps, a workflow error of the given type.
func HasType(err error, errorType ErrorType) bool {
	var workflowErr Error
	return errors.As(err, &workflowErr) && workflowErr.Type == errorType
}
