package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	assert := assert.New(t)

	err := NewError(ErrUnknownTask, "no task %s", "procflow$29")
	assert.Equal("UNKNOWN_TASK: no task procflow$29", err.Error())
	assert.Nil(err.Unwrap())

	cause := errors.New("no rows")
	wrapped := WrapError(ErrEngineFailure, cause, "query failed")
	assert.Equal("ENGINE_FAILURE: query failed: no rows", wrapped.Error())
	assert.Equal(cause, wrapped.Unwrap())
	assert.ErrorIs(wrapped, cause)
}

func TestHasType(t *testing.T) {
	assert := assert.New(t)

	err := NewError(ErrInvalidTransition, "transition Other is not supported")
	assert.True(HasType(err, ErrInvalidTransition))
	assert.False(HasType(err, ErrUnknownTask))

	wrapped := fmt.Errorf("failed to end task: %w", err)
	assert.True(HasType(wrapped, ErrInvalidTransition))

	assert.False(HasType(errors.New("other"), ErrInvalidTransition))
}

func TestErrorTypeMessageKey(t *testing.T) {
	assert := assert.New(t)

	types := []ErrorType{
		ErrEngineFailure,
		ErrIllegalUpdate,
		ErrInvalidFormat,
		ErrInvalidTransition,
		ErrUnknownDefinition,
		ErrUnknownInstance,
		ErrUnknownTask,
		ErrUnsupportedConversion,
	}

	keys := make(map[string]bool, len(types))
	for _, errorType := range types {
		key := errorType.MessageKey()
		assert.NotEqualf("workflow.err.unknown", key, "type %s has no message key", errorType)
		keys[key] = true
	}
	assert.Len(keys, len(types), "message keys are not distinct")
}
