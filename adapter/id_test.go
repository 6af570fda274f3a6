package adapter

import (
	"strings"
	"testing"

	"github.com/procflow/procflow/workflow"
	"github.com/stretchr/testify/assert"
)

func TestGlobalIdRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, localId := range []string{"1", "review:1:10", "start5", "a$b"} {
		globalId := GlobalId("procflow", localId)
		assert.Equal(1, strings.Count(globalId, idSeparator)-strings.Count(localId, idSeparator))

		actual, err := LocalId("procflow", globalId)
		assert.NoErrorf(err, "local ID %s", localId)
		assert.Equal(localId, actual)
	}
}

func TestLocalIdWithInvalidFormat(t *testing.T) {
	assert := assert.New(t)

	for _, globalId := range []string{"", "1", "other$1", "procflow", "procflow$"} {
		_, err := LocalId("procflow", globalId)
		assert.Truef(workflow.HasType(err, workflow.ErrInvalidFormat), "global ID %s", globalId)
	}
}

func TestStartTaskId(t *testing.T) {
	assert := assert.New(t)

	localId := StartTaskLocalId("47")
	assert.Equal("start47", localId)
	assert.True(IsStartTaskId(localId))
	assert.Equal("47", StartTaskInstanceId(localId))

	assert.False(IsStartTaskId("47"))
	assert.False(IsStartTaskId("start")) // no instance ID remainder
}
