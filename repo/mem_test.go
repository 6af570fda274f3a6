package repo

import (
	"context"
	"testing"

	"github.com/procflow/procflow/auth"
	"github.com/stretchr/testify/assert"
)

func TestMemPeople(t *testing.T) {
	assert := assert.New(t)

	people := NewPeople(
		Person{UserId: "admin", Groups: []string{"GROUP_reviewers"}},
		Person{UserId: "jane", NodeRef: "workspace://SpacesStore/abc"},
	)

	assert.True(people.Exists("admin"))
	assert.True(people.Exists(auth.SystemUserId))
	assert.False(people.Exists("joe"))

	nodeRef, ok := people.PersonNodeRef("jane")
	assert.True(ok)
	assert.Equal("workspace://SpacesStore/abc", nodeRef)

	nodeRef, ok = people.PersonNodeRef("admin")
	assert.True(ok)
	assert.Equal("workspace://SpacesStore/person-admin", nodeRef)

	userId, ok := people.UserIdOf("workspace://SpacesStore/abc")
	assert.True(ok)
	assert.Equal("jane", userId)

	_, ok = people.UserIdOf("workspace://SpacesStore/unknown")
	assert.False(ok)

	assert.Equal([]string{"GROUP_reviewers"}, people.AuthoritiesOf("admin"))
	assert.Empty(people.AuthoritiesOf("jane"))

	assert.True(people.IsGroup("GROUP_reviewers"))
	assert.False(people.IsGroup("admin"))
}

func TestMemTenants(t *testing.T) {
	assert := assert.New(t)

	tenants := NewTenants(true)

	defaultCtx := auth.WithUser(context.Background(), "admin")
	tenantCtx := auth.WithUser(context.Background(), "alice@acme")

	assert.Empty(tenants.CurrentDomain(defaultCtx))
	assert.Equal("acme", tenants.CurrentDomain(tenantCtx))

	assert.Equal("review", tenants.QualifyName(defaultCtx, "review"))
	assert.Equal("@acme@review", tenants.QualifyName(tenantCtx, "review"))

	assert.Equal("review", tenants.BaseName("@acme@review"))
	assert.Equal("review", tenants.BaseName("review"))

	assert.Equal("acme", tenants.DomainOf("@acme@review"))
	assert.Empty(tenants.DomainOf("review"))

	// disabled tenants never qualify
	disabled := NewTenants(false)
	assert.Equal("review", disabled.QualifyName(tenantCtx, "review"))
}

func TestMemMessages(t *testing.T) {
	assert := assert.New(t)

	messages := NewMessages(map[string]string{
		"workflow.err.task.unknown": "Task %s does not exist",
	})

	assert.Equal("Task procflow$29 does not exist", messages.Message("workflow.err.task.unknown", "procflow$29"))

	// unknown keys fall back to the key itself
	assert.Equal("workflow.err.instance.unknown", messages.Message("workflow.err.instance.unknown"))
}

func TestMemDictionary(t *testing.T) {
	assert := assert.New(t)

	dictionary := NewDictionary(TypeDefinition{
		Name: "wf:reviewTask",
		Properties: map[string]PropertyDefinition{
			"wf:reviewOutcome": {Name: "wf:reviewOutcome", DataType: DataText},
		},
	})

	typeDefinition, ok := dictionary.TypeDefinition("wf:reviewTask")
	assert.True(ok)
	assert.Equal("wf:reviewTask", typeDefinition.Name)

	_, ok = dictionary.TypeDefinition("wf:unknown")
	assert.False(ok)
}

func TestMapDataType(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(DataText, MapDataType("d:text"))
	assert.Equal(DataInt, MapDataType("d:int"))
	assert.Equal(DataType(0), MapDataType("d:unknown"))

	assert.Equal("d:text", DataText.String())
}
