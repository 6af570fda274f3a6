package adapter

import (
	"testing"

	"github.com/procflow/procflow/repo"
	"github.com/stretchr/testify/assert"
)

func identity(v string) string {
	return v
}

func TestFilterByDomain(t *testing.T) {
	assert := assert.New(t)

	tenants := repo.NewTenants(true)
	keys := []string{"@tenantA@foo", "@tenantB@foo", "foo"}

	// when caller belongs to tenantA
	filtered := filterByDomain(userContext("user@tenantA"), tenants, keys, identity)

	// then
	assert.Equal([]string{"@tenantA@foo"}, filtered)

	// when caller belongs to the default tenant
	filtered = filterByDomain(userContext("user"), tenants, keys, identity)

	// then the default tenant sees everything
	assert.Equal(keys, filtered)
}

func TestFilterByDomainDisabled(t *testing.T) {
	assert := assert.New(t)

	tenants := repo.NewTenants(false)
	keys := []string{"@tenantA@foo", "foo"}

	// when
	filtered := filterByDomain(userContext("user@tenantA"), tenants, keys, identity)

	// then the filter is a no-op
	assert.Equal(keys, filtered)
}

func TestSpecialTenantFilter(t *testing.T) {
	assert := assert.New(t)

	tenants := repo.NewTenants(true)
	keys := []string{"@tenantA@foo", "@tenantB@foo", "foo"}

	// when caller belongs to tenantA
	filtered := specialTenantFilter(userContext("user@tenantA"), tenants, keys, identity)

	// then
	assert.Equal([]string{"@tenantA@foo"}, filtered)

	// when caller belongs to the default tenant
	filtered = specialTenantFilter(userContext("user"), tenants, keys, identity)

	// then items of other tenants do not leak into the default tenant
	assert.Equal([]string{"foo"}, filtered)
}
