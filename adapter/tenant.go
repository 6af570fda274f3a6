package adapter

import (
	"context"

	"github.com/procflow/procflow/repo"
)

// hidden process variable, used for tenant isolation when definitions are not
// deployed with tenant-qualified keys
const varTenantDomain = "_tenant_domain"

// filterByDomain retains only the items whose extracted tenant-scoped key
// belongs to the caller's current tenant domain. A caller in the default
// tenant sees all items. Excluded items are dropped silently.
//
// The filter applies to tenant-qualified keys only: when multi-tenant
// deployment mode is disabled, callers skip it and isolation is enforced by
// a hidden variable equality check applied directly to native queries.
func filterByDomain[T any](ctx context.Context, tenants repo.TenantService, items []T, key func(T) string) []T {
	if !tenants.IsEnabled() {
		return items
	}

	domain := tenants.CurrentDomain(ctx)
	if domain == "" {
		return items
	}

	var filtered []T
	for _, item := range items {
		if tenants.DomainOf(key(item)) == domain {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// specialTenantFilter behaves like filterByDomain, but additionally excludes
// items of other, non-default tenants when the caller is in the default
// tenant. This prevents shared historic records from leaking across tenants.
func specialTenantFilter[T any](ctx context.Context, tenants repo.TenantService, items []T, key func(T) string) []T {
	if !tenants.IsEnabled() {
		return items
	}

	domain := tenants.CurrentDomain(ctx)

	var filtered []T
	for _, item := range items {
		if tenants.DomainOf(key(item)) == domain {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
