package tenant

import "errors"

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInactiveTenant is returned when trying to use an inactive tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")

	// ErrUnresolvedTenant is returned when an operation requires a resolved
	// tenant context and none was resolved for the request.
	ErrUnresolvedTenant = errors.New("tenant is not resolved")

	// ErrInvalidSlug is returned when a slug is empty or not URL-safe.
	ErrInvalidSlug = errors.New("invalid tenant slug")

	// ErrSlugTaken is returned when another tenant already uses the slug.
	ErrSlugTaken = errors.New("tenant slug already taken")

	// ErrPartitionTaken is returned when another tenant already uses the
	// partition key or connection descriptor.
	ErrPartitionTaken = errors.New("tenant partition already taken")

	// ErrInvalidTenant is returned when a tenant record is incomplete.
	ErrInvalidTenant = errors.New("invalid tenant")

	// ErrInvalidPartition is returned when a partition descriptor does not
	// match its isolation strategy.
	ErrInvalidPartition = errors.New("invalid tenant partition")

	// ErrStrategyChange is returned when a connection update would switch the
	// tenant between shared and dedicated isolation.
	ErrStrategyChange = errors.New("isolation strategy cannot be changed")
)
