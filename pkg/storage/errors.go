package storage

import (
	"errors"

	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

var (
	// ErrUnresolvedTenant is returned by Route for an unresolved context.
	ErrUnresolvedTenant = tenant.ErrUnresolvedTenant

	// ErrStorageUnavailable is returned after bounded retries fail.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrUnsupportedDescriptor is returned for a connection descriptor no driver handles.
	ErrUnsupportedDescriptor = errors.New("unsupported connection descriptor")

	// ErrRouterClosed is returned after Close.
	ErrRouterClosed = errors.New("storage router is closed")
)
