package tenantdb

import "errors"

// ErrUnsupportedStore is returned when the shared store is not relational.
var ErrUnsupportedStore = errors.New("tenant directory requires a postgres shared store")
