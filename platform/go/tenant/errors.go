package tenant

import "errors"

// ErrNotResolved is returned by resolvers when the principal has no tenant membership.
var ErrNotResolved = errors.New("tenant not found")
