package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches, stores, and lookup clients
// return these (optionally wrapped) so services can translate them into domain
// errors:
// - ErrNotFound: the key or record does not exist (cache miss, unknown session)
// - ErrExpired: a cached entry outlived its TTL
// - ErrUnavailable: a backing service is temporarily unreachable
//
// For field validation failures use internal/intake/validation; for coded API
// errors use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
