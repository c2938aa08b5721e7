package nsas

import "errors"

var (
	// ErrNoSuchName marks an authoritative negative answer (NXDOMAIN, or
	// NOERROR with no usable records). Resolvers wrap it so the store can
	// tell cacheable negatives from transient failures.
	ErrNoSuchName = errors.New("no such name")

	ErrQueryFailed           = errors.New("upstream query failed")
	ErrNoUpstreamsConfigured = errors.New("no upstream servers configured")

	// Contract violations. These are programmer errors and are raised as
	// panics, never returned.
	ErrZeroHashSize        = errors.New("hash size must be a positive integer")
	ErrEntryNotTracked     = errors.New("entry is not tracked by the lru list")
	ErrEntryAlreadyTracked = errors.New("entry is already tracked by the lru list")
)
