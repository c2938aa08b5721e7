package nsas

import "time"

const (
	DefaultMaxAllowedTTL = uint32(60 * 60 * 48) // 48 Hours

	DefaultNegativeCacheTTL = 60 * time.Second

	DefaultTransientFailureTTL = time.Second

	// Default hash sizes for the two tables. Primes, so chains spread evenly
	// even with clustered names. The LRU capacities derive as three times
	// these.
	DefaultZoneHashSize       = uint32(1009)
	DefaultNameserverHashSize = uint32(3001)

	DefaultTimeoutUDP = 150 * time.Millisecond
	DefaultTimeoutTCP = 600 * time.Millisecond

	// lruCapacityFactor fixes each lru list's capacity at this multiple of
	// its paired hash table's bucket count.
	lruCapacityFactor = 3
)

var (
	// MaxAllowedTTL defines the maximum TTL that we'll cache any record set for.
	// This overrides any TTLs set by records we receive. Shorter TTLs on
	// received records will still be respected.
	MaxAllowedTTL = DefaultMaxAllowedTTL

	// NegativeCacheTTL is how long an authoritative negative answer is held
	// before the entry is re-resolved.
	NegativeCacheTTL = DefaultNegativeCacheTTL

	// TransientFailureTTL is how long a transient failure (timeouts,
	// SERVFAIL-class errors) is held. It must be positive: the waiters
	// notified by the failing round have to be able to observe the
	// unreachable state before it lapses.
	TransientFailureTTL = DefaultTransientFailureTTL
)

//---

type Logger func(string)

// Default logging functions just black-hole the input.

var Query Logger = func(s string) {}
var Debug Logger = func(s string) {}
var Info Logger = func(s string) {}
var Warn Logger = func(s string) {}
