package nsas

import (
	"fmt"
	"sync/atomic"

	"github.com/miekg/dns"
)

// Store is the nameserver address store: a bounded-memory cache that
// resolves and holds the addresses of authoritative nameservers on behalf of
// a recursive resolver. It owns one hash-table/lru-list pair for zones and
// one for nameservers; nameserver entries are shared across every zone that
// names them. Construct one Store explicitly and inject it into callers;
// there is no process-wide instance.
//
// A Store is safe for use by many goroutines at once. Lookup never blocks,
// and at most one resolution is ever in flight per key.
type Store struct {
	resolver    Resolver
	zones       *entryIndex[*zoneEntry]
	nameservers *entryIndex[*nameserverEntry]

	lookups atomic.Uint64
	hits    atomic.Uint64
}

// NewStore builds a store around the given resolver capability. The hash
// sizes fix the bucket counts of the two tables for the store's lifetime;
// the lru capacities derive as three times each. Zero hash sizes and a nil
// resolver are contract violations.
func NewStore(resolver Resolver, zoneHashSize, nameserverHashSize uint32) *Store {
	if resolver == nil {
		panic("nsas: NewStore requires a resolver")
	}
	return &Store{
		resolver:    resolver,
		zones:       newEntryIndex[*zoneEntry](zoneHashSize),
		nameservers: newEntryIndex[*nameserverEntry](nameserverHashSize),
	}
}

// Lookup asks for an address of a nameserver authoritative for the given
// zone and class, honoring the caller's address-family preference. Exactly
// one callback outcome is delivered per call: Success with an address, or
// Unreachable once every known nameserver for the zone has failed. The
// callback may run before Lookup returns (cache hit) or later from a
// resolver completion; either way no internal lock is held, so the callback
// may call back into the store.
func (s *Store) Lookup(zone string, class uint16, callback AddressRequestCallback, family AddressFamily) {
	trace := NewTrace()
	key := newHashKey(zone, class)

	entry, created := s.zones.getOrAdd(key, func() *zoneEntry {
		return newZoneEntry(key.name, class, s.resolver, s.nameservers)
	})

	s.lookups.Add(1)
	if !created {
		s.hits.Add(1)
	}

	Query(fmt.Sprintf("%s: lookup [%s] %s for %s nameserver address (cached: %t)",
		trace.ShortID(), key.name, dns.ClassToString[class], family, !created))

	entry.addCallback(callback, family)
}

// ZoneCount metrics gathering.
func (s *Store) ZoneCount() int {
	return s.zones.len()
}

// NameserverCount metrics gathering.
func (s *Store) NameserverCount() int {
	return s.nameservers.len()
}

// Evictions returns how many entries, zone and nameserver combined, have
// been aged out since the store was built.
func (s *Store) Evictions() uint64 {
	return s.zones.evictions() + s.nameservers.evictions()
}

// HitRatio returns the fraction of Lookup calls that found a live zone
// entry, as a percentage.
func (s *Store) HitRatio() float64 {
	if lookups := s.lookups.Load(); lookups > 0 {
		return float64(s.hits.Load()*100) / float64(lookups)
	}
	return 0
}
