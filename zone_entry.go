package nsas

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
)

type zoneState uint8

const (
	zoneNotAsked zoneState = iota
	zoneFetchingNS
	zoneHasNS
	zoneUnreachable
)

func (s zoneState) String() string {
	switch s {
	case zoneFetchingNS:
		return "FETCHING_NS"
	case zoneHasNS:
		return "HAS_NS"
	case zoneUnreachable:
		return "UNREACHABLE"
	default:
		return "NOT_ASKED"
	}
}

type pendingCallback struct {
	callback AddressRequestCallback
	family   AddressFamily
}

// outcome is one callback delivery decided under the entry lock and made
// after it is released.
type outcome struct {
	callback AddressRequestCallback
	address  NameserverAddress
	success  bool
}

// zoneEntry caches the set of nameserver names for one zone and aggregates
// usable addresses over the shared nameserver entries. Pending callbacks are
// answered as soon as some nameserver can satisfy their family preference,
// or with failure once every known nameserver is unreachable.
//
// State machine: NOT_ASKED -> FETCHING_NS -> HAS_NS, with UNREACHABLE for a
// cached negative NS answer. Expiry is lazy: a stale entry resets to
// NOT_ASKED on the next access.
type zoneEntry struct {
	name  string
	class uint16

	resolver Resolver
	// Shared with every other zone entry; read/insert access only. The
	// nameserver lru list alone governs nameserver entry lifetimes.
	nsIndex *entryIndex[*nameserverEntry]

	mu          sync.Mutex
	state       zoneState
	expires     time.Time
	nsNames     []string
	nameservers []*nameserverEntry
	pending     []pendingCallback
	generation  uint64
}

func newZoneEntry(name string, class uint16, resolver Resolver, nsIndex *entryIndex[*nameserverEntry]) *zoneEntry {
	return &zoneEntry{
		name:     canonicalName(name),
		class:    class,
		resolver: resolver,
		nsIndex:  nsIndex,
	}
}

func (e *zoneEntry) key() hashKey {
	return hashKey{name: e.name, class: e.class}
}

// expireLocked applies lazy expiry: a stale NS set is invalidated and the
// entry returns to NOT_ASKED. Must be called with e.mu held. Pending
// callbacks only exist while unsettled, so none are dropped here.
func (e *zoneEntry) expireLocked(now time.Time) {
	if e.state != zoneHasNS && e.state != zoneUnreachable {
		return
	}
	if e.expires.After(now) {
		return
	}
	e.state = zoneNotAsked
	e.expires = time.Time{}
	e.nsNames = nil
	e.nameservers = nil
	e.generation++
}

// addCallback is the entry's half of Store.Lookup. It either answers from
// cached state, or queues the callback and makes sure resolution is moving.
// At most one NS fetch is ever in flight for the entry; late callers just
// join the queue. The callback may be invoked before addCallback returns
// (cache hit), but never while any internal lock is held, so callers that
// re-enter the store from their callback are safe.
func (e *zoneEntry) addCallback(callback AddressRequestCallback, family AddressFamily) {
	e.mu.Lock()
	e.expireLocked(timeNow())

	switch e.state {
	case zoneUnreachable:
		// Cached negative: fail without queueing.
		e.mu.Unlock()
		callback.Unreachable()
		return

	case zoneFetchingNS:
		e.pending = append(e.pending, pendingCallback{callback, family})
		e.mu.Unlock()
		return

	case zoneHasNS:
		e.pending = append(e.pending, pendingCallback{callback, family})
		e.mu.Unlock()
		e.evaluate()
		return
	}

	// NOT_ASKED: this caller starts the NS fetch.
	e.pending = append(e.pending, pendingCallback{callback, family})
	e.state = zoneFetchingNS
	gen := e.generation
	e.mu.Unlock()

	Debug(fmt.Sprintf("fetching NS records for zone [%s]", e.name))

	e.resolver.Resolve(e.name, dns.TypeNS, func(records []dns.RR, err error) {
		e.nsFetched(gen, records, err)
	})
}

// nsFetched handles the NS RRset outcome. On success the zone's nameserver
// entries are fetched-or-created from the shared index and set resolving; on
// failure every queued callback is answered with unreachable.
func (e *zoneEntry) nsFetched(gen uint64, records []dns.RR, err error) {
	names := nameserverNames(records)

	e.mu.Lock()
	if gen != e.generation || e.state != zoneFetchingNS {
		e.mu.Unlock()
		return
	}

	if err != nil || len(names) == 0 {
		failed := e.pending
		e.pending = nil
		if err != nil && !errors.Is(err, ErrNoSuchName) {
			// Transient: don't cache the failure, let the next access retry.
			e.state = zoneNotAsked
			e.generation++
		} else {
			e.state = zoneUnreachable
			e.expires = timeNow().Add(NegativeCacheTTL)
		}
		e.mu.Unlock()

		Debug(fmt.Sprintf("no nameservers found for zone [%s]", e.name))
		for _, p := range failed {
			p.callback.Unreachable()
		}
		return
	}

	e.state = zoneHasNS
	e.nsNames = names
	e.expires = timeNow().Add(time.Duration(minTTL(records)) * time.Second)
	e.mu.Unlock()

	Debug(fmt.Sprintf("zone [%s] has %d nameserver(s)", e.name, len(names)))

	e.attachNameservers(names)
	e.evaluate()
}

// attachNameservers gets-or-creates a shared nameserver entry per name and
// subscribes to its settling. The index lock is only held for the
// get-or-add itself, and no entry lock is held while another is taken.
func (e *zoneEntry) attachNameservers(names []string) {
	entries := make([]*nameserverEntry, 0, len(names))
	for _, name := range names {
		ns, _ := e.nsIndex.getOrAdd(newHashKey(name, e.class), func() *nameserverEntry {
			return newNameserverEntry(name, e.class)
		})
		entries = append(entries, ns)
	}

	e.mu.Lock()
	if e.state != zoneHasNS {
		// Expired (or reset) while we were registering; the next access
		// starts over.
		e.mu.Unlock()
		return
	}
	e.nameservers = entries
	e.mu.Unlock()

	for _, ns := range entries {
		ns.ensureResolving(e.resolver, e, e.nameserverSettled)
	}
}

func (e *zoneEntry) nameserverSettled(*nameserverEntry) {
	e.evaluate()
}

// evaluate re-checks every referenced nameserver entry against the pending
// callbacks. A callback is answered with success as soon as any nameserver
// holds an address matching its family preference (ties broken by insertion
// order), and with failure only once every nameserver is unreachable.
// Deliveries happen after the lock is released.
func (e *zoneEntry) evaluate() {
	var deliveries []outcome
	var watch []*nameserverEntry

	e.mu.Lock()
	if e.state != zoneHasNS || len(e.pending) == 0 {
		e.mu.Unlock()
		return
	}

	var addresses []NameserverAddress
	unreachable := 0
	for _, ns := range e.nameservers {
		state, addrs := ns.snapshot()
		switch state {
		case nsReady:
			addresses = append(addresses, addrs...)
		case nsUnreachable:
			unreachable++
		case nsUnknown, nsResolving:
			// Lazily expired since it last settled, or mid-resolution on
			// another zone's behalf. Either way this zone must be in the
			// entry's waiting set or the queued callbacks are stranded.
			watch = append(watch, ns)
		}
	}
	allUnreachable := len(e.nameservers) > 0 && unreachable == len(e.nameservers)

	remaining := e.pending[:0]
	for _, p := range e.pending {
		if address, ok := firstMatching(addresses, p.family); ok {
			deliveries = append(deliveries, outcome{p.callback, address, true})
		} else if allUnreachable {
			deliveries = append(deliveries, outcome{callback: p.callback})
		} else {
			remaining = append(remaining, p)
		}
	}
	e.pending = remaining
	e.mu.Unlock()

	for _, d := range deliveries {
		if d.success {
			Debug(fmt.Sprintf("zone [%s] answered with %s", e.name, d.address))
			d.callback.Success(d.address)
		} else {
			Debug(fmt.Sprintf("zone [%s] answered unreachable", e.name))
			d.callback.Unreachable()
		}
	}

	for _, ns := range watch {
		ns.ensureResolving(e.resolver, e, e.nameserverSettled)
	}
}

// firstMatching returns the first address satisfying the family preference.
func firstMatching(addresses []NameserverAddress, family AddressFamily) (NameserverAddress, bool) {
	for _, address := range addresses {
		if address.matches(family) {
			return address, true
		}
	}
	return NameserverAddress{}, false
}

// nameserverNames extracts the canonical target names from an NS RRset,
// preserving order and dropping duplicates.
func nameserverNames(records []dns.RR) []string {
	nameservers := extractRecords[*dns.NS](records)
	names := make([]string, 0, len(nameservers))
	seen := make(map[string]bool, len(nameservers))
	for _, rr := range nameservers {
		name := canonicalName(rr.Ns)
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
