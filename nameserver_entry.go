package nsas

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/dns"
)

type nameserverState uint8

const (
	nsUnknown nameserverState = iota
	nsResolving
	nsReady
	nsUnreachable
)

func (s nameserverState) String() string {
	switch s {
	case nsResolving:
		return "RESOLVING"
	case nsReady:
		return "READY"
	case nsUnreachable:
		return "UNREACHABLE"
	default:
		return "UNKNOWN"
	}
}

// nameserverEntry caches the addresses of one nameserver name. It is shared
// across every zone entry that names it; its lifetime is governed solely by
// the nameserver lru list.
//
// State machine: UNKNOWN -> RESOLVING -> READY | UNREACHABLE. A READY or
// UNREACHABLE entry whose expiration has passed is treated as UNKNOWN on the
// next access and re-resolved; the entry object itself is never destroyed by
// expiry, only its state resets.
type nameserverEntry struct {
	name  string
	class uint16

	mu         sync.Mutex
	state      nameserverState
	addresses  []NameserverAddress // insertion order, first resolved first
	expires    time.Time
	inflight   int
	transient  bool
	generation uint64
	// Keyed by owner so that re-registering replaces rather than accumulates:
	// a zone may subscribe on every evaluation pass without growing the set.
	listeners map[any]func(*nameserverEntry)
}

func newNameserverEntry(name string, class uint16) *nameserverEntry {
	return &nameserverEntry{
		name:  canonicalName(name),
		class: class,
	}
}

func (e *nameserverEntry) key() hashKey {
	return hashKey{name: e.name, class: e.class}
}

// expireLocked applies lazy expiry: a settled entry past its expiration time
// returns to UNKNOWN. An entry with a resolution round still active is never
// expired: the round's completion both refreshes the expiry and carries
// listeners that would otherwise be orphaned. Must be called with e.mu held.
func (e *nameserverEntry) expireLocked(now time.Time) {
	if e.state != nsReady && e.state != nsUnreachable {
		return
	}
	if e.inflight > 0 {
		return
	}
	if e.expires.After(now) {
		return
	}
	e.state = nsUnknown
	e.addresses = nil
	e.expires = time.Time{}
	e.transient = false
	e.generation++
}

// snapshot returns the entry's current state and addresses, honoring lazy
// expiry. The returned slice must not be mutated.
func (e *nameserverEntry) snapshot() (nameserverState, []NameserverAddress) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expireLocked(timeNow())
	return e.state, e.addresses
}

// ensureResolving makes sure the entry is working towards a settled state,
// and arranges for listener to be invoked when it gets there. If the entry
// is already settled, listener is invoked immediately (with no lock held).
// An entry already RESOLVING never issues a second pair of queries; the
// listener just joins the waiting set, keyed by owner, so the same owner
// asking twice holds one slot.
//
// Both address families are always resolved once a name is referenced, so
// mixed-family callers never cause duplicate round-trips.
func (e *nameserverEntry) ensureResolving(resolver Resolver, owner any, listener func(*nameserverEntry)) {
	e.mu.Lock()
	e.expireLocked(timeNow())

	switch e.state {
	case nsReady, nsUnreachable:
		if e.inflight > 0 {
			// One family is still out; stay registered so its late
			// addresses are reported too.
			e.registerLocked(owner, listener)
		}
		e.mu.Unlock()
		listener(e)
		return
	case nsResolving:
		e.registerLocked(owner, listener)
		e.mu.Unlock()
		return
	}

	e.state = nsResolving
	e.inflight = 2
	e.transient = false
	e.registerLocked(owner, listener)
	gen := e.generation
	e.mu.Unlock()

	Debug(fmt.Sprintf("resolving addresses for nameserver [%s]", e.name))

	resolver.Resolve(e.name, dns.TypeA, func(records []dns.RR, err error) {
		e.completed(gen, records, err)
	})
	resolver.Resolve(e.name, dns.TypeAAAA, func(records []dns.RR, err error) {
		e.completed(gen, records, err)
	})
}

// registerLocked adds (or replaces) the owner's listener. Must be called
// with e.mu held.
func (e *nameserverEntry) registerLocked(owner any, listener func(*nameserverEntry)) {
	if e.listeners == nil {
		e.listeners = make(map[any]func(*nameserverEntry))
	}
	e.listeners[owner] = listener
}

// completed handles one family's resolver outcome. The generation check
// drops completions that belong to a round the entry has since expired out
// of. Listeners are notified as soon as the entry settles; they are retained
// until both families have reported, because a later family can add
// addresses a waiting caller cares about.
func (e *nameserverEntry) completed(gen uint64, records []dns.RR, err error) {
	var notify []func(*nameserverEntry)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}

	e.inflight--

	if err == nil {
		e.recordAddressesLocked(records)
	} else if !errors.Is(err, ErrNoSuchName) {
		e.transient = true
	}

	settled := false
	switch {
	case len(e.addresses) > 0:
		e.state = nsReady
		settled = true
	case e.inflight == 0:
		e.state = nsUnreachable
		if e.transient {
			// Held only briefly, but it must outlive the notifications
			// below: an expiry of now would flip the entry back to UNKNOWN
			// before the notified waiters could observe the failure, and
			// they would re-resolve in a tight loop.
			e.expires = timeNow().Add(TransientFailureTTL)
		} else {
			e.expires = timeNow().Add(NegativeCacheTTL)
		}
		settled = true
	}

	if settled {
		for _, listener := range e.listeners {
			notify = append(notify, listener)
		}
		if e.inflight == 0 {
			e.listeners = nil
		}
	}
	state := e.state
	e.mu.Unlock()

	if settled {
		Debug(fmt.Sprintf("nameserver [%s] is %s", e.name, state))
	}
	for _, listener := range notify {
		listener(e)
	}
}

// recordAddressesLocked appends the A/AAAA records to the address list and
// folds their TTLs into the expiration time, keeping the earliest.
// Must be called with e.mu held.
func (e *nameserverEntry) recordAddressesLocked(records []dns.RR) {
	appended := false
	for _, rr := range records {
		address, ok := addressFromRR(rr)
		if !ok {
			continue
		}
		e.addresses = append(e.addresses, address)
		appended = true
	}
	if !appended {
		return
	}
	expires := timeNow().Add(time.Duration(minTTL(records)) * time.Second)
	if e.expires.IsZero() || expires.Before(e.expires) {
		e.expires = expires
	}
}
