package nsas

import "github.com/miekg/dns"

// CompletionFunc delivers the outcome of one asynchronous Resolve call:
// either a resource-record set carrying per-record TTLs, or an error. An
// error wrapping ErrNoSuchName is an authoritative negative answer and is
// cached for NegativeCacheTTL; any other error is treated as transient and
// is not cached, so the next access may retry immediately.
type CompletionFunc func(records []dns.RR, err error)

// Resolver is the store's one outward dependency: something able to perform
// an asynchronous name-to-RRset lookup. Resolve must not block; the
// completion may be invoked from any goroutine, including inline.
type Resolver interface {
	Resolve(name string, qtype uint16, completion CompletionFunc)
}

// AddressRequestCallback receives the outcome of a Store.Lookup call.
// Exactly one of the two methods is invoked, exactly once per Lookup.
type AddressRequestCallback interface {
	Success(address NameserverAddress)
	Unreachable()
}

// CallbackFuncs adapts plain functions to an AddressRequestCallback.
// Either field may be nil if the caller has no interest in that outcome.
type CallbackFuncs struct {
	OnSuccess     func(address NameserverAddress)
	OnUnreachable func()
}

func (c CallbackFuncs) Success(address NameserverAddress) {
	if c.OnSuccess != nil {
		c.OnSuccess(address)
	}
}

func (c CallbackFuncs) Unreachable() {
	if c.OnUnreachable != nil {
		c.OnUnreachable()
	}
}
