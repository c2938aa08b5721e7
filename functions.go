package nsas

import (
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// timeNow exists so tests can control expiry deterministically.
var timeNow = time.Now

func canonicalName(name string) string {
	return dns.CanonicalName(name)
}

func extractRecords[T dns.RR](rr []dns.RR) []T {
	result := make([]T, 0, len(rr))
	for _, record := range rr {
		if typedRecord, ok := record.(T); ok {
			result = append(result, typedRecord)
		}
	}
	return result
}

// minTTL returns the smallest TTL across the records, capped at MaxAllowedTTL.
func minTTL(rr []dns.RR) uint32 {
	ttl := MaxAllowedTTL
	for _, record := range rr {
		ttl = min(record.Header().Ttl, ttl)
	}
	if ttl == 0 {
		// A zero TTL would have the entry re-resolved on every access.
		// Hold it for a second instead.
		ttl = 1
	}
	return ttl
}

// addressFromRR converts an A or AAAA record to a nameserver address.
// Anything else returns false.
func addressFromRR(rr dns.RR) (NameserverAddress, bool) {
	switch record := rr.(type) {
	case *dns.A:
		if addr, ok := netip.AddrFromSlice(record.A.To4()); ok {
			return NameserverAddress{Name: canonicalName(record.Header().Name), Addr: addr}, true
		}
	case *dns.AAAA:
		if addr, ok := netip.AddrFromSlice(record.AAAA.To16()); ok {
			return NameserverAddress{Name: canonicalName(record.Header().Name), Addr: addr}, true
		}
	}
	return NameserverAddress{}, false
}
