package nsas

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/miekg/dns"
)

// dnsClientFactory defines a factory function for creating a DNS client.
type dnsClientFactory func(string) dnsClient

type dnsClient interface {
	ExchangeContext(context.Context, *dns.Msg, string) (*dns.Msg, time.Duration, error)
}

// NetResolver is a concrete Resolver backed by one or more upstream DNS
// servers, queried round-robin over UDP with a TCP retry on truncation or
// error. It exists so the store is usable out of the box; any component able
// to answer A/AAAA/NS queries asynchronously can stand in for it.
type NetResolver struct {
	servers []string
	next    atomic.Uint32

	dnsClientFactory dnsClientFactory
}

// NewNetResolver takes upstream server addresses as host, host:port, or a
// bare IPv6 address; a missing port defaults to 53.
func NewNetResolver(servers ...string) (*NetResolver, error) {
	if len(servers) == 0 {
		return nil, ErrNoUpstreamsConfigured
	}
	withPorts := make([]string, 0, len(servers))
	for _, server := range servers {
		if _, _, err := net.SplitHostPort(server); err != nil {
			// Formats correctly for both ipv4 and ipv6.
			server = net.JoinHostPort(server, "53")
		}
		withPorts = append(withPorts, server)
	}
	return &NetResolver{servers: withPorts}, nil
}

func (*NetResolver) defaultDnsClientFactory(protocol string) dnsClient {
	timeout := DefaultTimeoutUDP
	if protocol == "tcp" {
		timeout = DefaultTimeoutTCP
	}
	return &dns.Client{Net: protocol, Timeout: timeout}
}

// Resolve issues one asynchronous query and delivers the outcome to
// completion from a separate goroutine.
func (r *NetResolver) Resolve(name string, qtype uint16, completion CompletionFunc) {
	go func() {
		completion(r.query(name, qtype))
	}()
}

func (r *NetResolver) query(name string, qtype uint16) ([]dns.RR, error) {
	factory := r.defaultDnsClientFactory
	if r.dnsClientFactory != nil {
		factory = r.dnsClientFactory
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	// Increments to the next server each time.
	// There's a race condition here, but the outcome isn't "important" enough to warrant locking.
	next := r.next.Load() % uint32(len(r.servers))
	r.next.Store(next + 1)
	addr := r.servers[next]

	var rmsg *dns.Msg
	var duration time.Duration
	var err error
	for _, protocol := range []string{"udp", "tcp"} {
		client := factory(protocol)

		rmsg, duration, err = client.ExchangeContext(context.Background(), m, addr)

		Query(fmt.Sprintf(
			"%s taken querying [%s] %s on %s://%s",
			duration,
			m.Question[0].Name,
			dns.TypeToString[qtype],
			protocol,
			addr,
		))

		// If we got an error back, we'll continue to maybe try again.
		if err != nil {
			continue
		}

		// Then we can return straight away.
		if !rmsg.Truncated {
			break
		}
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	switch rmsg.Rcode {
	case dns.RcodeSuccess:
		// Fall through to the answer check below.
	case dns.RcodeNameError:
		return nil, fmt.Errorf("%w: %s", ErrNoSuchName, m.Question[0].Name)
	default:
		return nil, fmt.Errorf("%w: %s returned %s", ErrQueryFailed, addr, dns.RcodeToString[rmsg.Rcode])
	}

	records := answersOfType(rmsg.Answer, qtype)
	if len(records) == 0 {
		// NOERROR but nothing usable: a negative answer, not a failure.
		return nil, fmt.Errorf("%w: no %s records for %s", ErrNoSuchName, dns.TypeToString[qtype], m.Question[0].Name)
	}
	return records, nil
}

func answersOfType(rr []dns.RR, t uint16) []dns.RR {
	records := make([]dns.RR, 0, len(rr))
	for _, record := range rr {
		if record.Header().Rrtype == t {
			records = append(records, record)
		}
	}
	return records
}
