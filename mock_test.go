package nsas

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/mock"
)

// MockResolver simulates the asynchronous resolver capability via testify.
// Tests capture the completion argument to drive outcomes by hand.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(name string, qtype uint16, completion CompletionFunc) {
	m.Called(name, qtype, completion)
}

//--------------------------------------------------------------------------

type answerKey struct {
	name  string
	qtype uint16
}

type scriptedAnswer struct {
	records []dns.RR
	err     error
}

type heldQuery struct {
	key        answerKey
	completion CompletionFunc
}

// scriptedResolver answers queries from a fixed script, inline on the
// calling goroutine, and counts every query it sees. hold() parks queries
// instead, so tests can pile up concurrent callers before any resolution
// completes; release() then delivers everything parked.
type scriptedResolver struct {
	mu      sync.Mutex
	answers map[answerKey]scriptedAnswer
	counts  map[answerKey]int
	held    []heldQuery
	holding bool
}

func newScriptedResolver() *scriptedResolver {
	return &scriptedResolver{
		answers: make(map[answerKey]scriptedAnswer),
		counts:  make(map[answerKey]int),
	}
}

func (r *scriptedResolver) answer(name string, qtype uint16, records ...dns.RR) {
	r.mu.Lock()
	r.answers[answerKey{dns.CanonicalName(name), qtype}] = scriptedAnswer{records: records}
	r.mu.Unlock()
}

func (r *scriptedResolver) fail(name string, qtype uint16, err error) {
	r.mu.Lock()
	r.answers[answerKey{dns.CanonicalName(name), qtype}] = scriptedAnswer{err: err}
	r.mu.Unlock()
}

func (r *scriptedResolver) hold() {
	r.mu.Lock()
	r.holding = true
	r.mu.Unlock()
}

// release delivers every parked completion, inline.
func (r *scriptedResolver) release() {
	r.mu.Lock()
	held := r.held
	r.held = nil
	r.holding = false
	r.mu.Unlock()

	for _, h := range held {
		r.deliver(h.key, h.completion)
	}
}

func (r *scriptedResolver) Resolve(name string, qtype uint16, completion CompletionFunc) {
	key := answerKey{dns.CanonicalName(name), qtype}

	r.mu.Lock()
	r.counts[key]++
	if r.holding {
		r.held = append(r.held, heldQuery{key, completion})
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.deliver(key, completion)
}

func (r *scriptedResolver) deliver(key answerKey, completion CompletionFunc) {
	r.mu.Lock()
	answer, scripted := r.answers[key]
	r.mu.Unlock()

	if !scripted {
		completion(nil, fmt.Errorf("%w: no scripted answer for %s/%s", ErrQueryFailed, key.name, dns.TypeToString[key.qtype]))
		return
	}
	completion(answer.records, answer.err)
}

func (r *scriptedResolver) queries(name string, qtype uint16) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[answerKey{dns.CanonicalName(name), qtype}]
}

//--------------------------------------------------------------------------

// recordingCallback collects the outcomes delivered to it.
type recordingCallback struct {
	mu          sync.Mutex
	successes   []NameserverAddress
	unreachable int
}

func (c *recordingCallback) Success(address NameserverAddress) {
	c.mu.Lock()
	c.successes = append(c.successes, address)
	c.mu.Unlock()
}

func (c *recordingCallback) Unreachable() {
	c.mu.Lock()
	c.unreachable++
	c.mu.Unlock()
}

func (c *recordingCallback) outcomes() (successes []NameserverAddress, unreachable int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successes, c.unreachable
}

//--------------------------------------------------------------------------

func nsRR(zone, target string, ttl uint32) dns.RR {
	return &dns.NS{
		Hdr: dns.RR_Header{Name: dns.Fqdn(zone), Rrtype: dns.TypeNS, Class: dns.ClassINET, Ttl: ttl},
		Ns:  dns.Fqdn(target),
	}
}

func aRR(name, ip string, ttl uint32) dns.RR {
	return &dns.A{
		Hdr: dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
		A:   net.ParseIP(ip),
	}
}

func aaaaRR(name, ip string, ttl uint32) dns.RR {
	return &dns.AAAA{
		Hdr:  dns.RR_Header{Name: dns.Fqdn(name), Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
		AAAA: net.ParseIP(ip),
	}
}

//--------------------------------------------------------------------------

// fixedClock pins the package clock to a controllable instant. Returns a
// function that advances it and a restore function for deferring.
func fixedClock() (advance func(d time.Duration), restore func()) {
	var mu sync.Mutex
	base := time.Now()
	offset := time.Duration(0)
	previous := timeNow

	timeNow = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return base.Add(offset)
	}

	advance = func(d time.Duration) {
		mu.Lock()
		offset += d
		mu.Unlock()
	}
	restore = func() {
		timeNow = previous
	}
	return advance, restore
}
