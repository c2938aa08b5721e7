package nsas

import (
	"fmt"
	"hash/maphash"

	"github.com/miekg/dns"
)

// hashKey is the composite identity used by every table lookup: a domain
// name and a record class. The name is canonicalised on construction, so
// equality and hashing are case-insensitive. Immutable once built.
type hashKey struct {
	name  string
	class uint16
}

func newHashKey(name string, class uint16) hashKey {
	return hashKey{
		name:  dns.CanonicalName(name),
		class: class,
	}
}

func (k hashKey) sum(seed maphash.Seed) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(k.name)
	h.WriteByte(byte(k.class >> 8))
	h.WriteByte(byte(k.class))
	return h.Sum64()
}

func (k hashKey) String() string {
	return fmt.Sprintf("%s/%s", k.name, dns.ClassToString[k.class])
}
