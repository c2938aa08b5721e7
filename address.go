package nsas

import (
	"fmt"
	"net/netip"
)

type AddressFamily uint8

const (
	// AnyOK accepts an address of either family.
	AnyOK AddressFamily = iota
	V4Only
	V6Only
)

func (f AddressFamily) String() string {
	switch f {
	case V4Only:
		return "v4-only"
	case V6Only:
		return "v6-only"
	default:
		return "any"
	}
}

// NameserverAddress is one usable address for a named nameserver, as
// delivered to an AddressRequestCallback.
type NameserverAddress struct {
	Name string
	Addr netip.Addr
}

func (a NameserverAddress) Family() AddressFamily {
	if a.Addr.Is4() || a.Addr.Is4In6() {
		return V4Only
	}
	return V6Only
}

// matches reports whether the address satisfies a caller's family preference.
func (a NameserverAddress) matches(family AddressFamily) bool {
	return family == AnyOK || a.Family() == family
}

func (a NameserverAddress) String() string {
	return fmt.Sprintf("%s (%s)", a.Addr, a.Name)
}
