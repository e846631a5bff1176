package dyndns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that parses a fixed IP from the string
// addr. Parse errors surface when the resolver runs, not here.
func FromString(addr string) Resolver {
	return stringResolver(addr)
}

type stringResolver string

// Resolve implements Resolver.
func (s stringResolver) Resolve(context.Context) (netip.Addr, error) {
	addr, err := netip.ParseAddr(string(s))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("unable to parse IP: %w", err)
	}
	return addr, nil
}
