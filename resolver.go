package dyndns

import (
	"context"
	"errors"
	"net/netip"
)

// DefaultResolver determines the current IP by asking the operating system
// which source address it would pick for outbound traffic.
var DefaultResolver Resolver = &OutboundResolver{}

// A Resolver determines the machine's current IP address.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }

// Fallback returns a resolver that tries each given resolver in order and
// returns the first successful answer. It fails only when every resolver
// failed, with the individual errors joined.
func Fallback(resolvers ...Resolver) Resolver {
	return fallbackResolver(resolvers)
}

type fallbackResolver []Resolver

func (rs fallbackResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	if len(rs) == 0 {
		return netip.Addr{}, errors.New("no resolvers were provided")
	}
	var errs []error
	for _, r := range rs {
		addr, err := r.Resolve(ctx)
		if err == nil {
			return addr, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return netip.Addr{}, errors.Join(errs...)
}
