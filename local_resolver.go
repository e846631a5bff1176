package dyndns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// defaultProbeAddr is the address dialed to make the OS pick a source address
// through route selection. Nothing is ever sent to it.
const defaultProbeAddr = "google.com:80"

// OutboundResolver reports the source address the operating system selects
// for outbound traffic. "Connecting" a UDP socket performs no handshake and
// transmits no packets; it only binds the local end through the routing
// table, which is what gets read back.
type OutboundResolver struct {
	// Target overrides the probe address. The target host is never contacted
	// beyond whatever name resolution the dial itself requires.
	Target string
}

// Resolve implements Resolver. It fails with a *ConnectionError when the OS
// cannot determine a route, e.g. with no network configured.
func (r *OutboundResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	target := defaultProbeAddr
	if r != nil && r.Target != "" {
		target = r.Target
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", target)
	if err != nil {
		return netip.Addr{}, &ConnectionError{Op: "resolve outbound address", Err: err}
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return netip.Addr{}, &ConnectionError{Op: "resolve outbound address", Err: fmt.Errorf("unexpected local address %v", conn.LocalAddr())}
	}
	addr, ok := netip.AddrFromSlice(local.IP)
	if !ok {
		return netip.Addr{}, &ConnectionError{Op: "resolve outbound address", Err: fmt.Errorf("unparseable local address %v", local.IP)}
	}
	return addr.Unmap(), nil
}

// InterfaceResolver constructs a resolver that returns the first usable IPv4
// address reported by the given interfaces.
// If no interfaces are provided then all interfaces will be considered, but
// loopback and link-local addresses will be skipped.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

// Resolve implements Resolver.
func (r interfaceResolver) Resolve(_ context.Context) (netip.Addr, error) {
	var (
		addrs []net.Addr
		errs  []error
	)
	if len(r.ifaces) == 0 {
		all, err := net.InterfaceAddrs()
		if err != nil {
			return netip.Addr{}, fmt.Errorf("error getting addresses for interface: %w", err)
		}
		addrs = all
	}
	for _, name := range r.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		addrs = append(addrs, a...)
	}

	for _, addr := range addrs {
		// addr: ip+net:192.168.86.253/24
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("error parsing local ip %s: %w", addr.String(), err))
			continue
		}
		ip := prefix.Addr().Unmap()
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || !ip.Is4() {
			continue
		}
		return ip, nil
	}
	errs = append(errs, errors.New("no usable IPv4 address on any interface"))
	return netip.Addr{}, errors.Join(errs...)
}
