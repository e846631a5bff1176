package dyndns

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/miekg/dns"
)

// OpenDNS answers a query for myip.opendns.com with the address the query
// came from, which makes it usable as a public IP lookup.
const (
	defaultEchoServer = "resolver1.opendns.com:53"
	defaultEchoName   = "myip.opendns.com."
)

// DNSResolver looks up the public IP by querying a DNS echo service: a
// resolver that answers a fixed name with the address of whoever asked.
// The zero value queries myip.opendns.com against resolver1.opendns.com.
type DNSResolver struct {
	// Server is the host:port of the DNS server to query.
	Server string
	// Name is the echo name to ask for. It is canonicalized to a FQDN.
	Name string
}

// Resolve implements Resolver.
func (r *DNSResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	server := defaultEchoServer
	name := defaultEchoName
	if r != nil {
		if r.Server != "" {
			server = r.Server
		}
		if r.Name != "" {
			name = dns.Fqdn(r.Name)
		}
	}

	m := new(dns.Msg)
	m.SetQuestion(name, dns.TypeA)

	c := new(dns.Client)
	reply, _, err := c.ExchangeContext(ctx, m, server)
	if err != nil {
		return netip.Addr{}, &ConnectionError{Op: "dns lookup " + name, Err: err}
	}
	if reply.Rcode != dns.RcodeSuccess {
		return netip.Addr{}, fmt.Errorf("dns lookup %s: server returned %s", name, dns.RcodeToString[reply.Rcode])
	}
	for _, ans := range reply.Answer {
		a, ok := ans.(*dns.A)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(a.A)
		if !ok {
			continue
		}
		return addr.Unmap(), nil
	}
	return netip.Addr{}, fmt.Errorf("dns lookup %s: no A records in answer", name)
}
