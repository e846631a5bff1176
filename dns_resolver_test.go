package dyndns_test

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"strings"
	"sync"
	"testing"

	"github.com/miekg/dns"

	"github.com/ericsuh/dyndns"
)

// startEchoServer runs an in-process DNS server on a loopback port and
// returns its address.
func startEchoServer(t *testing.T, handler dns.Handler) string {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	var mu sync.Mutex
	var question string
	server := startEchoServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		mu.Lock()
		question = req.Question[0].Name
		mu.Unlock()
		m := new(dns.Msg)
		m.SetReply(req)
		m.Answer = append(m.Answer, &dns.A{
			Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
			A:   net.IPv4(203, 0, 113, 9),
		})
		w.WriteMsg(m)
	}))

	r := &dyndns.DNSResolver{Server: server, Name: "myip.example.com"}
	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if want := netip.MustParseAddr("203.0.113.9"); got != want {
		t.Errorf("Resolve = %v; want %v", got, want)
	}
	mu.Lock()
	defer mu.Unlock()
	if question != "myip.example.com." {
		t.Errorf("Expected the echo name to be queried as a FQDN; got %q", question)
	}
}

func TestDNSResolverServerFailure(t *testing.T) {
	server := startEchoServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeServerFailure)
		w.WriteMsg(m)
	}))

	r := &dyndns.DNSResolver{Server: server, Name: "myip.example.com"}
	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("Expected an error; got err == nil")
	}
}

func TestDNSResolverNoAnswer(t *testing.T) {
	server := startEchoServer(t, dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(req)
		w.WriteMsg(m)
	}))

	r := &dyndns.DNSResolver{Server: server, Name: "myip.example.com"}
	_, err := r.Resolve(context.Background())
	if err == nil {
		t.Fatal("Expected an error; got err == nil")
	}
	if !strings.Contains(err.Error(), "no A records") {
		t.Errorf("Expected a no-answer error; got %s", err)
	}
}

func TestDNSResolverUnreachable(t *testing.T) {
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	server := pc.LocalAddr().String()
	pc.Close()

	r := &dyndns.DNSResolver{Server: server, Name: "myip.example.com"}
	_, err = r.Resolve(context.Background())
	if err == nil {
		t.Fatal("Expected an error; got err == nil")
	}
	var connErr *dyndns.ConnectionError
	if !errors.As(err, &connErr) {
		t.Errorf("Expected a *ConnectionError; got %T", err)
	}
}
