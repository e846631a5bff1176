package dyndns_test

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"testing"

	"github.com/ericsuh/dyndns"
)

func TestOutboundResolver(t *testing.T) {
	// a local listener guarantees a route exists without touching the network
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer pc.Close()

	r := &dyndns.OutboundResolver{Target: pc.LocalAddr().String()}
	addr, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected := netip.MustParseAddr("127.0.0.1"); addr != expected {
		t.Fatalf("Expected %q; got %q", expected, addr)
	}
}

func TestOutboundResolverBadTarget(t *testing.T) {
	r := &dyndns.OutboundResolver{Target: "192.0.2.1"} // missing port
	_, err := r.Resolve(context.Background())
	if err == nil {
		t.Fatal("Expected an error; got err == nil")
	}
	var connErr *dyndns.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Expected a *ConnectionError; got %T", err)
	}
}

func TestInterfaceResolverUnknownInterface(t *testing.T) {
	r := dyndns.InterfaceResolver("definitely-not-a-real-interface0")
	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("Expected an error; got err == nil")
	}
}
