package dyndns

import (
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
)

// A Cache remembers the IP most recently pushed to the DNS provider for a
// hostname. A read miss is reported as an error; the client treats any
// read error as "no known previous IP" and updates the record.
type Cache interface {
	Read(host string) (netip.Addr, error)
	Write(host string, addr netip.Addr) error
	Delete(host string) error
}

// FileCache stores the last pushed IP for each hostname in its own flat
// file named dyndns-<hostname>.txt, holding the bare IP string.
//
// The zero value reads and writes in the current working directory.
type FileCache struct {
	// Dir is the directory holding the cache files.
	// Empty means the current working directory.
	Dir string
}

func (fc *FileCache) path(host string) string {
	dir := fc.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "dyndns-"+host+".txt")
}

// Read implements [Cache].
func (fc *FileCache) Read(host string) (netip.Addr, error) {
	b, err := os.ReadFile(fc.path(host))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error reading cache file: %w", err)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(string(b)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing cached IP: %w", err)
	}
	return addr, nil
}

// Write implements [Cache].
func (fc *FileCache) Write(host string, addr netip.Addr) error {
	if err := os.WriteFile(fc.path(host), []byte(addr.String()+"\n"), 0644); err != nil {
		return fmt.Errorf("error writing cache file: %w", err)
	}
	return nil
}

// Delete implements [Cache].
func (fc *FileCache) Delete(host string) error {
	if err := os.Remove(fc.path(host)); err != nil {
		return fmt.Errorf("error removing cache file: %w", err)
	}
	return nil
}
