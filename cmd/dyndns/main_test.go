package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// startProvider runs a minimal DreamHost-style endpoint that reports an
// empty zone and accepts everything else, recording the commands served.
func startProvider(t *testing.T) (baseURL string, cmds func() []string) {
	t.Helper()
	var mu sync.Mutex
	var served []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cmd := r.URL.Query().Get("cmd")
		mu.Lock()
		served = append(served, cmd)
		mu.Unlock()
		if cmd == "dns-list_records" {
			fmt.Fprint(w, `{"result":"success","data":[]}`)
			return
		}
		fmt.Fprint(w, `{"result":"success","data":"ok"}`)
	}))
	t.Cleanup(srv.Close)
	return srv.URL, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), served...)
	}
}

func TestRunUpdatesRecord(t *testing.T) {
	baseURL, cmds := startProvider(t)
	dir := t.TempDir()
	cfg := &config{Provider: "dreamhost", BaseURL: baseURL, CacheDir: dir}
	opts := &options{ip: "203.0.113.9"}

	if err := run(opts, cfg, []string{"testkey", "home.example.com"}); err != nil {
		t.Fatalf("run failed: %s", err)
	}

	if want := []string{"dns-list_records", "dns-add_record"}; !reflect.DeepEqual(cmds(), want) {
		t.Errorf("Commands served = %v; want %v", cmds(), want)
	}
	b, err := os.ReadFile(filepath.Join(dir, "dyndns-home.example.com.txt"))
	if err != nil {
		t.Fatalf("Expected the cache file to be written: %s", err)
	}
	if got := strings.TrimSpace(string(b)); got != "203.0.113.9" {
		t.Errorf("Cached IP = %q; want %q", got, "203.0.113.9")
	}
}

func TestRunClean(t *testing.T) {
	baseURL, cmds := startProvider(t)
	dir := t.TempDir()
	cache := filepath.Join(dir, "dyndns-home.example.com.txt")
	if err := os.WriteFile(cache, []byte("203.0.113.9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &config{Provider: "dreamhost", BaseURL: baseURL, CacheDir: dir}
	opts := &options{clean: true}

	if err := run(opts, cfg, []string{"testkey", "home.example.com"}); err != nil {
		t.Fatalf("run failed: %s", err)
	}

	if want := []string{"dns-list_records"}; !reflect.DeepEqual(cmds(), want) {
		t.Errorf("Commands served = %v; want %v", cmds(), want)
	}
	if _, err := os.Stat(cache); !os.IsNotExist(err) {
		t.Errorf("Expected the cache file to be removed; got %v", err)
	}
}

func TestRunSwallowsRemoteFailures(t *testing.T) {
	// a closed server makes every provider call fail
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	dir := t.TempDir()
	cfg := &config{Provider: "dreamhost", BaseURL: srv.URL, CacheDir: dir}

	opts := &options{ip: "203.0.113.9"}
	if err := run(opts, cfg, []string{"testkey", "home.example.com"}); err != nil {
		t.Errorf("Expected remote failures to be swallowed for the scheduler; got %s", err)
	}

	opts = &options{ip: "203.0.113.9", strict: true}
	if err := run(opts, cfg, []string{"testkey", "home.example.com"}); err == nil {
		t.Error("Expected --strict to report the failure; got err == nil")
	}
}

func TestRunValidation(t *testing.T) {
	cases := []struct {
		name string
		opts *options
		cfg  *config
		args []string
	}{
		{name: "missing key", opts: &options{}, cfg: &config{}, args: []string{"home.example.com"}},
		{name: "hostname without a dot", opts: &options{}, cfg: &config{}, args: []string{"testkey", "localhost"}},
		{name: "unknown provider", opts: &options{ip: "203.0.113.9"}, cfg: &config{Provider: "route53"}, args: []string{"testkey", "home.example.com"}},
		{name: "clean with interval", opts: &options{clean: true, interval: 1}, cfg: &config{}, args: []string{"testkey", "home.example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := run(tc.opts, tc.cfg, tc.args); err == nil {
				t.Error("Expected an error; got err == nil")
			}
		})
	}
}

func TestRunKeyFromConfig(t *testing.T) {
	baseURL, cmds := startProvider(t)
	dir := t.TempDir()
	cfg := &config{Key: "configkey", Provider: "dreamhost", BaseURL: baseURL, CacheDir: dir}
	opts := &options{ip: "203.0.113.9"}

	if err := run(opts, cfg, []string{"home.example.com"}); err != nil {
		t.Fatalf("run failed: %s", err)
	}
	if got := cmds(); len(got) == 0 {
		t.Fatal("Expected the provider to be called")
	}
}
