package dyndns_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ericsuh/dyndns"
)

func TestNewFileLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := dyndns.NewFileLogger(&buf)
	logger.Info("set A record", "hostname", "home.example.com", "ip", "203.0.113.9")

	out := buf.String()
	if n := strings.Count(out, "\n"); n != 1 {
		t.Fatalf("Expected one line per message; got %d in %q", n, out)
	}
	line := strings.TrimSuffix(out, "\n")

	// every line starts with an asctime-style timestamp
	stamp := line[:len(time.ANSIC)]
	if _, err := time.Parse(time.ANSIC, stamp); err != nil {
		t.Errorf("Line does not start with a timestamp: %q", line)
	}
	for _, want := range []string{`"msg"="set A record"`, `"hostname"="home.example.com"`, `"ip"="203.0.113.9"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Log line %q is missing %q", line, want)
		}
	}
}

func TestNewFileLoggerError(t *testing.T) {
	var buf bytes.Buffer
	logger := dyndns.NewFileLogger(&buf)
	logger.Error(errors.New("connection refused"), "could not list records", "hostname", "home.example.com")

	line := buf.String()
	for _, want := range []string{`"msg"="could not list records"`, `"error"="connection refused"`} {
		if !strings.Contains(line, want) {
			t.Errorf("Log line %q is missing %q", line, want)
		}
	}
}

func TestNewFileLoggerDebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := dyndns.NewFileLogger(&buf)
	logger.V(1).Info("listed records", "total", 4)
	if buf.Len() != 0 {
		t.Errorf("Expected V(1) messages to be suppressed by default; got %q", buf.String())
	}
}
