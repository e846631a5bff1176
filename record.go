package dyndns

import "context"

// RecordTypeA is the record kind managed by the update flow: a hostname to
// IPv4 address mapping.
const RecordTypeA = "A"

// A Record is a DNS record as reported by the provider. Records are owned by
// the provider; this package only observes them and requests mutations.
// Identity for update purposes is the (Name, Type) pair.
type Record struct {
	Name     string // fully qualified hostname, e.g. "home.example.com"
	Type     string // record kind, e.g. "A"
	Value    string // target, e.g. an IPv4 literal
	Editable bool   // false for provider-managed records that must not be touched
	Comment  string
}

// A RecordFilter selects records from a listing. Zero-value fields match
// anything; Editable is tri-state, with nil matching both.
type RecordFilter struct {
	Name     string
	Type     string
	Editable *bool
}

// Matches reports whether r passes the filter.
func (f RecordFilter) Matches(r Record) bool {
	if f.Name != "" && r.Name != f.Name {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Editable != nil && r.Editable != *f.Editable {
		return false
	}
	return true
}

// A Provider executes record operations against a DNS provider's API.
//
// ListRecords returns an empty slice, not an error, when the provider reports
// that no records matched the filter. Implementations keep no local state;
// the remote record set is the only source of truth.
type Provider interface {
	ListRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	AddRecord(ctx context.Context, r Record) error
	RemoveRecord(ctx context.Context, r Record) error
}
