package dyndns_test

import (
	"testing"

	"github.com/ericsuh/dyndns"
)

func TestRecordFilterMatches(t *testing.T) {
	editable := true
	uneditable := false
	record := dyndns.Record{Name: "home.example.com", Type: "A", Value: "203.0.113.9", Editable: true}
	locked := dyndns.Record{Name: "home.example.com", Type: "A", Value: "203.0.113.9", Editable: false}

	cases := []struct {
		name   string
		filter dyndns.RecordFilter
		record dyndns.Record
		want   bool
	}{
		{"zero filter matches anything", dyndns.RecordFilter{}, record, true},
		{"name match", dyndns.RecordFilter{Name: "home.example.com"}, record, true},
		{"name mismatch", dyndns.RecordFilter{Name: "other.example.com"}, record, false},
		{"type match", dyndns.RecordFilter{Type: "A"}, record, true},
		{"type mismatch", dyndns.RecordFilter{Type: "TXT"}, record, false},
		{"editable match", dyndns.RecordFilter{Editable: &editable}, record, true},
		{"editable mismatch", dyndns.RecordFilter{Editable: &editable}, locked, false},
		{"uneditable match", dyndns.RecordFilter{Editable: &uneditable}, locked, true},
		{"nil editable matches locked", dyndns.RecordFilter{Name: "home.example.com"}, locked, true},
		{"all fields", dyndns.RecordFilter{Name: "home.example.com", Type: "A", Editable: &editable}, record, true},
		{"all fields with one mismatch", dyndns.RecordFilter{Name: "home.example.com", Type: "TXT", Editable: &editable}, record, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tc.record); got != tc.want {
				t.Errorf("Matches(%+v) = %v; want %v", tc.record, got, tc.want)
			}
		})
	}
}
