package filter

import (
	"testing"

	"github.com/roysantu2002/service-now-agent/internal/incident"
)

func fixture() []incident.Incident {
	return []incident.Incident{
		{SysID: "a", Number: "INC0001", ShortDescription: "VPN tunnel flapping", State: incident.StateOpen, Priority: incident.PriorityHigh},
		{SysID: "b", Number: "INC0002", ShortDescription: "Database primary down", State: incident.StateOpen, Priority: incident.PriorityCritical},
		{SysID: "c", Number: "INC0003", ShortDescription: "Printer offline", State: incident.StateResolved, Priority: incident.PriorityMedium},
	}
}

func ids(list []incident.Incident) []string {
	out := make([]string, 0, len(list))
	for _, in := range list {
		out = append(out, in.SysID)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApply(t *testing.T) {
	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"state open preserves order", Criteria{State: "open"}, []string{"a", "b"}},
		{"all sentinels are no-ops", Criteria{State: "all", Priority: "all"}, []string{"a", "b", "c"}},
		{"empty criteria pass everything", Criteria{}, []string{"a", "b", "c"}},
		{"query matches number", Criteria{Query: "inc0002"}, []string{"b"}},
		{"query matches short description case-insensitively", Criteria{Query: "DATABASE"}, []string{"b"}},
		{"criteria compose with AND", Criteria{State: "open", Priority: "critical"}, []string{"b"}},
		{"conjunction can be empty", Criteria{State: "resolved", Priority: "critical"}, nil},
		{"priority exact match", Criteria{Priority: "high"}, []string{"a"}},
		{"query substring across items keeps source order", Criteria{Query: "in"}, []string{"a", "b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(Apply(fixture(), tc.c))
			if !equal(got, tc.want) {
				t.Fatalf("Apply(%+v) = %v, want %v", tc.c, got, tc.want)
			}
		})
	}
}

func TestApplyDoesNotMutateSource(t *testing.T) {
	src := fixture()
	_ = Apply(src, Criteria{State: "open"})
	if !equal(ids(src), []string{"a", "b", "c"}) {
		t.Fatal("source collection must not be reordered or truncated")
	}
}

func TestIsZero(t *testing.T) {
	if !(Criteria{}).IsZero() {
		t.Fatal("empty criteria should be zero")
	}
	if !(Criteria{State: "all", Priority: "ALL"}).IsZero() {
		t.Fatal("all-sentinels should be zero")
	}
	if (Criteria{Query: "x"}).IsZero() {
		t.Fatal("active query is not zero")
	}
}
