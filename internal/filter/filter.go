// Package filter derives a filtered, ordered view of a cached incident
// collection from user-supplied criteria. It is a pure projection: the
// source slice is never modified and the relative order of matching items
// is preserved.
package filter

import (
	"strings"

	"github.com/roysantu2002/service-now-agent/internal/incident"
)

// All is the sentinel value meaning "no filtering" for the state and
// priority criteria. An empty string behaves the same way.
const All = "all"

// Criteria is the active filter state. Criteria compose conjunctively: an
// incident must match every active criterion to appear in the projection.
type Criteria struct {
	// Query matches case-insensitively as a substring of the incident
	// number or short description.
	Query string
	// State matches exactly when set to a lifecycle state; "" or "all"
	// disables it.
	State string
	// Priority matches exactly when set; "" or "all" disables it.
	Priority string
}

// IsZero reports whether no criterion is active.
func (c Criteria) IsZero() bool {
	return !active(c.Query) && !active(c.State) && !active(c.Priority)
}

func active(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// Matches reports whether in satisfies every active criterion.
func (c Criteria) Matches(in incident.Incident) bool {
	if active(c.Query) {
		q := strings.ToLower(strings.TrimSpace(c.Query))
		number := strings.ToLower(in.Number)
		short := strings.ToLower(in.ShortDescription)
		if !strings.Contains(number, q) && !strings.Contains(short, q) {
			return false
		}
	}
	if active(c.State) && !strings.EqualFold(c.State, string(in.State)) {
		return false
	}
	if active(c.Priority) && !strings.EqualFold(c.Priority, string(in.Priority)) {
		return false
	}
	return true
}

// Apply returns the incidents matching c, in their original order. The
// result is always a fresh slice; the input is left untouched.
func Apply(incidents []incident.Incident, c Criteria) []incident.Incident {
	out := make([]incident.Incident, 0, len(incidents))
	for _, in := range incidents {
		if c.Matches(in) {
			out = append(out, in)
		}
	}
	return out
}
