// Package rbac maps a session role to the set of workspace actions it may
// invoke. The mapping is a pure function: it is recomputed on every access
// and never mutated outside a role change.
package rbac

// Role identifies the operator's access level. Issued by the authentication
// collaborator; read-only inside the workspace.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Capability names one action a role may invoke.
type Capability string

const (
	CapViewIncidents    Capability = "view-incidents"
	CapFilterIncidents  Capability = "filter-incidents"
	CapAnalyzeIncident  Capability = "analyze-incident"
	CapProcessIncident  Capability = "process-incident"
	CapComplianceFilter Capability = "compliance-filter"
	CapRequestInsights  Capability = "request-insights"
	CapCreateIncident   Capability = "create-incident"
	CapAssignUser       Capability = "assign-user"
	CapViewAnalytics    Capability = "view-analytics"
)

// CapabilitySet is the set of actions a role is permitted to invoke.
type CapabilitySet map[Capability]struct{}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Contains reports whether every capability in other is also in s.
func (s CapabilitySet) Contains(other CapabilitySet) bool {
	for c := range other {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

func common() []Capability {
	return []Capability{
		CapViewIncidents,
		CapFilterIncidents,
		CapAnalyzeIncident,
		CapProcessIncident,
		CapComplianceFilter,
		CapRequestInsights,
	}
}

func adminOnly() []Capability {
	return []Capability{
		CapCreateIncident,
		CapAssignUser,
		CapViewAnalytics,
	}
}

// Capabilities returns the capability set for role. ADMIN is a strict
// superset of USER. Unknown roles get an empty set.
func Capabilities(role Role) CapabilitySet {
	set := CapabilitySet{}
	switch role {
	case RoleUser:
		for _, c := range common() {
			set[c] = struct{}{}
		}
	case RoleAdmin:
		for _, c := range common() {
			set[c] = struct{}{}
		}
		for _, c := range adminOnly() {
			set[c] = struct{}{}
		}
	}
	return set
}

// Session is the authenticated identity threaded explicitly into every
// data-access call. It is owned by the authentication collaborator and
// read-only here; the workspace never consults global auth state.
type Session struct {
	UserID string
	Role   Role
}

// Can reports whether the session's role grants c.
func (s Session) Can(c Capability) bool {
	return Capabilities(s.Role).Has(c)
}
