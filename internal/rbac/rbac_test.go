package rbac

import "testing"

func TestAdminIsSupersetOfAllRoles(t *testing.T) {
	admin := Capabilities(RoleAdmin)
	for _, role := range []Role{RoleUser, RoleAdmin} {
		if !admin.Contains(Capabilities(role)) {
			t.Fatalf("ADMIN capabilities must contain all of %s", role)
		}
	}
}

func TestAdminOnlyCapabilities(t *testing.T) {
	user := Capabilities(RoleUser)
	for _, c := range []Capability{CapCreateIncident, CapAssignUser, CapViewAnalytics} {
		if user.Has(c) {
			t.Fatalf("USER must not hold %s", c)
		}
	}
	admin := Capabilities(RoleAdmin)
	for _, c := range []Capability{CapCreateIncident, CapAssignUser, CapViewAnalytics} {
		if !admin.Has(c) {
			t.Fatalf("ADMIN must hold %s", c)
		}
	}
}

func TestCommonCapabilities(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAdmin} {
		caps := Capabilities(role)
		for _, c := range []Capability{CapViewIncidents, CapFilterIncidents, CapAnalyzeIncident, CapProcessIncident} {
			if !caps.Has(c) {
				t.Fatalf("%s must hold %s", role, c)
			}
		}
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	if caps := Capabilities(Role("GUEST")); len(caps) != 0 {
		t.Fatalf("unknown role should have an empty capability set, got %v", caps)
	}
}

func TestCapabilitiesRecomputedFresh(t *testing.T) {
	a := Capabilities(RoleUser)
	delete(a, CapViewIncidents)
	b := Capabilities(RoleUser)
	if !b.Has(CapViewIncidents) {
		t.Fatal("mutating a returned set must not affect later lookups")
	}
}

func TestSessionCan(t *testing.T) {
	s := Session{UserID: "ops.1", Role: RoleUser}
	if s.Can(CapCreateIncident) {
		t.Fatal("USER session must not be able to create incidents")
	}
	if !s.Can(CapAnalyzeIncident) {
		t.Fatal("USER session must be able to analyze incidents")
	}
}
