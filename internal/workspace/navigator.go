package workspace

import (
	"errors"

	"github.com/roysantu2002/service-now-agent/internal/rbac"
)

// ViewState names one screen of the workspace.
type ViewState string

const (
	ViewCatalog    ViewState = "catalog"
	ViewCreate     ViewState = "create"
	ViewAnalyze    ViewState = "analyze"
	ViewReview     ViewState = "review"
	ViewRemediate  ViewState = "remediate"
	ViewManageList ViewState = "manage-list"
	ViewDetail     ViewState = "detail"
)

// ErrNoTarget is returned when a detail navigation carries no incident id.
var ErrNoTarget = errors.New("detail view requires an incident id")

// viewCapability maps each gated view to the capability that unlocks it.
// Views absent from the map are open to every role.
var viewCapability = map[ViewState]rbac.Capability{
	ViewCreate:     rbac.CapCreateIncident,
	ViewAnalyze:    rbac.CapAnalyzeIncident,
	ViewRemediate:  rbac.CapProcessIncident,
	ViewManageList: rbac.CapViewIncidents,
	ViewDetail:     rbac.CapViewIncidents,
}

// Navigator is the pure view-state machine. It tracks the current view, the
// detail target, and where the detail view was entered from so Back returns
// there. It performs no I/O.
type Navigator struct {
	current   ViewState
	detailID  string
	entryFrom ViewState
}

// NewNavigator starts at the catalog.
func NewNavigator() Navigator {
	return Navigator{current: ViewCatalog, entryFrom: ViewCatalog}
}

// Current returns the active view.
func (n Navigator) Current() ViewState { return n.current }

// DetailID returns the incident shown in the detail view, or "" outside it.
func (n Navigator) DetailID() string {
	if n.current != ViewDetail {
		return ""
	}
	return n.detailID
}

// Go switches to a non-detail view. Moving to ViewDetail must go through
// OpenDetail so a target is always present.
func (n Navigator) Go(view ViewState) (Navigator, error) {
	if view == ViewDetail {
		return n, ErrNoTarget
	}
	n.current = view
	n.detailID = ""
	return n, nil
}

// OpenDetail enters the detail view for the given incident, recording the
// origin so Back can return to it.
func (n Navigator) OpenDetail(sysID string) (Navigator, error) {
	if sysID == "" {
		return n, ErrNoTarget
	}
	if n.current != ViewDetail {
		n.entryFrom = n.current
	}
	n.current = ViewDetail
	n.detailID = sysID
	return n, nil
}

// Back leaves the current view. From detail it returns to the recorded entry
// point; from everywhere else it returns to the catalog.
func (n Navigator) Back() Navigator {
	if n.current == ViewDetail {
		n.current = n.entryFrom
		n.detailID = ""
		return n
	}
	n.current = ViewCatalog
	n.detailID = ""
	return n
}

// Allowed reports whether the capability set unlocks the view.
func Allowed(view ViewState, caps rbac.CapabilitySet) bool {
	c, gated := viewCapability[view]
	if !gated {
		return true
	}
	return caps.Has(c)
}

// VisibleViews returns the catalog entries the capability set unlocks, in
// presentation order.
func VisibleViews(caps rbac.CapabilitySet) []ViewState {
	order := []ViewState{ViewCreate, ViewAnalyze, ViewReview, ViewRemediate, ViewManageList}
	out := make([]ViewState, 0, len(order))
	for _, v := range order {
		if Allowed(v, caps) {
			out = append(out, v)
		}
	}
	return out
}

// Title returns the header label for a view.
func (v ViewState) Title() string {
	switch v {
	case ViewCatalog:
		return "Catalog"
	case ViewCreate:
		return "Create Incident"
	case ViewAnalyze:
		return "Analyze"
	case ViewReview:
		return "Review"
	case ViewRemediate:
		return "Remediate"
	case ViewManageList:
		return "Incidents"
	case ViewDetail:
		return "Incident Detail"
	}
	return string(v)
}
