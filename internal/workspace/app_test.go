package workspace

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
	"github.com/roysantu2002/service-now-agent/internal/snowapi"
)

func openDetail(t *testing.T, a *App, sysID string) {
	t.Helper()
	var err error
	a.nav, err = a.nav.Go(ViewManageList)
	if err != nil {
		t.Fatalf("go manage-list: %v", err)
	}
	a.nav, err = a.nav.OpenDetail(sysID)
	if err != nil {
		t.Fatalf("open detail: %v", err)
	}
}

func TestLateDetailResponseDiscarded(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	openDetail(t, a, "sys-2")
	a.detail = incident.Incident{SysID: "sys-2", Number: "INC0002"}

	// A slow fetch for a previously viewed incident resolves now.
	a.Update(detailLoadedMsg{SysID: "sys-1", Incident: incident.Incident{SysID: "sys-1", Number: "INC0001"}})

	if a.detail.SysID != "sys-2" {
		t.Fatalf("detail overwritten by stale response: showing %s", a.detail.SysID)
	}
}

func TestLateHistoryResponseDiscarded(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	openDetail(t, a, "sys-2")

	a.Update(historyLoadedMsg{SysID: "sys-1", Entries: []incident.HistoryEntry{{Field: "state"}}})

	if a.showHistory {
		t.Fatal("history pane opened for an incident no longer on screen")
	}
	if len(a.history) != 0 {
		t.Fatal("stale history entries retained")
	}
}

func TestLateAnalysisKeptOffOtherDetail(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	openDetail(t, a, "sys-2")

	a.Update(analyzedMsg{SysID: "sys-1", Result: incident.AnalysisResult{SysID: "sys-1", AIModel: "gpt-4"}})

	if a.analysis != nil {
		t.Fatalf("analysis for sys-1 rendered in the sys-2 detail view")
	}
}

func TestAnalysisAppliedOutsideDetail(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	a.nav, _ = a.nav.Go(ViewAnalyze)

	a.Update(analyzedMsg{SysID: "sys-1", Result: incident.AnalysisResult{SysID: "sys-1", AIModel: "gpt-4"}})

	if a.analysis == nil || a.analysis.SysID != "sys-1" {
		t.Fatal("analysis launched from the analyze list must still land")
	}
}

func TestLateComplianceKeptOffOtherDetail(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	openDetail(t, a, "sys-2")

	a.Update(complianceMsg{SysID: "sys-1", Result: incident.ComplianceResult{SysID: "sys-1"}})

	if a.compliance != nil {
		t.Fatal("compliance result for sys-1 rendered in the sys-2 detail view")
	}
}

func TestAuthRejectionEndsSession(t *testing.T) {
	a := testApp(rbac.RoleUser)

	_, cmd := a.Update(incidentsLoadedMsg{Err: &snowapi.AuthError{Detail: "token expired"}})

	if cmd == nil {
		t.Fatal("auth rejection must produce a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg, got %T", cmd())
	}
	if !strings.Contains(a.View(), "re-authenticate") {
		t.Fatal("farewell screen must tell the operator to re-authenticate")
	}
}

func TestNetworkFailureKeepsSession(t *testing.T) {
	a := testApp(rbac.RoleUser)

	_, cmd := a.Update(detailLoadedMsg{SysID: "sys-1", Err: &snowapi.NetworkError{Err: errTimeout}})

	if cmd != nil {
		t.Fatal("network failure must stay a status message, not end the session")
	}
	if !a.statusErr {
		t.Fatal("network failure must surface in the status bar")
	}
}

var errTimeout = errors.New("dial tcp: i/o timeout")

func TestSummaryAppliedInReviewView(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	a.nav, _ = a.nav.Go(ViewReview)

	a.Update(summaryLoadedMsg{SysID: "sys-3", Summary: incident.Summary{SysID: "sys-3", Number: "INC0003", Title: "Disk pressure"}})

	if a.summary == nil || a.summary.Number != "INC0003" {
		t.Fatal("summary must populate the review view")
	}
	if !strings.Contains(a.renderList(), "INC0003") {
		t.Fatal("review view must render the loaded summary")
	}
}

func TestSummaryDroppedOutsideReviewView(t *testing.T) {
	a := testApp(rbac.RoleAdmin)

	a.Update(summaryLoadedMsg{SysID: "sys-3", Summary: incident.Summary{SysID: "sys-3", Number: "INC0003"}})

	if a.summary != nil {
		t.Fatal("summary applied outside the review view")
	}
}

func TestSummaryClearedOnBack(t *testing.T) {
	a := testApp(rbac.RoleAdmin)
	a.nav, _ = a.nav.Go(ViewReview)
	s := incident.Summary{SysID: "sys-3", Number: "INC0003"}
	a.summary = &s

	a.handleListKey(keyMsg("esc"), "view:review")

	if a.summary != nil {
		t.Fatal("summary must clear when leaving the review view")
	}
}
