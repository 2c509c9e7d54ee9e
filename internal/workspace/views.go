package workspace

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roysantu2002/service-now-agent/internal/filter"
)

func (a *App) View() string {
	if a.quitting {
		if a.authFailed {
			return "Session rejected by the incident service; re-authenticate and restart.\n"
		}
		return "Goodbye\n"
	}
	header := renderHeader(a)
	status := renderStatusBar(a)
	footer := renderFooter(a)
	available := a.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(footer)
	if available < 0 {
		available = 0
	}

	var body string
	switch a.nav.Current() {
	case ViewCatalog:
		body = a.renderCatalog()
	case ViewCreate:
		body = a.renderCreate()
	case ViewManageList, ViewAnalyze, ViewRemediate, ViewReview:
		body = a.renderList()
	case ViewDetail:
		body = a.renderDetail()
	}
	if a.palette != nil {
		body = a.renderPalette()
	}
	body = fitHeight(body, available)

	view := strings.Join([]string{header, status, body, footer}, "\n")
	return appStyle.Width(max(1, a.width)).MaxWidth(max(1, a.width)).Render(view)
}

func (a *App) renderCatalog() string {
	views := VisibleViews(a.caps())
	out := titleStyle.Render("Incident Workspace") + "\n\n"
	for i, v := range views {
		marker := "  "
		line := v.Title()
		if i == a.catalogCursor {
			marker = cursorStyle.Render("> ")
			line = cursorStyle.Render(line)
		}
		out += marker + line + "\n"
	}
	out += "\n" + mutedStyle.Render(fmt.Sprintf("Signed in as %s (%s)", a.sess.UserID, a.sess.Role))
	return out
}

func (a *App) renderList() string {
	title := a.nav.Current().Title()
	out := titleStyle.Render(title)
	if a.loading {
		out += " " + a.spin.View()
	}
	if a.listStale {
		out += "  " + staleStyle.Render("(stale)")
	}
	out += "\n"

	if a.filtering {
		out += "Filter: " + a.filterInput.View() + "\n"
	} else if !a.criteria.IsZero() {
		out += mutedStyle.Render("Filter: "+describeCriteria(a.criteria)) + "\n"
	}

	if len(a.visible) == 0 {
		if len(a.incidents) == 0 {
			out += mutedStyle.Render("No incidents loaded.")
		} else {
			out += mutedStyle.Render("No incidents match the active filter.")
		}
		return out
	}

	for i, inc := range a.visible {
		marker := "  "
		line := fmt.Sprintf("%-12s %-8s %-10s %s", inc.Number, inc.State.Display(), inc.Priority.Display(), inc.ShortDescription)
		if i == a.cursor {
			marker = cursorStyle.Render("> ")
			line = cursorStyle.Render(line)
		}
		out += marker + line + "\n"
	}
	out += mutedStyle.Render(fmt.Sprintf("\n%d of %d incidents", len(a.visible), len(a.incidents)))

	if a.nav.Current() == ViewReview && a.summary != nil {
		out += "\n\n" + a.renderSummary()
	}
	return out
}

func (a *App) renderSummary() string {
	s := a.summary
	out := titleStyle.Render("Summary "+s.Number) + "\n"
	out += fmt.Sprintf("%-10s %s\n", "Title:", s.Title)
	out += fmt.Sprintf("%-10s %s  %s\n", "Status:", s.Status.Display(), s.Priority.Display())
	if s.AssignedTo != "" {
		out += fmt.Sprintf("%-10s %s\n", "Assigned:", s.AssignedTo)
	}
	if s.Summary != "" {
		out += "\n" + s.Summary + "\n"
	}
	return out
}

func describeCriteria(c filter.Criteria) string {
	parts := []string{}
	if strings.TrimSpace(c.Query) != "" {
		parts = append(parts, "query="+c.Query)
	}
	if c.State != "" && !strings.EqualFold(c.State, filter.All) {
		parts = append(parts, "state="+c.State)
	}
	if c.Priority != "" && !strings.EqualFold(c.Priority, filter.All) {
		parts = append(parts, "priority="+c.Priority)
	}
	return strings.Join(parts, " ")
}

func (a *App) renderDetail() string {
	out := titleStyle.Render("Incident " + a.detail.Number)
	if a.loading {
		out += " " + a.spin.View()
	}
	out += "\n\n"

	if a.showHistory {
		out += titleStyle.Render("History") + "\n"
		if len(a.history) == 0 {
			out += mutedStyle.Render("No history entries.")
			return out
		}
		for _, h := range a.history {
			out += fmt.Sprintf("%s  %-16s %q -> %q  by %s\n",
				h.UpdatedAt.Format("2006-01-02 15:04"), h.Field, h.OldValue, h.NewValue, h.UpdatedBy)
		}
		return out
	}

	d := a.detail
	out += fmt.Sprintf("State:    %s\n", d.State.Display())
	out += fmt.Sprintf("Priority: %s\n", d.Priority.Display())
	if d.Severity != "" {
		out += fmt.Sprintf("Severity: %s\n", d.Severity)
	}
	if d.Category != "" {
		cat := d.Category
		if d.Subcategory != "" {
			cat += " / " + d.Subcategory
		}
		out += fmt.Sprintf("Category: %s\n", cat)
	}
	if d.AssignedTo != "" {
		out += fmt.Sprintf("Assigned: %s\n", d.AssignedTo)
	}
	out += "\n" + d.ShortDescription + "\n"
	if d.Description != "" {
		out += "\n" + d.Description + "\n"
	}
	if d.WorkNotes != "" {
		out += "\n" + mutedStyle.Render("Notes: "+d.WorkNotes) + "\n"
	}

	if a.analysis != nil {
		out += "\n" + titleStyle.Render("AI Analysis") + mutedStyle.Render(" ("+a.analysis.AIModel+")") + "\n"
		out += a.analysis.Data.Issue + "\n"
		if a.analysis.Data.Description != "" {
			out += a.analysis.Data.Description + "\n"
		}
		for i, step := range a.analysis.Data.StepsToResolve {
			out += fmt.Sprintf("%2d. %s\n", i+1, step)
		}
		for _, w := range a.analysis.Warnings() {
			out += warningStyle.Render("warning: "+w) + "\n"
		}
		if a.analysis.PDFPath != "" {
			out += mutedStyle.Render("report: "+a.analysis.PDFPath) + "\n"
		}
	}

	if a.compliance != nil {
		out += "\n" + titleStyle.Render("Compliance") + "\n"
		out += fmt.Sprintf("Level: %s  Score: %.2f\n", a.compliance.ComplianceLevel, a.compliance.ComplianceScore)
		if len(a.compliance.RemovedFields) > 0 {
			out += "Removed: " + strings.Join(a.compliance.RemovedFields, ", ") + "\n"
		}
		if len(a.compliance.MaskedFields) > 0 {
			out += "Masked: " + strings.Join(a.compliance.MaskedFields, ", ") + "\n"
		}
	}
	return out
}

func (a *App) renderCreate() string {
	out := titleStyle.Render("Create Incident") + "\n\n"
	labels := []string{"Short description", "Description", "Work notes"}
	inputs := []string{a.shortInput.View(), a.descInput.View(), a.notesInput.View()}
	for i := range labels {
		label := labels[i]
		if i == a.formFocus {
			label = cursorStyle.Render(label)
		} else {
			label = mutedStyle.Render(label)
		}
		out += label + "\n" + inputs[i] + "\n\n"
	}
	if a.loading {
		out += a.spin.View() + " submitting...\n"
	}
	return out
}
