package workspace

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roysantu2002/service-now-agent/internal/filter"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
)

// paletteState is the command palette modal: a query input over the command
// registry, scoped to the view it was opened from.
type paletteState struct {
	input   textinput.Model
	scope   string
	results []CommandResult
	cursor  int
}

func (a *App) openPalette() {
	in := textinput.New()
	in.Placeholder = "type a command"
	in.CharLimit = 80
	in.Focus()
	p := &paletteState{input: in, scope: a.activeScope()}
	p.results = a.commands.Search("", p.scope, a)
	a.palette = p
}

func (a *App) closePalette() {
	a.palette = nil
}

func (a *App) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := a.palette
	switch msg.String() {
	case "esc":
		a.closePalette()
		return a, nil
	case "up", "ctrl+p":
		if p.cursor > 0 {
			p.cursor--
		}
		return a, nil
	case "down", "ctrl+n":
		if p.cursor < len(p.results)-1 {
			p.cursor++
		}
		return a, nil
	case "enter":
		if p.cursor >= len(p.results) {
			return a, nil
		}
		sel := p.results[p.cursor]
		a.closePalette()
		if sel.Disabled {
			reason := sel.Reason
			if reason == "" {
				reason = "command is disabled"
			}
			return a, statusCmd(reason)
		}
		return a, a.commands.Execute(sel.CommandID, a)
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	p.results = a.commands.Search(p.input.Value(), p.scope, a)
	if p.cursor >= len(p.results) {
		p.cursor = 0
	}
	return a, cmd
}

func (a *App) renderPalette() string {
	p := a.palette
	out := titleStyle.Render("Commands") + "\n"
	out += p.input.View() + "\n\n"
	if len(p.results) == 0 {
		out += mutedStyle.Render("No matching commands.")
		return out
	}
	for i, r := range p.results {
		marker := "  "
		line := r.Name
		if r.Desc != "" {
			line += "  " + mutedStyle.Render(r.Desc)
		}
		if r.Disabled {
			line = disabledStyle.Render(r.Name)
			if r.Reason != "" {
				line += "  " + disabledStyle.Render("("+r.Reason+")")
			}
		}
		if i == p.cursor {
			marker = cursorStyle.Render("> ")
		}
		out += marker + line + "\n"
	}
	return out
}

// defaultCommands returns the palette entries. Role-gated commands declare a
// Disabled hook so they stay visible but inert for roles lacking the
// capability; executing them surfaces the reason instead of the action.
func defaultCommands() []Command {
	return []Command{
		{
			ID:          "go-catalog",
			Name:        "Go to catalog",
			Description: "return to the action catalog",
			Execute: func(a *App) tea.Cmd {
				a.nav, _ = a.nav.Go(ViewCatalog)
				return nil
			},
		},
		{
			ID:          "go-incidents",
			Name:        "Go to incidents",
			Description: "open the incident list",
			Execute: func(a *App) tea.Cmd {
				a.nav, _ = a.nav.Go(ViewManageList)
				return a.loadIncidents(false)
			},
		},
		{
			ID:          "create-incident",
			Name:        "Create incident",
			Description: "open the create form",
			Disabled:    requiresCreate,
			Execute: func(a *App) tea.Cmd {
				a.nav, _ = a.nav.Go(ViewCreate)
				a.resetCreateForm()
				return nil
			},
		},
		{
			ID:          "refresh-incidents",
			Name:        "Refresh incidents",
			Description: "refetch the incident list",
			Execute: func(a *App) tea.Cmd {
				return a.loadIncidents(true)
			},
		},
		{
			ID:          "clear-filter",
			Name:        "Clear filter",
			Description: "reset all list criteria",
			Execute: func(a *App) tea.Cmd {
				a.criteria = filter.Criteria{}
				a.filterInput.SetValue("")
				a.applyFilter()
				return statusCmd("Filter cleared")
			},
		},
		{
			ID:          "assign-to-me",
			Name:        "Assign to me",
			Description: "assign the selected incident to this session's user",
			Scopes:      []string{"view:detail", "view:manage-list"},
			Disabled: func(a *App) (bool, string) {
				if !a.sess.Can(rbac.CapAssignUser) {
					return true, "Assigning requires the ADMIN role"
				}
				return requiresSelection(a)
			},
			Execute: func(a *App) tea.Cmd {
				if id := a.nav.DetailID(); id != "" {
					return a.assignCmd(id, a.sess.UserID)
				}
				if inc := a.selectedIncident(); inc != nil {
					return a.assignCmd(inc.SysID, a.sess.UserID)
				}
				return statusCmd("Select an incident first")
			},
		},
		{
			ID:          "request-insights",
			Name:        "Request insights",
			Description: "agentic insights for the selected incident",
			Scopes:      []string{"view:detail", "view:manage-list"},
			Disabled:    requiresSelection,
			Execute: func(a *App) tea.Cmd {
				if id := a.nav.DetailID(); id != "" {
					return a.insightsCmd(id)
				}
				if inc := a.selectedIncident(); inc != nil {
					return a.insightsCmd(inc.SysID)
				}
				return statusCmd("Select an incident first")
			},
		},
	}
}

func requiresCreate(a *App) (bool, string) {
	if a.sess.Can(rbac.CapCreateIncident) {
		return false, ""
	}
	return true, "Create requires the ADMIN role"
}

func requiresSelection(a *App) (bool, string) {
	if a.nav.DetailID() != "" || a.selectedIncident() != nil {
		return false, ""
	}
	return true, "No incident selected"
}
