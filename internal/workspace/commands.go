package workspace

import (
	"cmp"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
	tea "github.com/charmbracelet/bubbletea"
)

type Command struct {
	ID          string
	Name        string
	Description string
	Scopes      []string
	Execute     func(a *App) tea.Cmd
	Disabled    func(a *App) (bool, string)
}

// inScope mirrors KeyBinding.inScope: no scopes means everywhere.
func (c Command) inScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

type CommandResult struct {
	CommandID string
	Name      string
	Desc      string
	Disabled  bool
	Reason    string
}

type CommandRegistry struct {
	commands map[string]Command
}

func NewCommandRegistry(cmds []Command) *CommandRegistry {
	reg := &CommandRegistry{commands: map[string]Command{}}
	for _, c := range cmds {
		reg.Register(c)
	}
	return reg
}

func (r *CommandRegistry) Register(c Command) {
	if c.ID == "" {
		return
	}
	r.commands[c.ID] = c
}

// Search returns palette entries for the query, enabled commands first. A
// non-empty query is matched by substring, then ranked by edit distance to
// the command name so close matches float to the top.
func (r *CommandRegistry) Search(query, scope string, a *App) []CommandResult {
	q := strings.ToLower(strings.TrimSpace(query))
	type ranked struct {
		res  CommandResult
		dist int
	}
	results := make([]ranked, 0, len(r.commands))
	for _, c := range r.commands {
		if !c.inScope(scope) {
			continue
		}
		h := strings.ToLower(c.Name + " " + c.Description + " " + c.ID)
		if q != "" && !strings.Contains(h, q) {
			continue
		}
		disabled := false
		reason := ""
		if c.Disabled != nil {
			disabled, reason = c.Disabled(a)
		}
		dist := 0
		if q != "" {
			dist = levenshtein.ComputeDistance(q, strings.ToLower(c.Name))
		}
		results = append(results, ranked{
			res: CommandResult{
				CommandID: c.ID,
				Name:      c.Name,
				Desc:      c.Description,
				Disabled:  disabled,
				Reason:    reason,
			},
			dist: dist,
		})
	}
	slices.SortFunc(results, func(x, y ranked) int {
		if x.res.Disabled != y.res.Disabled {
			if !x.res.Disabled {
				return -1
			}
			return 1
		}
		if x.dist != y.dist {
			return cmp.Compare(x.dist, y.dist)
		}
		return cmp.Compare(x.res.Name, y.res.Name)
	})
	out := make([]CommandResult, len(results))
	for i, item := range results {
		out[i] = item.res
	}
	return out
}

func (r *CommandRegistry) Execute(id string, a *App) tea.Cmd {
	c, ok := r.commands[id]
	if !ok {
		return statusCmd("Unknown command: " + id)
	}
	if c.Disabled != nil {
		disabled, reason := c.Disabled(a)
		if disabled {
			if reason == "" {
				reason = "command is disabled"
			}
			return statusCmd(reason)
		}
	}
	if c.Execute == nil {
		return nil
	}
	return c.Execute(a)
}
