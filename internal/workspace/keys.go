package workspace

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type KeyBinding struct {
	Keys        []string
	Action      string
	Description string
	Scopes      []string
}

// KeyRegistry resolves key presses to actions. Bindings are kept both in
// registration order, which drives the footer, and indexed by action so
// dispatch only walks the bindings for that action.
type KeyRegistry struct {
	ordered  []KeyBinding
	byAction map[string][]KeyBinding
}

func NewKeyRegistry(bindings []KeyBinding) *KeyRegistry {
	r := &KeyRegistry{byAction: make(map[string][]KeyBinding, len(bindings))}
	for _, b := range bindings {
		r.Register(b)
	}
	return r
}

func (r *KeyRegistry) Register(binding KeyBinding) {
	r.ordered = append(r.ordered, binding)
	r.byAction[binding.Action] = append(r.byAction[binding.Action], binding)
}

func (r *KeyRegistry) BindingsForScope(scope string) []KeyBinding {
	out := make([]KeyBinding, 0, len(r.ordered))
	for _, b := range r.ordered {
		if b.inScope(scope) {
			out = append(out, b)
		}
	}
	return out
}

func (r *KeyRegistry) IsAction(msg tea.KeyMsg, action, scope string) bool {
	pressed := normalizeKey(msg.String())
	for _, b := range r.byAction[action] {
		if !b.inScope(scope) {
			continue
		}
		for _, k := range b.Keys {
			if normalizeKey(k) == pressed {
				return true
			}
		}
	}
	return false
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// inScope reports whether the binding applies to the given scope. A binding
// with no scopes is global.
func (b KeyBinding) inScope(scope string) bool {
	if len(b.Scopes) == 0 {
		return true
	}
	for _, s := range b.Scopes {
		if s == "*" || s == scope {
			return true
		}
	}
	return false
}

// DefaultKeyBindings returns the stock bindings. Scopes use "view:<state>"
// so the footer shows only what applies to the active screen.
func DefaultKeyBindings() []KeyBinding {
	return []KeyBinding{
		{Keys: []string{"q"}, Action: "quit", Description: "quit", Scopes: []string{"view:catalog"}},
		{Keys: []string{"esc"}, Action: "back", Description: "back", Scopes: []string{"*"}},
		{Keys: []string{"ctrl+k"}, Action: "open-command-palette", Description: "commands", Scopes: []string{"*"}},
		{Keys: []string{"j", "down"}, Action: "cursor-down", Description: "down", Scopes: []string{"view:catalog", "view:manage-list", "view:analyze", "view:remediate", "view:review"}},
		{Keys: []string{"k", "up"}, Action: "cursor-up", Description: "up", Scopes: []string{"view:catalog", "view:manage-list", "view:analyze", "view:remediate", "view:review"}},
		{Keys: []string{"enter"}, Action: "select", Description: "select", Scopes: []string{"view:catalog", "view:manage-list", "view:analyze", "view:remediate", "view:review"}},
		{Keys: []string{"/"}, Action: "filter", Description: "filter", Scopes: []string{"view:manage-list"}},
		{Keys: []string{"s"}, Action: "cycle-state", Description: "state filter", Scopes: []string{"view:manage-list"}},
		{Keys: []string{"p"}, Action: "cycle-priority", Description: "priority filter", Scopes: []string{"view:manage-list"}},
		{Keys: []string{"r"}, Action: "refresh", Description: "refresh", Scopes: []string{"view:manage-list", "view:detail"}},
		{Keys: []string{"a"}, Action: "run-analysis", Description: "analyze", Scopes: []string{"view:detail"}},
		{Keys: []string{"x"}, Action: "run-process", Description: "process", Scopes: []string{"view:detail"}},
		{Keys: []string{"c"}, Action: "run-compliance", Description: "compliance", Scopes: []string{"view:detail"}},
		{Keys: []string{"h"}, Action: "show-history", Description: "history", Scopes: []string{"view:detail"}},
		{Keys: []string{"tab"}, Action: "next-field", Description: "next field", Scopes: []string{"view:create"}},
		{Keys: []string{"enter"}, Action: "submit", Description: "submit", Scopes: []string{"view:create"}},
	}
}
