// Package workspace is the terminal UI for the incident workspace: a
// role-gated catalog of actions over the remote incident API, with all reads
// going through the query cache and all writes through the mutation
// coordinator.
package workspace

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/roysantu2002/service-now-agent/internal/config"
	"github.com/roysantu2002/service-now-agent/internal/filter"
	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/mutate"
	"github.com/roysantu2002/service-now-agent/internal/querycache"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
	"github.com/roysantu2002/service-now-agent/internal/snowapi"
)

// App ties together views.
type App struct {
	ctx    context.Context
	cfg    config.Config
	sess   rbac.Session
	api    *snowapi.Client
	cache  *querycache.Store
	coord  *mutate.Coordinator
	logger zerolog.Logger

	keys     *KeyRegistry
	commands *CommandRegistry
	nav      Navigator

	width      int
	height     int
	status     string
	statusErr  bool
	quitting   bool
	authFailed bool
	loading    bool
	spin       spinner.Model

	// list state
	incidents []incident.Incident
	visible   []incident.Incident
	criteria  filter.Criteria
	listStale bool
	cursor    int

	// catalog state
	catalogCursor int

	// detail state
	detail      incident.Incident
	history     []incident.HistoryEntry
	showHistory bool
	analysis    *incident.AnalysisResult
	compliance  *incident.ComplianceResult

	// review state
	summary *incident.Summary

	// create form
	shortInput textinput.Model
	descInput  textinput.Model
	notesInput textinput.Model
	formFocus  int

	// list filter input
	filterInput textinput.Model
	filtering   bool

	palette *paletteState

	ttl time.Duration
}

// New builds the workspace app. The session identity comes from the caller;
// the app never reads global auth state.
func New(ctx context.Context, cfg config.Config, sess rbac.Session, api *snowapi.Client, cache *querycache.Store, coord *mutate.Coordinator, logger zerolog.Logger) *App {
	short := textinput.New()
	short.Placeholder = "short description"
	short.CharLimit = 160
	short.Focus()

	desc := textinput.New()
	desc.Placeholder = "description"
	desc.CharLimit = 4000

	notes := textinput.New()
	notes.Placeholder = "work notes (optional)"
	notes.CharLimit = 4000

	flt := textinput.New()
	flt.Placeholder = "number or description"
	flt.CharLimit = 120

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = querycache.DefaultTTL
	}

	a := &App{
		ctx:         ctx,
		cfg:         cfg,
		sess:        sess,
		api:         api,
		cache:       cache,
		coord:       coord,
		logger:      logger.With().Str("component", "workspace").Logger(),
		keys:        NewKeyRegistry(DefaultKeyBindings()),
		nav:         NewNavigator(),
		spin:        sp,
		shortInput:  short,
		descInput:   desc,
		notesInput:  notes,
		filterInput: flt,
		ttl:         ttl,
		width:       100,
		height:      32,
	}
	a.commands = NewCommandRegistry(defaultCommands())
	return a
}

// caps recomputes the capability set from the current role on every access.
func (a *App) caps() rbac.CapabilitySet {
	return rbac.Capabilities(a.sess.Role)
}

func (a *App) activeScope() string {
	if a.palette != nil {
		return "screen:palette"
	}
	return "view:" + string(a.nav.Current())
}

func (a *App) setStatus(msg string) {
	a.status = msg
	a.statusErr = false
}

func (a *App) setError(err error) {
	if err == nil {
		a.status = ""
		a.statusErr = false
		return
	}
	a.status = describeError(err)
	a.statusErr = true
}

// loadFailure records a fetch or mutation error. An auth rejection ends the
// session immediately so the operator re-authenticates; everything else
// stays a status-bar message.
func (a *App) loadFailure(err error) tea.Cmd {
	a.setError(err)
	if snowapi.IsAuth(err) {
		a.authFailed = true
		a.quitting = true
		return tea.Quit
	}
	return nil
}

// describeError renders the error taxonomy in operator terms. Server
// messages pass through verbatim.
func describeError(err error) string {
	switch {
	case snowapi.IsAuth(err):
		return "session rejected: " + err.Error()
	case snowapi.IsNotFound(err):
		return err.Error()
	case snowapi.IsNetwork(err):
		return "network: " + err.Error()
	default:
		return err.Error()
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.loadIncidents(false))
}

// loaders

func (a *App) loadIncidents(refresh bool) tea.Cmd {
	a.loading = true
	key := querycache.ListKey("")
	fetch := func(ctx context.Context) (any, error) {
		items, err := a.api.ListIncidents(ctx, a.sess, snowapi.ListFilters{})
		return items, err
	}
	return func() tea.Msg {
		var v any
		var err error
		if refresh {
			v, err = a.cache.Refresh(a.ctx, key, fetch)
		} else {
			v, err = a.cache.Read(a.ctx, key, a.ttl, fetch)
		}
		items, _ := v.([]incident.Incident)
		return incidentsLoadedMsg{Items: items, Err: err}
	}
}

func (a *App) loadDetail(sysID string, refresh bool) tea.Cmd {
	a.loading = true
	key := querycache.DetailKey(sysID)
	fetch := func(ctx context.Context) (any, error) {
		inc, err := a.api.GetDetails(ctx, a.sess, sysID)
		return inc, err
	}
	return func() tea.Msg {
		var v any
		var err error
		if refresh {
			v, err = a.cache.Refresh(a.ctx, key, fetch)
		} else {
			v, err = a.cache.Read(a.ctx, key, a.ttl, fetch)
		}
		inc, _ := v.(incident.Incident)
		return detailLoadedMsg{SysID: sysID, Incident: inc, Err: err}
	}
}

func (a *App) loadHistory(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		entries, err := querycache.ReadAs(a.ctx, a.cache, querycache.HistoryKey(sysID), a.ttl,
			func(ctx context.Context) ([]incident.HistoryEntry, error) {
				return a.api.GetHistory(ctx, a.sess, sysID)
			})
		return historyLoadedMsg{SysID: sysID, Entries: entries, Err: err}
	}
}

func (a *App) loadSummary(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		s, err := querycache.ReadAs(a.ctx, a.cache, querycache.SummaryKey(sysID), a.ttl,
			func(ctx context.Context) (incident.Summary, error) {
				return a.api.GetSummary(ctx, a.sess, sysID)
			})
		return summaryLoadedMsg{SysID: sysID, Summary: s, Err: err}
	}
}

// mutation commands

func (a *App) createCmd(req snowapi.CreateRequest) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		created, err := a.coord.Create(a.ctx, a.sess, req)
		return createdMsg{Incident: created, Err: err}
	}
}

func (a *App) assignCmd(sysID, userID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		updated, err := a.coord.Update(a.ctx, a.sess, sysID, snowapi.UpdateRequest{AssignedTo: userID})
		return updatedMsg{Incident: updated, Err: err}
	}
}

func (a *App) processCmd(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		resp, err := a.coord.Process(a.ctx, a.sess, sysID, a.cfg.AI.Provider)
		return processedMsg{SysID: sysID, Response: resp, Err: err}
	}
}

func (a *App) analyzeCmd(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		res, err := a.coord.Analyze(a.ctx, a.sess, sysID, a.cfg.AI.AnalysisType, a.cfg.AI.Provider)
		return analyzedMsg{SysID: sysID, Result: res, Err: err}
	}
}

func (a *App) complianceCmd(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		res, err := a.coord.Compliance(a.ctx, a.sess, sysID, incident.ComplianceLevel(a.cfg.AI.ComplianceLevel), a.cfg.AI.Provider)
		return complianceMsg{SysID: sysID, Result: res, Err: err}
	}
}

func (a *App) insightsCmd(sysID string) tea.Cmd {
	a.loading = true
	return func() tea.Msg {
		res, err := a.coord.Insights(a.ctx, a.sess, sysID, a.cfg.AI.AnalysisType, a.cfg.AI.Provider)
		return analyzedMsg{SysID: sysID, Result: res, Err: err}
	}
}

// applyFilter recomputes the visible projection. The underlying list is
// never mutated, so clearing the filter restores it as-is.
func (a *App) applyFilter() {
	a.visible = filter.Apply(a.incidents, a.criteria)
	if a.cursor >= len(a.visible) {
		a.cursor = 0
	}
}

func (a *App) selectedIncident() *incident.Incident {
	if len(a.visible) == 0 || a.cursor < 0 || a.cursor >= len(a.visible) {
		return nil
	}
	return &a.visible[a.cursor]
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.Text
		a.statusErr = msg.IsErr
		return a, nil

	case incidentsLoadedMsg:
		a.loading = false
		a.listStale = false
		if msg.Err != nil {
			cmd := a.loadFailure(msg.Err)
			// Stale data, if any, stays on screen.
			if snap, ok := a.cache.Peek(querycache.ListKey("")); ok && snap.Payload != nil {
				if items, ok := snap.Payload.([]incident.Incident); ok {
					a.incidents = items
					a.listStale = true
					a.applyFilter()
				}
			}
			return a, cmd
		}
		a.incidents = msg.Items
		a.applyFilter()
		return a, nil

	case detailLoadedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		if a.nav.DetailID() != msg.SysID {
			// Response for a view that was navigated away from.
			return a, nil
		}
		a.detail = msg.Incident
		return a, nil

	case summaryLoadedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		if a.nav.Current() != ViewReview {
			return a, nil
		}
		s := msg.Summary
		a.summary = &s
		return a, nil

	case historyLoadedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		if a.nav.DetailID() != msg.SysID {
			return a, nil
		}
		a.history = msg.Entries
		a.showHistory = true
		return a, nil

	case createdMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		a.setStatus("Created " + msg.Incident.Number)
		a.resetCreateForm()
		a.nav, _ = a.nav.Go(ViewManageList)
		return a, a.loadIncidents(false)

	case updatedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		a.setStatus("Updated " + msg.Incident.Number)
		cmds := []tea.Cmd{a.loadIncidents(false)}
		if id := a.nav.DetailID(); id != "" {
			cmds = append(cmds, a.loadDetail(id, false))
		}
		return a, tea.Batch(cmds...)

	case processedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		a.setStatus("Processed " + msg.SysID + ": " + msg.Response.Message)
		if a.nav.DetailID() == msg.SysID {
			return a, a.loadDetail(msg.SysID, false)
		}
		return a, nil

	case analyzedMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		if a.nav.Current() == ViewDetail && a.nav.DetailID() != msg.SysID {
			// The operator opened a different incident while this analysis
			// was running; keep it out of that view.
			return a, nil
		}
		res := msg.Result
		a.analysis = &res
		if warns := res.Warnings(); len(warns) > 0 {
			a.setStatus("Analysis complete with warnings: " + strings.Join(warns, "; "))
		} else {
			a.setStatus("Analysis complete (" + res.AIModel + ")")
		}
		return a, nil

	case complianceMsg:
		a.loading = false
		if msg.Err != nil {
			return a, a.loadFailure(msg.Err)
		}
		if a.nav.Current() == ViewDetail && a.nav.DetailID() != msg.SysID {
			return a, nil
		}
		res := msg.Result
		a.compliance = &res
		a.setStatus("Compliance filter done at level " + string(res.ComplianceLevel))
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.quitting = true
		return a, tea.Quit
	}

	if a.palette != nil {
		return a.handlePaletteKey(msg)
	}

	scope := a.activeScope()
	if a.keys.IsAction(msg, "open-command-palette", scope) {
		a.openPalette()
		return a, nil
	}

	switch a.nav.Current() {
	case ViewCatalog:
		return a.handleCatalogKey(msg, scope)
	case ViewCreate:
		return a.handleCreateKey(msg, scope)
	case ViewManageList, ViewAnalyze, ViewRemediate, ViewReview:
		return a.handleListKey(msg, scope)
	case ViewDetail:
		return a.handleDetailKey(msg, scope)
	}
	return a, nil
}

func (a *App) handleCatalogKey(msg tea.KeyMsg, scope string) (tea.Model, tea.Cmd) {
	views := VisibleViews(a.caps())
	switch {
	case a.keys.IsAction(msg, "quit", scope):
		a.quitting = true
		return a, tea.Quit
	case a.keys.IsAction(msg, "cursor-up", scope):
		if a.catalogCursor > 0 {
			a.catalogCursor--
		}
	case a.keys.IsAction(msg, "cursor-down", scope):
		if a.catalogCursor < len(views)-1 {
			a.catalogCursor++
		}
	case a.keys.IsAction(msg, "select", scope):
		if a.catalogCursor >= len(views) {
			return a, nil
		}
		target := views[a.catalogCursor]
		var err error
		a.nav, err = a.nav.Go(target)
		if err != nil {
			return a, errorCmd(err)
		}
		a.summary = nil
		a.setStatus("")
		if target == ViewCreate {
			a.resetCreateForm()
			return a, nil
		}
		return a, a.loadIncidents(false)
	}
	return a, nil
}

func (a *App) handleListKey(msg tea.KeyMsg, scope string) (tea.Model, tea.Cmd) {
	if a.filtering {
		return a.handleFilterInputKey(msg)
	}
	switch {
	case a.keys.IsAction(msg, "back", scope):
		a.nav = a.nav.Back()
		a.summary = nil
		a.setStatus("")
	case a.keys.IsAction(msg, "cursor-up", scope):
		if a.cursor > 0 {
			a.cursor--
		}
	case a.keys.IsAction(msg, "cursor-down", scope):
		if a.cursor < len(a.visible)-1 {
			a.cursor++
		}
	case a.keys.IsAction(msg, "select", scope):
		inc := a.selectedIncident()
		if inc == nil {
			return a, nil
		}
		switch a.nav.Current() {
		case ViewAnalyze:
			return a, a.analyzeCmd(inc.SysID)
		case ViewRemediate:
			return a, a.processCmd(inc.SysID)
		case ViewReview:
			a.summary = nil
			return a, a.loadSummary(inc.SysID)
		default:
			var err error
			a.nav, err = a.nav.OpenDetail(inc.SysID)
			if err != nil {
				return a, errorCmd(err)
			}
			a.analysis = nil
			a.compliance = nil
			a.showHistory = false
			return a, a.loadDetail(inc.SysID, false)
		}
	case a.keys.IsAction(msg, "filter", scope):
		a.filtering = true
		a.filterInput.SetValue(a.criteria.Query)
		a.filterInput.Focus()
	case a.keys.IsAction(msg, "cycle-state", scope):
		a.criteria.State = nextStateFilter(a.criteria.State)
		a.applyFilter()
	case a.keys.IsAction(msg, "cycle-priority", scope):
		a.criteria.Priority = nextPriorityFilter(a.criteria.Priority)
		a.applyFilter()
	case a.keys.IsAction(msg, "refresh", scope):
		return a, a.loadIncidents(true)
	}
	return a, nil
}

func (a *App) handleFilterInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.filtering = false
		a.filterInput.Blur()
		return a, nil
	case "enter":
		a.filtering = false
		a.filterInput.Blur()
		a.criteria.Query = a.filterInput.Value()
		a.applyFilter()
		return a, nil
	}
	var cmd tea.Cmd
	a.filterInput, cmd = a.filterInput.Update(msg)
	// Live projection while typing.
	a.criteria.Query = a.filterInput.Value()
	a.applyFilter()
	return a, cmd
}

func (a *App) handleDetailKey(msg tea.KeyMsg, scope string) (tea.Model, tea.Cmd) {
	sysID := a.nav.DetailID()
	switch {
	case a.keys.IsAction(msg, "back", scope):
		if a.showHistory {
			a.showHistory = false
			return a, nil
		}
		a.nav = a.nav.Back()
		a.setStatus("")
	case a.keys.IsAction(msg, "refresh", scope):
		return a, a.loadDetail(sysID, true)
	case a.keys.IsAction(msg, "run-analysis", scope):
		if !a.sess.Can(rbac.CapAnalyzeIncident) {
			return a, statusCmd("Analyze requires the analyze-incident capability")
		}
		return a, a.analyzeCmd(sysID)
	case a.keys.IsAction(msg, "run-process", scope):
		if !a.sess.Can(rbac.CapProcessIncident) {
			return a, statusCmd("Process requires the process-incident capability")
		}
		return a, a.processCmd(sysID)
	case a.keys.IsAction(msg, "run-compliance", scope):
		if !a.sess.Can(rbac.CapComplianceFilter) {
			return a, statusCmd("Compliance filter requires the compliance-filter capability")
		}
		return a, a.complianceCmd(sysID)
	case a.keys.IsAction(msg, "show-history", scope):
		return a, a.loadHistory(sysID)
	}
	return a, nil
}

func (a *App) handleCreateKey(msg tea.KeyMsg, scope string) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.IsAction(msg, "back", scope):
		a.nav = a.nav.Back()
		a.setStatus("")
		return a, nil
	case a.keys.IsAction(msg, "next-field", scope):
		a.formFocus = (a.formFocus + 1) % 3
		a.syncFormFocus()
		return a, nil
	case a.keys.IsAction(msg, "submit", scope):
		req := snowapi.CreateRequest{
			ShortDescription: strings.TrimSpace(a.shortInput.Value()),
			Description:      strings.TrimSpace(a.descInput.Value()),
			WorkNotes:        strings.TrimSpace(a.notesInput.Value()),
		}
		return a, a.createCmd(req)
	}
	var cmd tea.Cmd
	switch a.formFocus {
	case 0:
		a.shortInput, cmd = a.shortInput.Update(msg)
	case 1:
		a.descInput, cmd = a.descInput.Update(msg)
	case 2:
		a.notesInput, cmd = a.notesInput.Update(msg)
	}
	return a, cmd
}

func (a *App) resetCreateForm() {
	a.shortInput.SetValue("")
	a.descInput.SetValue("")
	a.notesInput.SetValue("")
	a.formFocus = 0
	a.syncFormFocus()
}

func (a *App) syncFormFocus() {
	a.shortInput.Blur()
	a.descInput.Blur()
	a.notesInput.Blur()
	switch a.formFocus {
	case 0:
		a.shortInput.Focus()
	case 1:
		a.descInput.Focus()
	case 2:
		a.notesInput.Focus()
	}
}

// nextStateFilter cycles all -> each state -> all.
func nextStateFilter(cur string) string {
	states := incident.States()
	if cur == filter.All || cur == "" {
		return string(states[0])
	}
	for i, s := range states {
		if string(s) == cur {
			if i == len(states)-1 {
				return filter.All
			}
			return string(states[i+1])
		}
	}
	return filter.All
}

func nextPriorityFilter(cur string) string {
	prios := incident.Priorities()
	if cur == filter.All || cur == "" {
		return string(prios[0])
	}
	for i, p := range prios {
		if string(p) == cur {
			if i == len(prios)-1 {
				return filter.All
			}
			return string(prios[i+1])
		}
	}
	return filter.All
}
