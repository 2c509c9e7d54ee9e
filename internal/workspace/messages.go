package workspace

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/snowapi"
)

type statusMsg struct {
	Text  string
	IsErr bool
}

type incidentsLoadedMsg struct {
	Items []incident.Incident
	Err   error
}

type detailLoadedMsg struct {
	SysID    string
	Incident incident.Incident
	Err      error
}

type summaryLoadedMsg struct {
	SysID   string
	Summary incident.Summary
	Err     error
}

type historyLoadedMsg struct {
	SysID   string
	Entries []incident.HistoryEntry
	Err     error
}

type createdMsg struct {
	Incident incident.Incident
	Err      error
}

type updatedMsg struct {
	Incident incident.Incident
	Err      error
}

type processedMsg struct {
	SysID    string
	Response snowapi.ProcessResponse
	Err      error
}

type analyzedMsg struct {
	SysID  string
	Result incident.AnalysisResult
	Err    error
}

type complianceMsg struct {
	SysID  string
	Result incident.ComplianceResult
	Err    error
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{Text: text} }
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		if err == nil {
			return statusMsg{}
		}
		return statusMsg{Text: err.Error(), IsErr: true}
	}
}
