// Package incident defines the domain model shared by the workspace: the
// incident record as served by the remote incident-management API, and the
// structured AI analysis attached to it.
package incident

import "time"

// State is the lifecycle state of an incident. The set is closed; the remote
// service never returns anything outside it.
type State string

const (
	StateOpen       State = "open"
	StateInProgress State = "in_progress"
	StateResolved   State = "resolved"
	StateClosed     State = "closed"
)

// Valid reports whether s is one of the known lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateOpen, StateInProgress, StateResolved, StateClosed:
		return true
	}
	return false
}

// Display returns the human label used in list and detail views.
func (s State) Display() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateInProgress:
		return "In Progress"
	case StateResolved:
		return "Resolved"
	case StateClosed:
		return "Closed"
	}
	return string(s)
}

// States lists all lifecycle states in workflow order.
func States() []State {
	return []State{StateOpen, StateInProgress, StateResolved, StateClosed}
}

// Priority is the urgency bucket assigned to an incident.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Display returns the human label used in list and detail views.
func (p Priority) Display() string {
	switch p {
	case PriorityCritical:
		return "Critical"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return string(p)
}

// Priorities lists all priorities from most to least urgent.
func Priorities() []Priority {
	return []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
}

// Incident is a single incident record. Records are created by the remote
// service on submission and mutated only through the mutation coordinator;
// they are never deleted client-side.
type Incident struct {
	SysID            string    `json:"sys_id"`
	Number           string    `json:"number"`
	ShortDescription string    `json:"short_description"`
	Description      string    `json:"description"`
	State            State     `json:"state"`
	Priority         Priority  `json:"priority"`
	Severity         string    `json:"severity"`
	Category         string    `json:"category"`
	Subcategory      string    `json:"subcategory,omitempty"`
	AssignedTo       string    `json:"assigned_to,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	WorkNotes        string    `json:"work_notes,omitempty"`
}

// Summary is the condensed read projection returned by the summary endpoint.
type Summary struct {
	SysID            string    `json:"sys_id"`
	Number           string    `json:"number"`
	Title            string    `json:"title"`
	Status           State     `json:"status"`
	Priority         Priority  `json:"priority"`
	Category         string    `json:"category,omitempty"`
	Subcategory      string    `json:"subcategory,omitempty"`
	AssignedTo       string    `json:"assigned_to,omitempty"`
	Created          time.Time `json:"created"`
	Updated          time.Time `json:"updated"`
	ShortDescription string    `json:"short_description,omitempty"`
	Description      string    `json:"description,omitempty"`
	WorkNotes        string    `json:"work_notes,omitempty"`
	Summary          string    `json:"summary,omitempty"`
}

// HistoryEntry is one audit record from the incident history endpoint.
type HistoryEntry struct {
	SysID     string    `json:"sys_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenUsage carries the model token counters reported with an analysis.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AnalysisData is the structured body of an AI analysis: the issue, its
// description, and an ordered sequence of resolution steps. The remote
// service guarantees at least ten steps.
type AnalysisData struct {
	ID                  string   `json:"id"`
	Issue               string   `json:"issue"`
	Description         string   `json:"description"`
	StepsToResolve      []string `json:"steps_to_resolve"`
	TechnicalDetails    string   `json:"technical_details"`
	CompleteDescription string   `json:"complete_description"`
}

// AnalysisResult ties one AI analysis to an incident. Results are immutable
// once received; a newer analyze call supersedes (never merges with) an
// earlier one. ParsingError and ValidationError are non-fatal warnings from
// the remote service's JSON extraction; a result carrying them is still
// usable.
type AnalysisResult struct {
	Success         bool         `json:"success"`
	SysID           string       `json:"sys_id"`
	AnalysisType    string       `json:"analysis_type"`
	AIModel         string       `json:"ai_model"`
	Usage           TokenUsage   `json:"usage"`
	Data            AnalysisData `json:"data"`
	PDFPath         string       `json:"pdf_path,omitempty"`
	RawAIOutputPath string       `json:"raw_ai_output_path,omitempty"`
	ParsingError    string       `json:"parsing_error,omitempty"`
	ValidationError string       `json:"validation_error,omitempty"`
}

// Warnings returns the non-fatal warnings attached to the result, if any.
func (r AnalysisResult) Warnings() []string {
	var out []string
	if r.ParsingError != "" {
		out = append(out, r.ParsingError)
	}
	if r.ValidationError != "" {
		out = append(out, r.ValidationError)
	}
	return out
}

// Analysis types accepted by the analyze and insights operations.
const (
	AnalysisGeneral            = "general"
	AnalysisPriorityAssessment = "priority_assessment"
	AnalysisClassification     = "classification"
	AnalysisRecommendations    = "recommendations"
)

// AnalysisTypes lists the accepted analysis types.
func AnalysisTypes() []string {
	return []string{AnalysisGeneral, AnalysisPriorityAssessment, AnalysisClassification, AnalysisRecommendations}
}

// ComplianceLevel controls how aggressively the compliance filter strips or
// masks sensitive fields before data leaves the incident record.
type ComplianceLevel string

const (
	CompliancePublic       ComplianceLevel = "public"
	ComplianceInternal     ComplianceLevel = "internal"
	ComplianceConfidential ComplianceLevel = "confidential"
	ComplianceRestricted   ComplianceLevel = "restricted"
)

// Valid reports whether l is a known compliance level.
func (l ComplianceLevel) Valid() bool {
	switch l {
	case CompliancePublic, ComplianceInternal, ComplianceConfidential, ComplianceRestricted:
		return true
	}
	return false
}

// ComplianceResult is the outcome of a compliance-filter run.
type ComplianceResult struct {
	Success         bool            `json:"success"`
	SysID           string          `json:"sys_id"`
	ComplianceLevel ComplianceLevel `json:"compliance_level"`
	FilteredData    map[string]any  `json:"filtered_data"`
	ComplianceScore float64         `json:"compliance_score"`
	RemovedFields   []string        `json:"removed_fields"`
	MaskedFields    []string        `json:"masked_fields"`
	Classifications map[string]any  `json:"classifications,omitempty"`
}
