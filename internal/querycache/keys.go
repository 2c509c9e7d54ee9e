package querycache

import "fmt"

// Key identifies one cached entity: its kind, the entity id (empty for
// collections), and a canonical encoding of any query params.
type Key struct {
	Kind   string
	ID     string
	Params string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s?%s", k.Kind, k.ID, k.Params)
}

// Entity kinds cached by the workspace.
const (
	KindIncidentList = "incident-list"
	KindDetail       = "incident-detail"
	KindSummary      = "incident-summary"
	KindHistory      = "incident-history"
	KindAnalysis     = "incident-analysis"
	KindCompliance   = "incident-compliance"
)

// ListKey addresses the incident list for a canonical filter encoding.
func ListKey(params string) Key {
	return Key{Kind: KindIncidentList, Params: params}
}

// DetailKey addresses the full record of one incident.
func DetailKey(sysID string) Key {
	return Key{Kind: KindDetail, ID: sysID}
}

// SummaryKey addresses the condensed projection of one incident.
func SummaryKey(sysID string) Key {
	return Key{Kind: KindSummary, ID: sysID}
}

// HistoryKey addresses the audit trail of one incident.
func HistoryKey(sysID string) Key {
	return Key{Kind: KindHistory, ID: sysID}
}

// AnalysisKey addresses the latest AI analysis of one incident.
func AnalysisKey(sysID string) Key {
	return Key{Kind: KindAnalysis, ID: sysID}
}

// ComplianceKey addresses the latest compliance-filter run for one incident.
func ComplianceKey(sysID string) Key {
	return Key{Kind: KindCompliance, ID: sysID}
}
