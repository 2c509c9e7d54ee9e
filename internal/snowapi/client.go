// Package snowapi is the HTTP client for the remote incident-management
// service. It owns request construction, identity headers, and mapping of
// HTTP failures into the workspace error taxonomy. It performs exactly one
// attempt per call: process and analyze trigger real external effects, so
// retries are always an explicit user action.
package snowapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
)

// DefaultTimeout bounds every network call issued by the client.
const DefaultTimeout = 30 * time.Second

// Client talks to the incident API mounted under baseURL (e.g.
// "http://localhost:8000/api/v1"). Identity is attached per request from the
// session value passed by the caller; the client holds no auth state.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a client for the incident API.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With().Str("component", "snowapi").Logger(),
	}
}

// CreateRequest is the payload for creating an incident. The remote service
// assigns sys_id, number, and timestamps.
type CreateRequest struct {
	ShortDescription string `json:"short_description" validate:"required"`
	Description      string `json:"description" validate:"required"`
	WorkNotes        string `json:"work_notes,omitempty"`
}

// UpdateRequest is a partial update; zero-valued fields are omitted from the
// request body.
type UpdateRequest struct {
	ShortDescription string            `json:"short_description,omitempty"`
	Description      string            `json:"description,omitempty"`
	State            incident.State    `json:"state,omitempty"`
	Priority         incident.Priority `json:"priority,omitempty"`
	AssignedTo       string            `json:"assigned_to,omitempty"`
	WorkNotes        string            `json:"work_notes,omitempty"`
}

// ProcessResponse is the result of the full AI processing pipeline.
type ProcessResponse struct {
	Success        bool               `json:"success"`
	Incident       *incident.Incident `json:"incident,omitempty"`
	AIAnalysis     map[string]any     `json:"ai_analysis,omitempty"`
	ComplianceInfo map[string]any     `json:"compliance_info,omitempty"`
	ProcessingTime float64            `json:"processing_time"`
	Message        string             `json:"message"`
	Errors         []string           `json:"errors,omitempty"`
}

type detailsResponse struct {
	Success  bool              `json:"success"`
	SysID    string            `json:"sys_id"`
	Incident incident.Incident `json:"incident"`
}

type historyResponse struct {
	Success bool                    `json:"success"`
	SysID   string                  `json:"sys_id"`
	History []incident.HistoryEntry `json:"history"`
	Count   int                     `json:"count"`
}

type insightsResponse struct {
	Success      bool                    `json:"success"`
	SysID        string                  `json:"sys_id"`
	AnalysisType string                  `json:"analysis_type"`
	Insights     incident.AnalysisResult `json:"insights"`
}

type listResponse struct {
	Result []incident.Incident `json:"result"`
	Total  int                 `json:"total"`
}

// ListFilters narrows the incident list query. Zero values are omitted.
type ListFilters struct {
	State      string
	Priority   string
	AssignedTo string
	Limit      int
	Offset     int
}

func (f ListFilters) query() url.Values {
	q := url.Values{}
	if f.State != "" {
		q.Set("state", f.State)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.AssignedTo != "" {
		q.Set("assigned_to", f.AssignedTo)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

// CreateIncident submits a new incident and returns the created record.
func (c *Client) CreateIncident(ctx context.Context, sess rbac.Session, req CreateRequest) (incident.Incident, error) {
	var out incident.Incident
	err := c.do(ctx, sess, http.MethodPost, "/incidents/create", nil, req, &out)
	return out, err
}

// UpdateIncident applies a partial update and returns the updated record.
func (c *Client) UpdateIncident(ctx context.Context, sess rbac.Session, sysID string, req UpdateRequest) (incident.Incident, error) {
	var out incident.Incident
	err := c.do(ctx, sess, http.MethodPut, "/incidents/"+url.PathEscape(sysID)+"/update", nil, req, &out)
	return out, c.mapNotFound(err, sysID)
}

// ProcessIncident runs the full AI processing pipeline for sysID. provider
// optionally selects the AI backend.
func (c *Client) ProcessIncident(ctx context.Context, sess rbac.Session, sysID, provider string) (ProcessResponse, error) {
	q := url.Values{}
	if provider != "" {
		q.Set("provider", provider)
	}
	var out ProcessResponse
	err := c.do(ctx, sess, http.MethodPost, "/incidents/process/"+url.PathEscape(sysID), q, nil, &out)
	return out, c.mapNotFound(err, sysID)
}

// GetSummary fetches the condensed read projection for sysID.
func (c *Client) GetSummary(ctx context.Context, sess rbac.Session, sysID string) (incident.Summary, error) {
	var out incident.Summary
	err := c.do(ctx, sess, http.MethodGet, "/incidents/"+url.PathEscape(sysID)+"/summary", nil, nil, &out)
	return out, c.mapNotFound(err, sysID)
}

// GetDetails fetches the full incident record for sysID.
func (c *Client) GetDetails(ctx context.Context, sess rbac.Session, sysID string) (incident.Incident, error) {
	var out detailsResponse
	err := c.do(ctx, sess, http.MethodGet, "/incidents/"+url.PathEscape(sysID)+"/details", nil, nil, &out)
	return out.Incident, c.mapNotFound(err, sysID)
}

// GetHistory fetches the audit trail for sysID.
func (c *Client) GetHistory(ctx context.Context, sess rbac.Session, sysID string) ([]incident.HistoryEntry, error) {
	var out historyResponse
	err := c.do(ctx, sess, http.MethodGet, "/incidents/"+url.PathEscape(sysID)+"/history", nil, nil, &out)
	return out.History, c.mapNotFound(err, sysID)
}

// AnalyzeIncident runs a single structured AI analysis. The result may carry
// non-fatal parsing/validation warnings; those do not surface as errors.
func (c *Client) AnalyzeIncident(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error) {
	q := url.Values{}
	if analysisType != "" {
		q.Set("analysis_type", analysisType)
	}
	if provider != "" {
		q.Set("provider", provider)
	}
	var out incident.AnalysisResult
	err := c.do(ctx, sess, http.MethodPost, "/incidents/"+url.PathEscape(sysID)+"/analyze", q, nil, &out)
	return out, c.mapNotFound(err, sysID)
}

// ComplianceFilter runs the compliance filter for sysID at the given level.
func (c *Client) ComplianceFilter(ctx context.Context, sess rbac.Session, sysID string, level incident.ComplianceLevel, provider string) (incident.ComplianceResult, error) {
	q := url.Values{}
	if level != "" {
		q.Set("compliance_level", string(level))
	}
	if provider != "" {
		q.Set("provider", provider)
	}
	var out incident.ComplianceResult
	err := c.do(ctx, sess, http.MethodPost, "/incidents/"+url.PathEscape(sysID)+"/compliance-filter", q, nil, &out)
	return out, c.mapNotFound(err, sysID)
}

// RequestInsights asks for agentic insights of the given analysis type.
func (c *Client) RequestInsights(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error) {
	q := url.Values{}
	if analysisType != "" {
		q.Set("analysis_type", analysisType)
	}
	if provider != "" {
		q.Set("provider", provider)
	}
	var out insightsResponse
	err := c.do(ctx, sess, http.MethodPost, "/incidents/"+url.PathEscape(sysID)+"/insights", q, nil, &out)
	return out.Insights, c.mapNotFound(err, sysID)
}

// ListIncidents fetches the incident list, optionally narrowed by filters.
func (c *Client) ListIncidents(ctx context.Context, sess rbac.Session, filters ListFilters) ([]incident.Incident, error) {
	var out listResponse
	err := c.do(ctx, sess, http.MethodGet, "/incidents", filters.query(), nil, &out)
	return out.Result, err
}

// do issues one request and decodes the JSON response into out. It never
// retries; failures map onto the taxonomy in errors.go.
func (c *Client) do(ctx context.Context, sess rbac.Session, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req, sess)

	c.logger.Debug().Str("method", method).Str("path", path).Msg("issuing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("transport failure")
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkResponse(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// setHeaders attaches identity and correlation headers. Identity comes from
// the explicit session value, never from global state.
func (c *Client) setHeaders(req *http.Request, sess rbac.Session) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-User-ID", sess.UserID)
	req.Header.Set("X-User-Role", string(sess.Role))
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// checkResponse maps non-2xx statuses onto the error taxonomy.
func (c *Client) checkResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(resp.Body)
	detail := serverDetail(raw)

	c.logger.Error().Int("status", resp.StatusCode).Str("detail", detail).Msg("incident API error")

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &AuthError{Detail: detail}
	case http.StatusNotFound:
		return &NotFoundError{}
	default:
		return &ServerError{StatusCode: resp.StatusCode, Detail: detail}
	}
}

// serverDetail extracts the FastAPI-style {"detail": "..."} message, falling
// back to the raw body.
func serverDetail(raw []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return strings.TrimSpace(string(raw))
}

// mapNotFound fills in the sys_id on NotFoundError so callers can report
// which record was missing.
func (c *Client) mapNotFound(err error, sysID string) error {
	if err == nil {
		return nil
	}
	if nf, ok := err.(*NotFoundError); ok && nf.SysID == "" {
		nf.SysID = sysID
	}
	return err
}
