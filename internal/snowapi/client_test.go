package snowapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
)

func testSession() rbac.Session {
	return rbac.Session{UserID: "ops.admin", Role: rbac.RoleAdmin}
}

func newTestClient(url string) *Client {
	return NewClient(url, 5*time.Second, zerolog.Nop())
}

func TestCreateIncident(t *testing.T) {
	var gotBody CreateRequest
	var gotUser, gotRole, gotReqID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/incidents/create", r.URL.Path)
		gotUser = r.Header.Get("X-User-ID")
		gotRole = r.Header.Get("X-User-Role")
		gotReqID = r.Header.Get("X-Request-ID")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(incident.Incident{
			SysID:            "sys-1",
			Number:           "INC0001001",
			ShortDescription: gotBody.ShortDescription,
			State:            incident.StateOpen,
			Priority:         incident.PriorityMedium,
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL + "/api/v1")
	created, err := c.CreateIncident(context.Background(), testSession(), CreateRequest{
		ShortDescription: "VPN tunnel flapping",
		Description:      "Tunnel to DC2 drops every few minutes",
	})
	require.NoError(t, err)
	assert.Equal(t, "sys-1", created.SysID)
	assert.Equal(t, "INC0001001", created.Number)
	assert.Equal(t, "VPN tunnel flapping", gotBody.ShortDescription)
	assert.Equal(t, "ops.admin", gotUser)
	assert.Equal(t, "ADMIN", gotRole)
	assert.NotEmpty(t, gotReqID)
}

func TestListIncidentsFilters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/incidents", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "open", q.Get("state"))
		require.Equal(t, "critical", q.Get("priority"))
		require.Equal(t, "25", q.Get("limit"))
		json.NewEncoder(w).Encode(listResponse{Result: []incident.Incident{
			{SysID: "a", Number: "INC0001"},
			{SysID: "b", Number: "INC0002"},
		}, Total: 2})
	}))
	defer server.Close()

	c := newTestClient(server.URL + "/api/v1")
	list, err := c.ListIncidents(context.Background(), testSession(), ListFilters{State: "open", Priority: "critical", Limit: 25})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].SysID)
}

func TestAnalyzeCarriesWarnings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/incidents/sys-9/analyze", r.URL.Path)
		require.Equal(t, "general", r.URL.Query().Get("analysis_type"))
		require.Equal(t, "openai", r.URL.Query().Get("provider"))
		json.NewEncoder(w).Encode(incident.AnalysisResult{
			Success:      false,
			SysID:        "sys-9",
			AnalysisType: "general",
			AIModel:      "gpt-4",
			Usage:        incident.TokenUsage{PromptTokens: 812, CompletionTokens: 411, TotalTokens: 1223},
			Data: incident.AnalysisData{
				ID:             "a1",
				Issue:          "VPN tunnel instability",
				StepsToResolve: []string{"Check tunnel status", "Inspect IKE logs"},
			},
			ParsingError: "trailing markdown fence stripped",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL + "/api/v1")
	res, err := c.AnalyzeIncident(context.Background(), testSession(), "sys-9", "general", "openai")
	require.NoError(t, err, "analysis warnings must not surface as errors")
	assert.Equal(t, []string{"trailing markdown fence stripped"}, res.Warnings())
	assert.Equal(t, 1223, res.Usage.TotalTokens)
	assert.Equal(t, []string{"Check tunnel status", "Inspect IKE logs"}, res.Data.StepsToResolve)
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "401 maps to AuthError",
			status: http.StatusUnauthorized,
			body:   `{"detail":"token expired"}`,
			check: func(t *testing.T, err error) {
				require.True(t, IsAuth(err))
			},
		},
		{
			name:   "404 maps to NotFoundError with sys_id",
			status: http.StatusNotFound,
			body:   `{"detail":"Incident sys-404 not found"}`,
			check: func(t *testing.T, err error) {
				require.True(t, IsNotFound(err))
				assert.Contains(t, err.Error(), "sys-404")
			},
		},
		{
			name:   "502 carries server detail verbatim",
			status: http.StatusBadGateway,
			body:   `{"detail":"ServiceNow upstream timed out"}`,
			check: func(t *testing.T, err error) {
				var se *ServerError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, http.StatusBadGateway, se.StatusCode)
				assert.Equal(t, "ServiceNow upstream timed out", se.Detail)
				assert.Equal(t, "ServiceNow upstream timed out", err.Error())
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			c := newTestClient(server.URL + "/api/v1")
			_, err := c.GetDetails(context.Background(), testSession(), "sys-404")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := newTestClient(server.URL + "/api/v1")
	_, err := c.GetSummary(context.Background(), testSession(), "sys-1")
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestInsightsUnwrapsEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/incidents/sys-2/insights", r.URL.Path)
		json.NewEncoder(w).Encode(insightsResponse{
			Success:      true,
			SysID:        "sys-2",
			AnalysisType: "recommendations",
			Insights: incident.AnalysisResult{
				Success: true,
				SysID:   "sys-2",
				Data:    incident.AnalysisData{Issue: "Capacity exhaustion"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL + "/api/v1")
	res, err := c.RequestInsights(context.Background(), testSession(), "sys-2", "recommendations", "")
	require.NoError(t, err)
	assert.Equal(t, "Capacity exhaustion", res.Data.Issue)
}
