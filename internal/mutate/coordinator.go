// Package mutate executes write operations against the remote incident
// service and keeps the query cache coherent: a mutation either fully
// commits (dependent cache keys invalidated, next read sees new truth) or
// fully fails (cache untouched). Nothing is applied optimistically and
// nothing is retried automatically; process and analyze have real external
// side effects.
package mutate

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roysantu2002/service-now-agent/internal/incident"
	"github.com/roysantu2002/service-now-agent/internal/metrics"
	"github.com/roysantu2002/service-now-agent/internal/querycache"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
	"github.com/roysantu2002/service-now-agent/internal/snowapi"
)

// ErrInFlight is returned when a mutation for the same target is already
// running. The caller drops the duplicate rather than queueing it.
var ErrInFlight = errors.New("mutation already in flight for this target")

// ErrNotPermitted is returned when the session's role lacks the capability
// for the requested operation. The UI hides such actions, but the
// coordinator enforces the gate regardless.
var ErrNotPermitted = errors.New("role does not permit this operation")

// IncidentAPI is the slice of the remote client the coordinator drives.
type IncidentAPI interface {
	CreateIncident(ctx context.Context, sess rbac.Session, req snowapi.CreateRequest) (incident.Incident, error)
	UpdateIncident(ctx context.Context, sess rbac.Session, sysID string, req snowapi.UpdateRequest) (incident.Incident, error)
	ProcessIncident(ctx context.Context, sess rbac.Session, sysID, provider string) (snowapi.ProcessResponse, error)
	AnalyzeIncident(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error)
	ComplianceFilter(ctx context.Context, sess rbac.Session, sysID string, level incident.ComplianceLevel, provider string) (incident.ComplianceResult, error)
	RequestInsights(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error)
}

// Coordinator serializes writes per target and owns cache invalidation.
type Coordinator struct {
	api      IncidentAPI
	cache    *querycache.Store
	validate *validator.Validate
	logger   zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewCoordinator creates a coordinator over the given client and cache.
func NewCoordinator(api IncidentAPI, cache *querycache.Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		api:      api,
		cache:    cache,
		validate: validator.New(),
		logger:   logger.With().Str("component", "mutate").Logger(),
		inFlight: make(map[string]struct{}),
	}
}

// begin claims the target for one mutation, or reports ErrInFlight.
func (c *Coordinator) begin(target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[target]; busy {
		return ErrInFlight
	}
	c.inFlight[target] = struct{}{}
	return nil
}

func (c *Coordinator) end(target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, target)
}

// run wraps one mutation: target claim, logging with a fresh mutation id,
// and outcome metrics. invalidate runs only on success.
func (c *Coordinator) run(op, target string, call func() error, invalidate func()) error {
	if err := c.begin(target); err != nil {
		metrics.Mutations.WithLabelValues(op, "rejected").Inc()
		return err
	}
	defer c.end(target)

	mutationID := uuid.NewString()
	log := c.logger.With().Str("op", op).Str("target", target).Str("mutation_id", mutationID).Logger()
	log.Info().Msg("mutation started")

	if err := call(); err != nil {
		metrics.Mutations.WithLabelValues(op, "error").Inc()
		log.Error().Err(err).Msg("mutation failed; cache untouched")
		return err
	}
	invalidate()
	metrics.Mutations.WithLabelValues(op, "success").Inc()
	log.Info().Msg("mutation committed")
	return nil
}

// checkStruct runs client-side validation; failures block the call before
// any request is issued.
func (c *Coordinator) checkStruct(v any) error {
	err := c.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = "failed " + fe.Tag() + " check"
		}
		return &snowapi.ValidationError{Fields: fields}
	}
	return err
}

// Create submits a new incident. On success every cached incident list is
// invalidated so the next read shows the new record.
func (c *Coordinator) Create(ctx context.Context, sess rbac.Session, req snowapi.CreateRequest) (incident.Incident, error) {
	if !sess.Can(rbac.CapCreateIncident) {
		return incident.Incident{}, ErrNotPermitted
	}
	if err := c.checkStruct(req); err != nil {
		return incident.Incident{}, err
	}
	var created incident.Incident
	err := c.run("create", "incident:new",
		func() (err error) {
			created, err = c.api.CreateIncident(ctx, sess, req)
			return err
		},
		func() {
			c.cache.InvalidateKind(querycache.KindIncidentList)
		},
	)
	return created, err
}

// Update applies a partial update to one incident.
func (c *Coordinator) Update(ctx context.Context, sess rbac.Session, sysID string, req snowapi.UpdateRequest) (incident.Incident, error) {
	if req.AssignedTo != "" && !sess.Can(rbac.CapAssignUser) {
		return incident.Incident{}, ErrNotPermitted
	}
	if sysID == "" {
		return incident.Incident{}, &snowapi.ValidationError{Fields: map[string]string{"sys_id": "failed required check"}}
	}
	var updated incident.Incident
	err := c.run("update", "incident:"+sysID,
		func() (err error) {
			updated, err = c.api.UpdateIncident(ctx, sess, sysID, req)
			return err
		},
		func() {
			c.cache.Invalidate(querycache.DetailKey(sysID))
			c.cache.Invalidate(querycache.SummaryKey(sysID))
			c.cache.InvalidateKind(querycache.KindIncidentList)
		},
	)
	return updated, err
}

// Process runs the full AI pipeline for one incident. The remote side
// mutates the record, so detail, summary, and history all go stale.
func (c *Coordinator) Process(ctx context.Context, sess rbac.Session, sysID, provider string) (snowapi.ProcessResponse, error) {
	if !sess.Can(rbac.CapProcessIncident) {
		return snowapi.ProcessResponse{}, ErrNotPermitted
	}
	var resp snowapi.ProcessResponse
	err := c.run("process", "incident:"+sysID,
		func() (err error) {
			resp, err = c.api.ProcessIncident(ctx, sess, sysID, provider)
			return err
		},
		func() {
			c.cache.Invalidate(querycache.DetailKey(sysID))
			c.cache.Invalidate(querycache.SummaryKey(sysID))
			c.cache.Invalidate(querycache.HistoryKey(sysID))
		},
	)
	return resp, err
}

// Analyze requests a structured AI analysis. A new result supersedes any
// cached one.
func (c *Coordinator) Analyze(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error) {
	if !sess.Can(rbac.CapAnalyzeIncident) {
		return incident.AnalysisResult{}, ErrNotPermitted
	}
	var res incident.AnalysisResult
	err := c.run("analyze", "incident:"+sysID,
		func() (err error) {
			res, err = c.api.AnalyzeIncident(ctx, sess, sysID, analysisType, provider)
			return err
		},
		func() {
			c.cache.Invalidate(querycache.AnalysisKey(sysID))
		},
	)
	return res, err
}

// Compliance runs the compliance filter at the given level.
func (c *Coordinator) Compliance(ctx context.Context, sess rbac.Session, sysID string, level incident.ComplianceLevel, provider string) (incident.ComplianceResult, error) {
	if !sess.Can(rbac.CapComplianceFilter) {
		return incident.ComplianceResult{}, ErrNotPermitted
	}
	if !level.Valid() {
		return incident.ComplianceResult{}, &snowapi.ValidationError{Fields: map[string]string{"compliance_level": "failed oneof check"}}
	}
	var res incident.ComplianceResult
	err := c.run("compliance-filter", "incident:"+sysID,
		func() (err error) {
			res, err = c.api.ComplianceFilter(ctx, sess, sysID, level, provider)
			return err
		},
		func() {
			c.cache.Invalidate(querycache.ComplianceKey(sysID))
		},
	)
	return res, err
}

// Insights requests agentic insights of the given analysis type.
func (c *Coordinator) Insights(ctx context.Context, sess rbac.Session, sysID, analysisType, provider string) (incident.AnalysisResult, error) {
	if !sess.Can(rbac.CapRequestInsights) {
		return incident.AnalysisResult{}, ErrNotPermitted
	}
	var res incident.AnalysisResult
	err := c.run("request-insights", "incident:"+sysID,
		func() (err error) {
			res, err = c.api.RequestInsights(ctx, sess, sysID, analysisType, provider)
			return err
		},
		func() {
			c.cache.Invalidate(querycache.AnalysisKey(sysID))
		},
	)
	return res, err
}
