package server

import (
	"net/http"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
)

// handleAgentStatuses handles GET /v1/status/agents.
func (s *Server) handleAgentStatuses(w http.ResponseWriter, r *http.Request) {
	rows, err := s.projector.AgentStatuses(r.Context())
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": rows})
}

// handleAgentStatus handles GET /v1/status/agents/{name}.
func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	row, err := s.projector.AgentStatus(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleWorkflowStatus handles GET /v1/status/workflows/{id}.
func (s *Server) handleWorkflowStatus(w http.ResponseWriter, r *http.Request) {
	row, err := s.projector.WorkflowStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleMetrics handles GET /v1/metrics. Without start/end the range is the
// last DashboardDays days ending now.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	g, err := metrics.ParseGranularity(r.URL.Query().Get("granularity"))
	if err != nil {
		s.writeAppError(w, r, apperr.Validation(err.Error()), nil)
		return
	}
	start, err := queryTime(r, "start")
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	rng := metrics.Range{End: s.log.Now()}
	if end != nil {
		rng.End = *end
	}
	rng.Start = rng.End.AddDate(0, 0, -metrics.DashboardDays)
	if start != nil {
		rng.Start = *start
	}

	report, err := s.engine.Metrics(r.Context(), rng, g, metrics.Filters{
		Platform:      r.URL.Query().Get("platform"),
		PostIDs:       queryList(r, "post_id"),
		ExperimentIDs: queryList(r, "experiment_id"),
	})
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleDashboard handles GET /v1/dashboard.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.engine.Dashboard(r.Context())
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleHealth handles GET /v1/health. A down system answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.SystemHealth(r.Context())
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	status := http.StatusOK
	if report.Status == metrics.Down {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
