package server

import (
	"net/http"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

const defaultRelatedLimit = 50

// handleListEvents handles GET /v1/events.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.EventFilter{
		Severity:      model.Severity(q.Get("severity")),
		AgentName:     q.Get("agent_name"),
		EventType:     q.Get("event_type"),
		Category:      model.Category(q.Get("event_category")),
		WorkflowID:    q.Get("workflow_id"),
		CorrelationID: q.Get("correlation_id"),
		Search:        q.Get("search"),
		Order:         model.SortOrder(q.Get("order")),
	}
	var err error
	if filter.Since, err = queryTime(r, "since"); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	if filter.Until, err = queryTime(r, "until"); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	if filter.Order != "" && filter.Order != model.OrderAsc && filter.Order != model.OrderDesc {
		writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	page, err := s.log.Query(r.Context(), filter)
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleAppendEvent handles POST /v1/events.
func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := decodeBody(r, &e); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	stored, err := s.log.Append(r.Context(), &e)
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

// handleGetEvent handles GET /v1/events/{id}.
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.log.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleRelatedEvents handles GET /v1/events/{id}/related.
func (s *Server) handleRelatedEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultRelatedLimit)
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	e, err := s.log.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	related, err := s.log.Related(r.Context(), e, limit)
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"event": e, "related": related})
}
