package server

import (
	"net/http"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
)

// handleListAgents handles GET /v1/agents.
func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.suite.Registry.Names()})
}

// handleExecuteAgent handles POST /v1/agents/{name}/execute. The body is the
// agent's input object; the response is its output.
func (s *Server) handleExecuteAgent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	a, ok := s.suite.Registry.Get(name)
	if !ok {
		s.writeAppError(w, r, apperr.NotFound("agent", name), nil)
		return
	}
	input := map[string]any{}
	if err := decodeBody(r, &input); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	out, err := a.Execute(r.Context(), input)
	if err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRunPipeline handles POST /v1/pipeline. A failed run still returns
// whatever the completed stages produced.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	var in agent.PipelineInput
	if err := decodeBody(r, &in); err != nil {
		s.writeAppError(w, r, err, nil)
		return
	}
	res, err := s.suite.Pipeline.Run(r.Context(), in)
	if err != nil {
		var partial any
		if res != nil {
			partial = res
		}
		s.writeAppError(w, r, err, partial)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
