package server

import (
	"log/slog"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
)

// Server exposes the agents, the event log, the status projection and the
// metrics engine over HTTP and gRPC.
type Server struct {
	log       *eventlog.Log
	suite     *agent.Suite
	projector *projection.Projector
	engine    *metrics.Engine
	logger    *slog.Logger
}

// New returns a Server over the given components. A nil logger uses
// slog.Default().
func New(log *eventlog.Log, suite *agent.Suite, projector *projection.Projector, engine *metrics.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		log:       log,
		suite:     suite,
		projector: projector,
		engine:    engine,
		logger:    logger,
	}
}
