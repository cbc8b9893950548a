package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
)

// HealthServiceName is the service name the health check answers for besides
// the empty (whole server) name.
const HealthServiceName = "ace"

const healthServicePrefix = "/grpc.health.v1.Health/"

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the health service and reflection, and returns the server ready to serve.
func NewGRPCServer(s *Server, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(s.logger),
			LoggingInterceptor(s.logger),
			AuthInterceptor(authToken),
		),
	)

	healthpb.RegisterHealthServer(srv, &healthService{engine: s.engine})
	reflection.Register(srv)

	return srv
}

// healthService reports SERVING unless system health is down.
type healthService struct {
	healthpb.UnimplementedHealthServer
	engine *metrics.Engine
}

func (h *healthService) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if svc := req.GetService(); svc != "" && svc != HealthServiceName {
		return nil, status.Errorf(codes.NotFound, "unknown service %q", svc)
	}
	report, err := h.engine.SystemHealth(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Unavailable, "system health: %v", err)
	}
	return &healthpb.HealthCheckResponse{Status: ServingStatus(report.Status)}, nil
}

// ServingStatus maps system health onto the gRPC health protocol.
func ServingStatus(h metrics.Health) healthpb.HealthCheckResponse_ServingStatus {
	if h == metrics.Down {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
