package server

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/model"
)

// dialHealth serves env over an in-memory listener and returns a health
// client connected to it.
func dialHealth(t *testing.T, env *testEnv, token string) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(env.server, token)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestHealthCheck_Serving(t *testing.T) {
	env := newTestEnv(t)
	client := dialHealth(t, env, "secret")

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	resp, err = client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: HealthServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestHealthCheck_NotServingWhenDown(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < metrics.DownThreshold; i++ {
		env.append(t, model.Event{EventType: "system.queue", Severity: model.SeverityCritical})
	}
	client := dialHealth(t, env, "")

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}

func TestHealthCheck_UnknownService(t *testing.T) {
	client := dialHealth(t, newTestEnv(t), "")
	_, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "billing"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServingStatus(t *testing.T) {
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, ServingStatus(metrics.Healthy))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, ServingStatus(metrics.Degraded))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, ServingStatus(metrics.Down))
}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := RecoveryInterceptor(quietLogger())(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/ace.v1.Agents/Execute"},
		func(context.Context, any) (any, error) { panic("boom") })
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}
