package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/server"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/ui"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Report system health",
	GroupID: "system",
	Long: `Report system health.

Without --grpc the event log is read directly. With --grpc the standard gRPC
health service of a running server is queried and its response printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("grpc")
		if addr != "" {
			token, _ := cmd.Flags().GetString("token")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			return remoteHealth(cmd.Context(), addr, token, timeout)
		}
		return withApp(cmd.Context(), func(a *app) error {
			report, err := a.engine.SystemHealth(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(report)
				return nil
			}
			fmt.Printf("Status:           %s\n", ui.RenderHealth(string(report.Status)))
			fmt.Printf("Serving:          %s\n", server.ServingStatus(report.Status))
			fmt.Printf("Critical events:  %d\n", report.CriticalEvents)
			fmt.Printf("Workflow errors:  %d\n", report.WorkflowErrors)
			fmt.Printf("Since:            %s\n", report.Since.Format(time.RFC3339))
			return nil
		})
	},
}

func init() {
	healthCmd.Flags().String("grpc", "", "query the health service of a running server at this address")
	healthCmd.Flags().Duration("timeout", 5*time.Second, "timeout for --grpc")
	healthCmd.Flags().String("token", os.Getenv("ACE_AUTH_TOKEN"), "bearer token for --grpc")
	// A remote check loads no local configuration.
	healthCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("grpc"); addr != "" {
			return nil
		}
		return rootCmd.PersistentPreRunE(cmd, args)
	}
}

func remoteHealth(ctx context.Context, addr, token string, timeout time.Duration) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.HealthServiceName})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	out, err := protojson.MarshalOptions{Multiline: true, EmitUnpopulated: true}.Marshal(resp)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("server is %s", resp.GetStatus())
	}
	return nil
}
