package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewHealthCommand returns the `health` command. It probes the HTTP
// endpoint by default and the gRPC health service with --grpc.
func NewHealthCommand(baseURL BaseURLFunc) *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			useGRPC, _ := cmd.Flags().GetBool("grpc")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if useGRPC {
				addr, _ := cmd.Flags().GetString("grpc-addr")
				if addr == "" {
					addr = grpcAddrFromEnv()
				}
				st, err := checkGRPCHealth(ctx, addr)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", st)
				if st != healthpb.HealthCheckResponse_SERVING {
					return errors.New("server not serving")
				}
				return nil
			}
			if _, err := do(ctx, http.MethodGet, endpoint(baseURL(), "v1", "healthz"), nil); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status: SERVING")
			return nil
		},
	}
	healthCmd.Flags().Bool("grpc", false, "probe the gRPC health service instead of HTTP")
	healthCmd.Flags().String("grpc-addr", "", "gRPC address (default $PIGEON_GRPC or 127.0.0.1:50051)")
	healthCmd.Flags().Duration("timeout", 5*time.Second, "probe timeout")
	return healthCmd
}

func checkGRPCHealth(ctx context.Context, addr string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	conn, err := dialGRPC(addr)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	defer func() { _ = conn.Close() }()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: "pigeon"})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}
