package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/runtime"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

const bufSize = 1 << 20

func newTestClient(t *testing.T) (*Server, *runtime.Runtime, healthpb.HealthClient, context.CancelFunc, chan error) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	srv := New(rt, logpkg.NewNopLogger())
	lis := bufconn.Listen(bufSize)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return srv, rt, healthpb.NewHealthClient(conn), cancel, done
}

func TestHealthOverGRPC(t *testing.T) {
	_, _, c, cancel, done := newTestClient(t)
	defer func() { cancel(); <-done }()

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	for _, name := range []string{"", ServiceName} {
		res, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		if err != nil {
			t.Fatalf("check %q: %v", name, err)
		}
		if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("check %q: %v", name, res.GetStatus())
		}
	}
}

func TestHealthReflectsClosedRuntime(t *testing.T) {
	srv, rt, c, cancel, done := newTestClient(t)
	defer func() { cancel(); <-done }()

	_ = rt.Close()
	srv.Refresh(context.Background())

	ctx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	res, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("want NOT_SERVING, got %v", res.GetStatus())
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	_, _, _, cancel, done := newTestClient(t)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}
}
