package serverrun

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/runtime"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
)

func TestGetenvDefault(t *testing.T) {
	orig := getenv
	t.Cleanup(func() { getenv = orig })
	env := map[string]string{"SET": "value", "EMPTY": ""}
	getenv = func(k string) string { return env[k] }

	tests := []struct {
		key, def, want string
	}{
		{"SET", "default", "value"},
		{"EMPTY", "default", "default"},
		{"MISSING", "default", "default"},
	}
	for _, tt := range tests {
		if got := getenvDefault(tt.key, tt.def); got != tt.want {
			t.Errorf("getenvDefault(%s) = %s, want %s", tt.key, got, tt.want)
		}
	}
}

func TestRunRejectsBadLogFormat(t *testing.T) {
	err := Run(context.Background(), Options{
		DataDir:   t.TempDir(),
		HTTPAddr:  "127.0.0.1:0",
		GRPCAddr:  "127.0.0.1:0",
		Config:    cfgpkg.Default(),
		LogFormat: "xml",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

// TestRunServesAndFlushesOnShutdown starts the full server, publishes over
// HTTP, stops it and checks the message is in the store afterwards.
func TestRunServesAndFlushesOnShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dataDir := t.TempDir()

	addrs := make(chan net.Addr, 1)
	orig := started
	t.Cleanup(func() { started = orig })
	started = func(httpAddr, _ net.Addr) { addrs <- httpAddr }

	cfg := cfgpkg.Default()
	cfg.FlushIntervalMs = 60_000
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Options{
			DataDir:   dataDir,
			HTTPAddr:  "127.0.0.1:0",
			GRPCAddr:  "127.0.0.1:0",
			Fsync:     pebblestore.FsyncModeNever,
			Config:    cfg,
			LogLevel:  "error",
			LogFormat: "json",
		})
	}()

	var base string
	select {
	case a := <-addrs:
		base = "http://" + a.String()
	case err := <-done:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Post(base+"/queue/publish/orders", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "Successfully published" {
		t.Fatalf("publish: %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	rt, err := runtime.Open(runtime.Options{DataDir: filepath.Join(dataDir, "store"), Config: cfg})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt.Close()
	msg, err := rt.Queues().Consume("orders")
	if err != nil || string(msg) != "hello" {
		t.Fatalf("after restart got %q err %v", msg, err)
	}
}
