package queuesvc

import (
	"context"
	"errors"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/queue"
	"github.com/rzbill/pigeon/internal/runtime"
	"github.com/rzbill/pigeon/internal/status"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

func newServiceForTest(t *testing.T, cfg cfgpkg.Config) *Service {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return NewWithLogger(rt, logpkg.NewNopLogger())
}

func TestPublishConsumeLength(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	ctx := context.Background()

	if err := svc.Publish(ctx, "orders", []byte("a")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := svc.Publish(ctx, "orders", []byte("b")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if n, err := svc.Length(ctx, "orders"); err != nil || n != 2 {
		t.Fatalf("length %d err %v", n, err)
	}
	msg, err := svc.Consume(ctx, "orders")
	if err != nil || string(msg) != "a" {
		t.Fatalf("consume %q err %v", msg, err)
	}
	if n, _ := svc.Length(ctx, "unknown"); n != 0 {
		t.Fatalf("unknown topic length %d", n)
	}
}

func TestConsumeEmptyClassifiesNotFound(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	_, err := svc.Consume(context.Background(), "empty")
	if !errors.Is(err, queue.ErrNotFound) || status.FromError(err) != status.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestValidation(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.PayloadMaxBytes = 4
	cfg.MaxNameBytes = 8
	svc := newServiceForTest(t, cfg)
	ctx := context.Background()

	tests := []struct {
		name  string
		topic string
		body  string
		want  status.Code
	}{
		{"empty topic", "", "x", status.InvalidArgument},
		{"long topic", strings.Repeat("t", 9), "x", status.InvalidArgument},
		{"bad utf8", "\xff", "x", status.InvalidArgument},
		{"large body", "t", "12345", status.TooLarge},
		{"at limit", "t", "1234", status.OK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.FromError(svc.Publish(ctx, tt.topic, []byte(tt.body))); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func TestLongNamesAcceptedByDefault(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	ctx := context.Background()
	topic := strings.Repeat("t", 300)

	if err := svc.Publish(ctx, topic, []byte("m")); err != nil {
		t.Fatalf("publish long topic: %v", err)
	}
	if n, err := svc.Length(ctx, topic); err != nil || n != 1 {
		t.Fatalf("length %d err %v", n, err)
	}
	msg, err := svc.Consume(ctx, topic)
	if err != nil || string(msg) != "m" {
		t.Fatalf("consume %q err %v", msg, err)
	}
}

func TestLengthNeverRejectsNames(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.MaxNameBytes = 8
	svc := newServiceForTest(t, cfg)
	for _, topic := range []string{"", strings.Repeat("t", 9), "\xff"} {
		n, err := svc.Length(context.Background(), topic)
		if err != nil || n != 0 {
			t.Fatalf("length(%q) = %d, %v", topic, n, err)
		}
	}
}

func TestTopicsFilter(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	ctx := context.Background()
	for _, topic := range []string{"orders", "orders", "orders", "audit", "jobs.email"} {
		if err := svc.Publish(ctx, topic, []byte("m")); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	all, err := svc.Topics(ctx, "")
	if err != nil || len(all) != 3 || all["orders"] != 3 {
		t.Fatalf("all topics %v err %v", all, err)
	}
	busy, err := svc.Topics(ctx, "length > 1")
	if err != nil || len(busy) != 1 || busy["orders"] != 3 {
		t.Fatalf("busy topics %v err %v", busy, err)
	}
	jobs, err := svc.Topics(ctx, `topic.startsWith("jobs.")`)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("jobs topics %v err %v", jobs, err)
	}
}

func TestTopicsRejectsBadFilter(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	for _, expr := range []string{"length >", "topic + 1", "length"} {
		_, err := svc.Topics(context.Background(), expr)
		if status.FromError(err) != status.InvalidArgument {
			t.Fatalf("%q: expected InvalidArgument, got %v", expr, err)
		}
	}
}
