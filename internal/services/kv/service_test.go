package kvsvc

import (
	"context"
	"errors"
	"strings"
	"testing"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/kv"
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

func TestSetGetDelete(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	ctx := context.Background()

	if err := svc.Set(ctx, "color", []byte("red")); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := svc.Get(ctx, "color")
	if err != nil || string(v) != "red" {
		t.Fatalf("get %q err %v", v, err)
	}
	if err := svc.Delete(ctx, "color"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "color"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := svc.Get(ctx, "color"); status.FromError(err) != status.NotFound {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestList(t *testing.T) {
	svc := newServiceForTest(t, cfgpkg.Default())
	ctx := context.Background()
	for _, k := range []string{"user:2", "user:1", "team:1"} {
		if err := svc.Set(ctx, k, nil); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	keys, err := svc.List(ctx, "user:")
	if err != nil || strings.Join(keys, ",") != "user:1,user:2" {
		t.Fatalf("list %v err %v", keys, err)
	}
}

func TestValidation(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.PayloadMaxBytes = 2
	cfg.MaxNameBytes = 4
	svc := newServiceForTest(t, cfg)
	ctx := context.Background()

	if got := status.FromError(svc.Set(ctx, "", nil)); got != status.InvalidArgument {
		t.Fatalf("empty key: %v", got)
	}
	if got := status.FromError(svc.Set(ctx, "toolong", nil)); got != status.InvalidArgument {
		t.Fatalf("long key: %v", got)
	}
	if got := status.FromError(svc.Set(ctx, "k", []byte("abc"))); got != status.TooLarge {
		t.Fatalf("large value: %v", got)
	}
	if _, err := svc.Get(ctx, ""); status.FromError(err) != status.InvalidArgument {
		t.Fatalf("get empty key: %v", err)
	}
}
