package serverrun

import (
	"context"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/pigeon/internal/config"
	"github.com/rzbill/pigeon/internal/runtime"
	grpcserver "github.com/rzbill/pigeon/internal/server/grpc"
	httpserver "github.com/rzbill/pigeon/internal/server/http"
	pebblestore "github.com/rzbill/pigeon/internal/storage/pebble"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

// started is called once both listeners are bound. Tests replace it.
var started = func(httpAddr, grpcAddr net.Addr) {}

type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// LogLevel and LogFormat fall back to PIGEON_LOG_LEVEL and
	// PIGEON_LOG_FORMAT, then to info and text.
	LogLevel  string
	LogFormat string
}

// Run loads persisted state, starts the flush scheduler and the gRPC and HTTP
// servers, and blocks until ctx is cancelled. On shutdown the servers stop
// first, then the scheduler performs its final flush, then the store closes.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	logCfg := &logpkg.Config{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
	}
	if logCfg.Level == "" {
		logCfg.Level = getenvDefault("PIGEON_LOG_LEVEL", "info")
	}
	if logCfg.Format == "" {
		logCfg.Format = getenvDefault("PIGEON_LOG_FORMAT", "text")
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		return err
	}
	logpkg.RedirectStdLog(procLogger)

	storeDir := filepath.Join(opts.DataDir, "store")
	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			procLogger.Error("close store", logpkg.Err(err))
		}
	}()

	httpLis, err := net.Listen("tcp", opts.HTTPAddr)
	if err != nil {
		return err
	}
	grpcLis, err := net.Listen("tcp", opts.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return err
	}

	procLogger.Info("Starting Pigeon server",
		logpkg.Str("grpc", grpcLis.Addr().String()),
		logpkg.Str("http", httpLis.Addr().String()),
		logpkg.Str("data_dir", storeDir),
		logpkg.Duration("flush_interval", rt.Flusher().Interval()),
		logpkg.Str("queue_encoding", rt.Config().QueueEncoding),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		rt.Flusher().Run(flushCtx)
	}()

	gsrv := grpcserver.New(rt, procLogger)
	hsrv := httpserver.New(rt, procLogger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gsrv.Serve(sctx, grpcLis); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc error", logpkg.Err(err))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := hsrv.Serve(sctx, httpLis); err != nil && sctx.Err() == nil {
			procLogger.Error("http error", logpkg.Err(err))
		}
	}()

	started(httpLis.Addr(), grpcLis.Addr())

	<-sctx.Done()
	procLogger.Info("Shutting down")
	// Servers stop before the final flush so no request mutates state after it.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	stopFlush()
	<-flushDone
	return nil
}
