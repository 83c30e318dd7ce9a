package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/pigeon/internal/runtime"
	"github.com/rzbill/pigeon/internal/server/http/controllers"
	kvsvc "github.com/rzbill/pigeon/internal/services/kv"
	queuesvc "github.com/rzbill/pigeon/internal/services/queues"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// ShutdownTimeout bounds how long in-flight requests may run after the
// serve context is cancelled.
const ShutdownTimeout = 5 * time.Second

// Server serves the queue, key-value and admin routes over HTTP.
type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New builds the HTTP gateway over rt. A nil logger uses the default logger.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	mux := http.NewServeMux()
	registry := controllers.NewControllerRegistry(
		rt,
		queuesvc.NewWithLogger(rt, logger),
		kvsvc.NewWithLogger(rt, logger),
	)
	registry.RegisterAllRoutes(mux)

	httpLog := logger.WithComponent("http")
	var h http.Handler = mux
	h = limitBody(int64(rt.Config().PayloadMaxBytes), h)
	h = accessLog(httpLog, h)
	h = requestID(h)
	h = cors(h)

	return &Server{
		rt:     rt,
		logger: httpLog,
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(logpkg.NewSlogHandler(httpLog), slog.LevelWarn),
		},
	}
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	s.logger.Info("http listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(cctx); err != nil {
			s.logger.Warn("http shutdown", logpkg.Err(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound address once serving has started.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
