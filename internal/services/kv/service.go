package kvsvc

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rzbill/pigeon/internal/kv"
	"github.com/rzbill/pigeon/internal/persist"
	"github.com/rzbill/pigeon/internal/runtime"
	"github.com/rzbill/pigeon/internal/status"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// Service exposes the key-value operations to transports.
type Service struct {
	store      *kv.Store
	maxPayload int
	maxName    int
	logger     logpkg.Logger
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	cfg := rt.Config()
	return &Service{
		store:      rt.KV(),
		maxPayload: cfg.PayloadMaxBytes,
		maxName:    cfg.MaxNameBytes,
		logger:     logger.WithComponent("kv"),
	}
}

// Set stores value under key.
func (s *Service) Set(ctx context.Context, key string, value []byte) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	if s.maxPayload > 0 && len(value) > s.maxPayload {
		return fmt.Errorf("value of %d bytes exceeds %d: %w", len(value), s.maxPayload, status.ErrTooLarge)
	}
	err := s.store.Set(key, value)
	if err != nil {
		s.report(ctx, "set", key, err)
	}
	return err
}

// Get returns the value stored under key.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkKey(key); err != nil {
		return nil, err
	}
	v, err := s.store.Get(key)
	if err != nil {
		s.report(ctx, "get", key, err)
		return nil, err
	}
	return v, nil
}

// Delete removes key.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.checkKey(key); err != nil {
		return err
	}
	err := s.store.Delete(key)
	if err != nil {
		s.report(ctx, "delete", key, err)
	}
	return err
}

// List returns the sorted keys starting with prefix.
func (s *Service) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.store.Keys(prefix)
	if err != nil {
		s.report(ctx, "list", prefix, err)
		return nil, err
	}
	return keys, nil
}

func (s *Service) checkKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("key is required: %w", status.ErrInvalidArgument)
	case !utf8.ValidString(key):
		return fmt.Errorf("key must be valid UTF-8: %w", status.ErrInvalidArgument)
	case s.maxName > 0 && len(key) > s.maxName:
		return fmt.Errorf("key longer than %d bytes: %w", s.maxName, status.ErrInvalidArgument)
	}
	return nil
}

func (s *Service) report(ctx context.Context, op, key string, err error) {
	if status.FromError(err) != status.Internal {
		return
	}
	l := s.logger.WithContext(ctx).With(logpkg.Operation(op), logpkg.Str("key", key))
	switch {
	case status.IsFatal(err):
		l.Error("kv store is poisoned", logpkg.Err(err))
	case errors.Is(err, persist.ErrPersistence):
		l.Error("failed to persist", logpkg.Err(err))
	default:
		l.Error("kv operation failed", logpkg.Err(err))
	}
}
