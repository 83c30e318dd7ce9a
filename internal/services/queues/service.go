package queuesvc

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rzbill/pigeon/internal/persist"
	"github.com/rzbill/pigeon/internal/queue"
	"github.com/rzbill/pigeon/internal/runtime"
	"github.com/rzbill/pigeon/internal/status"
	logpkg "github.com/rzbill/pigeon/pkg/log"
)

// Service exposes the topic operations to transports. It validates names and
// payload sizes, classifies failures and logs the ones operators must see.
type Service struct {
	store      *queue.Store
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
		store:      rt.Queues(),
		maxPayload: cfg.PayloadMaxBytes,
		maxName:    cfg.MaxNameBytes,
		logger:     logger.WithComponent("queues"),
	}
}

// Publish appends body to topic.
func (s *Service) Publish(ctx context.Context, topic string, body []byte) error {
	if err := s.checkTopic(topic); err != nil {
		return err
	}
	if s.maxPayload > 0 && len(body) > s.maxPayload {
		return fmt.Errorf("message of %d bytes exceeds %d: %w", len(body), s.maxPayload, status.ErrTooLarge)
	}
	err := s.store.Publish(topic, body)
	if err != nil {
		s.report(ctx, "publish", topic, err)
	}
	return err
}

// Consume pops the oldest message of topic.
func (s *Service) Consume(ctx context.Context, topic string) ([]byte, error) {
	if err := s.checkTopic(topic); err != nil {
		return nil, err
	}
	msg, err := s.store.Consume(topic)
	if err != nil {
		s.report(ctx, "consume", topic, err)
		return nil, err
	}
	return msg, nil
}

// Length returns the number of pending messages in topic. Names that could
// never be published report 0 rather than an error.
func (s *Service) Length(ctx context.Context, topic string) (int, error) {
	n, err := s.store.Length(topic)
	if err != nil {
		s.report(ctx, "length", topic, err)
	}
	return n, err
}

// Topics returns every topic with its length. A non-empty filter is a CEL
// expression over `topic` (string) and `length` (int) selecting the topics
// to include.
func (s *Service) Topics(ctx context.Context, filter string) (map[string]int, error) {
	f, err := newTopicFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %v: %w", err, status.ErrInvalidArgument)
	}
	ov, err := s.store.Overview()
	if err != nil {
		s.report(ctx, "topics", "", err)
		return nil, err
	}
	for t, n := range ov {
		if !f.Match(t, n) {
			delete(ov, t)
		}
	}
	return ov, nil
}

func (s *Service) checkTopic(topic string) error {
	switch {
	case topic == "":
		return fmt.Errorf("topic is required: %w", status.ErrInvalidArgument)
	case !utf8.ValidString(topic):
		return fmt.Errorf("topic must be valid UTF-8: %w", status.ErrInvalidArgument)
	case s.maxName > 0 && len(topic) > s.maxName:
		return fmt.Errorf("topic longer than %d bytes: %w", s.maxName, status.ErrInvalidArgument)
	}
	return nil
}

// report logs failures that are not ordinary lookup misses.
func (s *Service) report(ctx context.Context, op, topic string, err error) {
	if status.FromError(err) != status.Internal {
		return
	}
	l := s.logger.WithContext(ctx).With(logpkg.Operation(op), logpkg.Str("topic", topic))
	switch {
	case status.IsFatal(err):
		l.Error("queue store is poisoned", logpkg.Err(err))
	case errors.Is(err, persist.ErrPersistence):
		l.Error("failed to persist", logpkg.Err(err))
	default:
		l.Error("queue operation failed", logpkg.Err(err))
	}
}
