// Package scansvc drives the per-tick state hook from a scan source at a fixed interval.
package scansvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/zap"
)

// ErrExhausted is returned by finite sources once every tick has been produced.
var ErrExhausted = errors.New("source exhausted")

// Source produces the keyboard state of one scan tick.
type Source interface {
	Scan(ctx context.Context) (*splitapi.State, error)
}

type SourceFunc func(ctx context.Context) (*splitapi.State, error)

func (f SourceFunc) Scan(ctx context.Context) (*splitapi.State, error) {
	return f(ctx)
}

var defaultOptions = serviceOptions{
	interval: 10 * time.Millisecond,
}

type serviceOptions struct {
	interval time.Duration
}

type Option func(*serviceOptions)

func WithInterval(d time.Duration) Option {
	return func(o *serviceOptions) {
		o.interval = d
	}
}

// Service calls the hook once per tick, from a single goroutine.
type Service struct {
	log     *zap.Logger
	options serviceOptions
	source  Source
	hook    splitapi.Hook
	ready   chan struct{}
}

func New(log *zap.Logger, source Source, hook splitapi.Hook, opts ...Option) *Service {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	return &Service{
		log:     log,
		options: options,
		source:  source,
		hook:    hook,
		ready:   make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start blocks until the context is cancelled, the source is exhausted or the hook asks to stop.
func (s *Service) Start(ctx context.Context) error {
	if s.options.interval <= 0 {
		return fmt.Errorf("invalid scan interval: %s", s.options.interval)
	}
	ticker := time.NewTicker(s.options.interval)
	defer ticker.Stop()
	close(s.ready)
	s.log.Info("Scan service started", zap.Duration("interval", s.options.interval))
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		state, err := s.source.Scan(ctx)
		switch {
		case errors.Is(err, ErrExhausted):
			s.log.Info("Scan source exhausted")
			return nil
		case err != nil:
			s.log.Error("failed to scan", zap.Error(err))
			continue
		}
		if !s.hook.OnStateUpdate(ctx, state) {
			s.log.Info("Hook stopped the scan loop")
			return nil
		}
	}
}
