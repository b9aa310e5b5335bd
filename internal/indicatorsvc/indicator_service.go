// Package indicatorsvc renders indicator commands on the local backlight driver.
package indicatorsvc

import (
	"context"

	"github.com/neuroplastio/neio-split/indicator"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Driver renders commands. Apply is only called from the service goroutine.
type Driver interface {
	Apply(cmd indicator.Command) error
	Close() error
}

// Service owns the receiving end of the indicator queue. Commands equal to the one currently shown
// are not applied again, which makes duplicate deliveries from the link harmless.
type Service struct {
	log    *zap.Logger
	driver Driver
	queue  <-chan indicator.Command
	ready  chan struct{}

	current indicator.Command
	applied bool
}

func New(log *zap.Logger, driver Driver, queue <-chan indicator.Command) *Service {
	return &Service{
		log:    log,
		driver: driver,
		queue:  queue,
		ready:  make(chan struct{}),
	}
}

func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Start consumes commands until ctx is done. Commands already queued at that point are still
// applied, then the indicator is reset since its state does not survive the process.
func (s *Service) Start(ctx context.Context) error {
	close(s.ready)
	s.log.Info("Indicator service started")
	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case cmd := <-s.queue:
			s.apply(cmd)
		}
	}
}

func (s *Service) apply(cmd indicator.Command) {
	if s.applied && s.current == cmd {
		s.log.Debug("Indicator unchanged", zap.Stringer("command", cmd))
		return
	}
	if err := s.driver.Apply(cmd); err != nil {
		s.log.Error("failed to apply indicator command", zap.Stringer("command", cmd), zap.Error(err))
		return
	}
	s.current = cmd
	s.applied = true
}

func (s *Service) shutdown() error {
	for pending := true; pending; {
		select {
		case cmd := <-s.queue:
			s.apply(cmd)
		default:
			pending = false
		}
	}
	var err error
	if s.applied && !s.current.IsReset() {
		err = multierr.Append(err, s.driver.Apply(indicator.Reset()))
	}
	return multierr.Append(err, s.driver.Close())
}
