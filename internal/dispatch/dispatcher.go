// Package dispatch turns per-tick keyboard state into indicator commands and delivers
// changed commands to the local indicator driver and to the peer over the split link.
package dispatch

import (
	"context"
	"errors"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Config is the capability set of a keyboard half.
type Config struct {
	// Local enables delivery to an indicator driver in the same process.
	Local bool `json:"local"`
	// Remote enables delivery of indicator commands over the split link.
	Remote bool `json:"remote"`
	// ForwardReports additionally forwards every tick's HID reports over the split link (dongle setups).
	ForwardReports bool `json:"forwardReports"`
}

type dispatcherOptions struct {
	local chan<- indicator.Command
	link  splitapi.Link
}

type Option func(*dispatcherOptions)

// WithLocalSink sets the sending end of the indicator driver queue.
func WithLocalSink(ch chan<- indicator.Command) Option {
	return func(o *dispatcherOptions) {
		o.local = ch
	}
}

func WithLink(link splitapi.Link) Option {
	return func(o *dispatcherOptions) {
		o.link = link
	}
}

// Dispatcher implements splitapi.Hook. OnStateUpdate must be called from a single goroutine:
// the change gate is owned by the tick loop.
type Dispatcher struct {
	log    *zap.Logger
	config Config
	mapper *atomic.Pointer[indicator.Mapper]
	gate   indicator.Gate

	local  *localSink
	remote *remoteSink
	stats  stats
}

var _ splitapi.Hook = (*Dispatcher)(nil)

func New(log *zap.Logger, config Config, mapper *indicator.Mapper, opts ...Option) (*Dispatcher, error) {
	var options dispatcherOptions
	for _, opt := range opts {
		opt(&options)
	}
	if mapper == nil {
		mapper = indicator.NewDefaultMapper()
	}
	d := &Dispatcher{
		log:    log,
		config: config,
		mapper: atomic.NewPointer(mapper),
	}
	if config.Local {
		if options.local == nil {
			return nil, errors.New("local delivery enabled without a local sink")
		}
		d.local = &localSink{log: log, ch: options.local, stats: &d.stats}
	}
	if config.ForwardReports && !config.Remote {
		return nil, errors.New("report forwarding requires remote delivery")
	}
	if config.Remote {
		if options.link == nil {
			return nil, errors.New("remote delivery enabled without a link")
		}
		d.remote = &remoteSink{log: log, link: options.link, stats: &d.stats}
	}
	return d, nil
}

// SetMapper replaces the layer table. The next tick maps with the new table; the gate is kept,
// so only commands that actually change are dispatched.
func (d *Dispatcher) SetMapper(mapper *indicator.Mapper) {
	d.mapper.Store(mapper)
}

func (d *Dispatcher) OnStateUpdate(ctx context.Context, state *splitapi.State) bool {
	if state == nil {
		state = &splitapi.State{}
	}
	d.stats.ticks.Inc()

	if d.config.ForwardReports {
		d.remote.forwardReports(ctx, state)
	}

	cmd := d.mapper.Load().Map(state)
	if !d.gate.Admit(cmd) {
		return true
	}
	d.stats.admitted.Inc()
	d.log.Debug("Indicator changed", zap.Uint32("layer", state.Layer), zap.Stringer("command", cmd))

	if d.local != nil {
		d.local.deliver(cmd)
	}
	if d.remote != nil {
		d.remote.deliver(ctx, cmd)
	}
	return true
}

func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}
