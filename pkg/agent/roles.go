package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/neuroplastio/neio-split/indicator"
	"github.com/neuroplastio/neio-split/internal/configsvc"
	"github.com/neuroplastio/neio-split/internal/dispatch"
	"github.com/neuroplastio/neio-split/internal/hidsvc"
	"github.com/neuroplastio/neio-split/internal/indicatorsvc"
	"github.com/neuroplastio/neio-split/internal/linksvc"
	"github.com/neuroplastio/neio-split/internal/scansvc"
	"github.com/neuroplastio/neio-split/splitapi"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Run starts the agent in the configured role and blocks until the context is cancelled.
// Agent startup will fail if the configuration is not valid.
// In case configuration becomes invalid after the startup, it will remain running with the last valid configuration.
func (a *Agent) Run(ctx context.Context) error {
	switch a.split.Role {
	case RolePeer:
		return a.runPeer(ctx)
	default:
		source, err := hidsvc.OpenSource(a.log.Named("input"), a.split.Input)
		if err != nil {
			return fmt.Errorf("failed to open keyboard: %w", err)
		}
		var link splitapi.Link
		if a.split.Capabilities.Remote {
			link = linksvc.NewWebsocketLink(a.log.Named("link"), a.split.Link.Peer,
				linksvc.WithName(a.split.Name),
				linksvc.WithQueueSize(a.split.Link.Queue),
			)
		}
		err = a.runHalf(ctx, source, link, nil)
		return multierr.Append(err, source.Close())
	}
}

// Replay runs a half from a script against an in-process peer, which logs what it receives.
func (a *Agent) Replay(ctx context.Context, script scansvc.Script) error {
	peerQueue := make(chan indicator.Command, a.split.LocalQueue)
	peerDriver, err := a.drivers.New("log", nil)
	if err != nil {
		return err
	}
	peerIndicator := indicatorsvc.New(a.log.Named("peer.indicator"), peerDriver, peerQueue)
	receiver := linksvc.NewReceiver(a.log.Named("peer"),
		linksvc.WithIndicatorSink(peerQueue),
		linksvc.WithReportWriter(newReportLogger(a.log.Named("peer.host"))),
	)
	loopback := linksvc.NewLoopback(a.log.Named("loopback"), receiver, a.split.Link.Queue)

	a.split.Capabilities.Remote = true
	flush := splitapi.HookFunc(func(ctx context.Context, state *splitapi.State) bool {
		loopback.Flush(ctx)
		return true
	})
	err = a.runHalf(ctx, scansvc.NewScriptSource(script), loopback, flush, peerIndicator)
	a.log.Info("Replay finished", zap.Any("peer", receiver.Stats()))
	return err
}

type linkService interface {
	splitapi.Link
	service
}

func (a *Agent) runHalf(ctx context.Context, source scansvc.Source, link splitapi.Link, after splitapi.Hook, background ...service) error {
	mapper, err := a.split.Mapper()
	if err != nil {
		return err
	}
	caps := a.split.Capabilities
	var opts []dispatch.Option
	if caps.Local {
		queue := make(chan indicator.Command, a.split.LocalQueue)
		driver, err := indicatorsvc.NewDriver(a.drivers, a.split.IndicatorDriver)
		if err != nil {
			return err
		}
		opts = append(opts, dispatch.WithLocalSink(queue))
		background = append(background, indicatorsvc.New(a.log.Named("indicator"), driver, queue))
	}
	if caps.Remote {
		opts = append(opts, dispatch.WithLink(link))
		if svc, ok := link.(linkService); ok {
			background = append(background, svc)
		}
	}
	dispatcher, err := dispatch.New(a.log.Named("dispatch"), caps, mapper, opts...)
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	background = append(background, watcher(func(ctx context.Context) error {
		return a.watchIndicators(ctx, dispatcher)
	}))

	var hook splitapi.Hook = dispatcher
	if after != nil {
		hook = splitapi.HookFunc(func(ctx context.Context, state *splitapi.State) bool {
			return dispatcher.OnStateUpdate(ctx, state) && after.OnStateUpdate(ctx, state)
		})
	}
	scan := scansvc.New(a.log.Named("scan"), source, hook, scansvc.WithInterval(time.Duration(a.split.ScanInterval)))
	err = a.run(ctx, scan, background...)
	a.log.Info("Dispatcher stopped", zap.Any("stats", dispatcher.Stats()))
	return err
}

func (a *Agent) runPeer(ctx context.Context) error {
	var background []service
	var opts []linksvc.ReceiverOption
	if a.split.Capabilities.Local {
		queue := make(chan indicator.Command, a.split.LocalQueue)
		driver, err := indicatorsvc.NewDriver(a.drivers, a.split.IndicatorDriver)
		if err != nil {
			return err
		}
		opts = append(opts, linksvc.WithIndicatorSink(queue))
		background = append(background, indicatorsvc.New(a.log.Named("indicator"), driver, queue))
	}
	var reports splitapi.ReportWriter = newReportLogger(a.log.Named("host"))
	if a.split.Uhid.Enabled {
		output, err := hidsvc.NewOutput(a.log.Named("uhid"), a.split.Uhid)
		if err != nil {
			return err
		}
		defer output.Close()
		reports = output
		background = append(background, output)
	}
	opts = append(opts, linksvc.WithReportWriter(reports))
	receiver := linksvc.NewReceiver(a.log.Named("receiver"), opts...)

	server := linksvc.NewServer(a.log.Named("link"), a.split.Link.Listen, receiver,
		linksvc.WithPeerRegistry(a.peers),
		linksvc.WithServerQueueSize(a.split.Link.Queue),
	)
	background = append(background, watcher(a.logPeerEvents))
	err := a.run(ctx, server, background...)
	a.log.Info("Receiver stopped", zap.Any("stats", receiver.Stats()))
	return err
}

type watcher func(ctx context.Context) error

func (w watcher) Start(ctx context.Context) error {
	return w(ctx)
}

// watchIndicators swaps the indicator table of the dispatcher whenever split.yml changes.
// An invalid table is logged and the previous one stays in use.
func (a *Agent) watchIndicators(ctx context.Context, d *dispatch.Dispatcher) error {
	select {
	case <-ctx.Done():
		return nil
	case <-a.configSvc.Ready():
	}
	_, err := configsvc.Register(a.configSvc, a.config.SplitConfig, DefaultSplitConfig(), func(cfg SplitConfig, err error) {
		if err != nil {
			a.log.Error("failed to reload config", zap.Error(err))
			return
		}
		mapper, err := cfg.Mapper()
		if err != nil {
			a.log.Error("failed to reload indicators", zap.Error(err))
			return
		}
		d.SetMapper(mapper)
		a.log.Info("Indicator table reloaded")
	})
	if err != nil {
		a.log.Warn("Config reload disabled", zap.Error(err))
	}
	return nil
}

func (a *Agent) logPeerEvents(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-a.peerBus.Ready():
	}
	events := a.peerBus.Subscribe(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-events:
			a.log.Info("Peer "+msg.Message.Type.String(), zap.String("peer", msg.Key), zap.Time("firstSeenAt", msg.Message.Peer.FirstSeenAt))
		}
	}
}
