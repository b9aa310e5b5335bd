package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/neuroplastio/neio-split/internal/configsvc"
	"github.com/neuroplastio/neio-split/internal/indicatorsvc"
	"github.com/neuroplastio/neio-split/internal/linksvc"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Agent struct {
	config Config
	split  SplitConfig

	log       *zap.Logger
	db        *badger.DB
	configSvc *configsvc.Service
	peerBus   *linksvc.PeerBus
	peers     *linksvc.PeerRegistry
	drivers   *indicatorsvc.DriverRegistry
}

type agentOptions struct {
	logger *zap.Logger
	out    io.Writer
}

type Option func(*agentOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *agentOptions) {
		o.logger = logger
	}
}

// WithOutput sets where terminal indicator drivers draw.
func WithOutput(out io.Writer) Option {
	return func(o *agentOptions) {
		o.out = out
	}
}

func NewAgent(config Config, opts ...Option) (*Agent, error) {
	options := agentOptions{out: os.Stdout}
	for _, opt := range opts {
		opt(&options)
	}

	c := dig.New()
	providers := []any{
		func() Config { return config },
		func() (*zap.Logger, error) {
			if options.logger != nil {
				return options.logger, nil
			}
			return newLogger(config)
		},
		openDB,
		loadSplitConfig,
		func(log *zap.Logger) *configsvc.Service {
			return configsvc.New(log.Named("config"))
		},
		func(log *zap.Logger) *linksvc.PeerBus {
			return linksvc.NewPeerBus(log.Named("peers"))
		},
		func(log *zap.Logger, db *badger.DB, bus *linksvc.PeerBus) *linksvc.PeerRegistry {
			return linksvc.NewPeerRegistry(log.Named("peers"), db, time.Now, bus)
		},
		func(log *zap.Logger) *indicatorsvc.DriverRegistry {
			return indicatorsvc.NewDriverRegistry(indicatorsvc.DriverProvider{
				Log: log.Named("indicator"),
				Out: options.out,
			})
		},
		newAgent,
	}
	for _, provider := range providers {
		if err := c.Provide(provider); err != nil {
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}
	var a *Agent
	err := c.Invoke(func(agent *Agent) {
		a = agent
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build agent: %w", err)
	}
	return a, nil
}

type agentParams struct {
	dig.In

	Config    Config
	Split     SplitConfig
	Log       *zap.Logger
	DB        *badger.DB
	ConfigSvc *configsvc.Service
	PeerBus   *linksvc.PeerBus
	Peers     *linksvc.PeerRegistry
	Drivers   *indicatorsvc.DriverRegistry
}

func newAgent(p agentParams) *Agent {
	return &Agent{
		config:    p.Config,
		split:     p.Split,
		log:       p.Log,
		db:        p.DB,
		configSvc: p.ConfigSvc,
		peerBus:   p.PeerBus,
		peers:     p.Peers,
		drivers:   p.Drivers,
	}
}

func openDB(config Config, log *zap.Logger) (*badger.DB, error) {
	dbOptions := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))
	dbOptions.Logger = &badgerLogger{l: log.Named("badger")}
	db, err := badger.Open(dbOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return db, nil
}

func loadSplitConfig(config Config) (SplitConfig, error) {
	split, err := configsvc.LoadOrInit(config.SplitConfig, DefaultSplitConfig())
	if err != nil {
		return SplitConfig{}, err
	}
	if err := split.Validate(); err != nil {
		return SplitConfig{}, fmt.Errorf("invalid %s: %w", config.SplitConfig, err)
	}
	return split, nil
}

func (a *Agent) Close() error {
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger db: %w", err)
	}
	return nil
}

func (a *Agent) Split() SplitConfig {
	return a.split
}

func (a *Agent) ListPeers() ([]linksvc.Peer, error) {
	return a.peers.List()
}

type service interface {
	Start(ctx context.Context) error
}

// run starts the background services and the main one, and blocks until the main service
// returns or the context is cancelled.
func (a *Agent) run(ctx context.Context, main service, background ...service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	background = append([]service{a.configSvc, a.peerBus}, background...)
	for _, svc := range background {
		svc := svc
		group.Go(func() error {
			return svc.Start(groupCtx)
		})
	}
	group.Go(func() error {
		defer cancel()
		return main.Start(groupCtx)
	})

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("agent failed: %w", err)
	}
	return nil
}
