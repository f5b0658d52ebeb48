package autophage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/journal"
	"github.com/statusdothealth/autophage/ledger"
	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/reservoir"
	"github.com/statusdothealth/autophage/store"
	"github.com/statusdothealth/autophage/types"
)

// Protocol is the autophage economic core: the decay ledger and the
// settlement reservoir wired to one store, one plugin registry and one
// authorizer.
type Protocol struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	authz   auth.Authorizer
	now     func() time.Time

	reservoirCfg reservoir.Config
	market       reservoir.MarketDataProvider

	ledger    *ledger.Ledger
	reservoir *reservoir.Reservoir
}

// New creates a Protocol instance. Call Start before use.
func New(s store.Store, opts ...Option) *Protocol {
	p := &Protocol{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		now:          time.Now,
		reservoirCfg: reservoir.DefaultConfig(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.authz == nil {
		// Secure default: only the reservoir's internal calls into the
		// ledger are authorized. Operators grant their own principals
		// via WithAuthorizer.
		p.authz = auth.StaticGrants{}.
			Grant(p.reservoirCfg.ServicePrincipal, auth.CapMinter, auth.CapReservoir)
	}

	p.ledger = ledger.New(s,
		ledger.WithAuthorizer(p.authz),
		ledger.WithHooks(p.plugins),
		ledger.WithLogger(p.logger),
		ledger.WithClock(p.now),
	)
	p.reservoir = reservoir.New(s, p.ledger,
		reservoir.WithAuthorizer(p.authz),
		reservoir.WithHooks(p.plugins),
		reservoir.WithLogger(p.logger),
		reservoir.WithClock(p.now),
		reservoir.WithConfig(p.reservoirCfg),
		reservoir.WithMarketData(p.market),
	)

	return p
}

// Option configures a Protocol instance.
type Option func(*Protocol)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Protocol) {
		p.logger = logger
		p.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(pl plugin.Plugin) Option {
	return func(p *Protocol) {
		_ = p.plugins.Register(pl) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthorizer sets the capability authorizer. The authorizer must also
// grant the reservoir's service principal the minter and reservoir
// capabilities, or rewards and decay sweeps will fail.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(p *Protocol) { p.authz = a }
}

// WithClock overrides the time source for both components. Test use.
func WithClock(now func() time.Time) Option {
	return func(p *Protocol) { p.now = now }
}

// WithMarketData sets the market data provider for metabolic pricing.
func WithMarketData(m reservoir.MarketDataProvider) Option {
	return func(p *Protocol) { p.market = m }
}

// WithReservoirConfig replaces the solvency configuration.
func WithReservoirConfig(cfg reservoir.Config) Option {
	return func(p *Protocol) { p.reservoirCfg = cfg }
}

// Start migrates the store, seeds missing category configurations and the
// reserve singleton, and initializes plugins.
func (p *Protocol) Start(ctx context.Context) error {
	if err := p.store.Migrate(ctx); err != nil {
		return err
	}

	for _, cfg := range ledger.DefaultCategoryConfigs() {
		_, err := p.store.GetCategory(ctx, cfg.Category)
		if errors.Is(err, ledger.ErrCategoryNotFound) {
			cfg.Entity = types.NewEntity()
			if err := p.store.PutCategory(ctx, cfg); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	if _, err := p.store.GetReserve(ctx); errors.Is(err, reservoir.ErrReserveNotFound) {
		if err := p.store.PutReserve(ctx, &reservoir.ReserveChamber{Entity: types.NewEntity()}); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	p.plugins.EmitInit(ctx, p)
	p.logger.Info("autophage protocol started", "plugins", p.plugins.Count())
	return nil
}

// Stop shuts down plugins and closes the store.
func (p *Protocol) Stop() error {
	p.plugins.EmitShutdown(context.Background())
	return p.store.Close()
}

// Pause freezes every mutating operation on both components. Requires the
// pause capability. Reads remain available.
func (p *Protocol) Pause(ctx context.Context) error {
	return p.setPaused(ctx, true)
}

// Resume lifts a pause. Requires the pause capability.
func (p *Protocol) Resume(ctx context.Context) error {
	return p.setPaused(ctx, false)
}

func (p *Protocol) setPaused(ctx context.Context, paused bool) error {
	if err := auth.Require(ctx, p.authz, auth.CapPause); err != nil {
		return err
	}
	p.ledger.SetPaused(paused)
	p.reservoir.SetPaused(paused)
	p.logger.Info("pause state changed", "paused", paused)
	p.plugins.EmitPauseChanged(ctx, paused)
	return nil
}

// Paused reports whether the protocol is paused.
func (p *Protocol) Paused() bool { return p.ledger.Paused() }

// Ledger returns the decay ledger component.
func (p *Protocol) Ledger() *ledger.Ledger { return p.ledger }

// Reservoir returns the settlement reservoir component.
func (p *Protocol) Reservoir() *reservoir.Reservoir { return p.reservoir }

// Plugins returns the plugin registry.
func (p *Protocol) Plugins() *plugin.Registry { return p.plugins }

// Journal queries the append-only economic event record.
func (p *Protocol) Journal(ctx context.Context, opts journal.ListOpts) ([]*journal.Event, error) {
	return p.store.ListEvents(ctx, opts)
}
