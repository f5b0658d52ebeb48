package extension

import (
	autophage "github.com/statusdothealth/autophage"
	"github.com/statusdothealth/autophage/auth"
	"github.com/statusdothealth/autophage/plugin"
	"github.com/statusdothealth/autophage/reservoir"
	"github.com/statusdothealth/autophage/store"
)

// Option configures the autophage Forge extension.
type Option func(*Extension)

// WithStore sets the store for the protocol core.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithProtocolOption passes an autophage.Option through to the underlying core.
func WithProtocolOption(opt autophage.Option) Option {
	return func(e *Extension) {
		e.protocolOpts = append(e.protocolOpts, opt)
	}
}

// WithPlugin registers a protocol plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.protocolOpts = append(e.protocolOpts, autophage.WithPlugin(p))
	}
}

// WithAuthorizer sets the capability authorizer for the protocol core.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(e *Extension) {
		e.protocolOpts = append(e.protocolOpts, autophage.WithAuthorizer(a))
	}
}

// WithMarketData sets the market data provider for metabolic pricing.
func WithMarketData(m reservoir.MarketDataProvider) Option {
	return func(e *Extension) {
		e.protocolOpts = append(e.protocolOpts, autophage.WithMarketData(m))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration and seeding on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithServicePrincipal sets the principal the reservoir acts as when it
// calls into the ledger.
func WithServicePrincipal(name string) Option {
	return func(e *Extension) { e.config.ServicePrincipal = name }
}

// WithOpportunisticBatch caps how many pending claims a submission may
// settle inline.
func WithOpportunisticBatch(n int) Option {
	return func(e *Extension) { e.config.OpportunisticBatch = n }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
