// Package extension provides the Forge extension adapter for autophage.
//
// It implements the forge.Extension interface to integrate the autophage
// protocol into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.autophage" or
// "autophage" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	autophage "github.com/statusdothealth/autophage"
	"github.com/statusdothealth/autophage/reservoir"
	"github.com/statusdothealth/autophage/store"
	"github.com/statusdothealth/autophage/store/memory"
	"github.com/statusdothealth/autophage/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "autophage"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Decaying health-incentive token economy"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the autophage protocol as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	protocol     *autophage.Protocol
	store        store.Store
	protocolOpts []autophage.Option
}

// New creates a new autophage Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Protocol returns the underlying protocol instance.
// This is nil until Register is called.
func (e *Extension) Protocol() *autophage.Protocol { return e.protocol }

// Register implements [forge.Extension]. It loads configuration,
// initializes the protocol core, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildProtocolOpts()

	e.protocol = autophage.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*autophage.Protocol, error) {
		return e.protocol, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.protocol == nil {
		return errors.New("autophage: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.protocol.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.protocol != nil {
		if err := e.protocol.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("autophage: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildProtocolOpts constructs autophage.Option values from the resolved config.
func (e *Extension) buildProtocolOpts() []autophage.Option {
	opts := make([]autophage.Option, 0, len(e.protocolOpts)+1)

	rcfg := reservoir.DefaultConfig()
	if e.config.DepositRatioPPM > 0 {
		rcfg.DepositRatio = types.RatePPM(e.config.DepositRatioPPM)
	}
	if e.config.MonthsCoverage > 0 {
		rcfg.MonthsCoverage = e.config.MonthsCoverage
	}
	if e.config.RevenueRatioPPM > 0 {
		rcfg.RevenueRatio = types.RatePPM(e.config.RevenueRatioPPM)
	}
	if e.config.OpportunisticBatch > 0 {
		rcfg.OpportunisticBatch = e.config.OpportunisticBatch
	}
	if e.config.ServicePrincipal != "" {
		rcfg.ServicePrincipal = e.config.ServicePrincipal
	}
	opts = append(opts, autophage.WithReservoirConfig(rcfg))

	// Append any pass-through protocol options.
	opts = append(opts, e.protocolOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("autophage: configuration is required but not found in config files; " +
				"ensure 'extensions.autophage' or 'autophage' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("autophage: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("service_principal", e.config.ServicePrincipal),
		forge.F("opportunistic_batch", e.config.OpportunisticBatch),
		forge.F("deposit_ratio_ppm", e.config.DepositRatioPPM),
		forge.F("months_coverage", e.config.MonthsCoverage),
		forge.F("revenue_ratio_ppm", e.config.RevenueRatioPPM),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.autophage" first (namespaced pattern).
	if cm.IsSet("extensions.autophage") {
		if err := cm.Bind("extensions.autophage", &cfg); err == nil {
			e.Logger().Debug("autophage: loaded config from file",
				forge.F("key", "extensions.autophage"),
			)
			return cfg, true
		}
		e.Logger().Warn("autophage: failed to bind extensions.autophage config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "autophage" key.
	if cm.IsSet("autophage") {
		if err := cm.Bind("autophage", &cfg); err == nil {
			e.Logger().Debug("autophage: loaded config from file",
				forge.F("key", "autophage"),
			)
			return cfg, true
		}
		e.Logger().Warn("autophage: failed to bind autophage config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.ServicePrincipal == "" {
		cfg.ServicePrincipal = defaults.ServicePrincipal
	}
	if cfg.OpportunisticBatch == 0 {
		cfg.OpportunisticBatch = defaults.OpportunisticBatch
	}
	if cfg.DepositRatioPPM == 0 {
		cfg.DepositRatioPPM = defaults.DepositRatioPPM
	}
	if cfg.MonthsCoverage == 0 {
		cfg.MonthsCoverage = defaults.MonthsCoverage
	}
	if cfg.RevenueRatioPPM == 0 {
		cfg.RevenueRatioPPM = defaults.RevenueRatioPPM
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.ServicePrincipal == "" && programmaticConfig.ServicePrincipal != "" {
		yamlConfig.ServicePrincipal = programmaticConfig.ServicePrincipal
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.OpportunisticBatch == 0 && programmaticConfig.OpportunisticBatch != 0 {
		yamlConfig.OpportunisticBatch = programmaticConfig.OpportunisticBatch
	}
	if yamlConfig.DepositRatioPPM == 0 && programmaticConfig.DepositRatioPPM != 0 {
		yamlConfig.DepositRatioPPM = programmaticConfig.DepositRatioPPM
	}
	if yamlConfig.MonthsCoverage == 0 && programmaticConfig.MonthsCoverage != 0 {
		yamlConfig.MonthsCoverage = programmaticConfig.MonthsCoverage
	}
	if yamlConfig.RevenueRatioPPM == 0 && programmaticConfig.RevenueRatioPPM != 0 {
		yamlConfig.RevenueRatioPPM = programmaticConfig.RevenueRatioPPM
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
