package extension

// Config holds the autophage extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.autophage" or "autophage" keys).
type Config struct {
	// DisableMigrate prevents auto-migration and seeding on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// ServicePrincipal is the principal the reservoir acts as when it
	// calls into the ledger (default: "reservoir"). The application's
	// authorizer must grant it the minter and reservoir capabilities.
	ServicePrincipal string `json:"service_principal" mapstructure:"service_principal" yaml:"service_principal"`

	// OpportunisticBatch caps how many pending claims a submission may
	// settle inline before handing off to explicit processing (default: 10).
	OpportunisticBatch int `json:"opportunistic_batch" mapstructure:"opportunistic_batch" yaml:"opportunistic_batch"`

	// DepositRatioPPM is the fraction of cumulative deposits the reserve
	// must retain, in parts per million (default: 200000, i.e. 20%).
	DepositRatioPPM int64 `json:"deposit_ratio_ppm" mapstructure:"deposit_ratio_ppm" yaml:"deposit_ratio_ppm"`

	// MonthsCoverage is how many months of rolling settlement outflow the
	// reserve must cover (default: 3).
	MonthsCoverage int64 `json:"months_coverage" mapstructure:"months_coverage" yaml:"months_coverage"`

	// RevenueRatioPPM is the fraction of declared annual revenue the
	// reserve must retain, in parts per million (default: 50000, i.e. 5%).
	RevenueRatioPPM int64 `json:"revenue_ratio_ppm" mapstructure:"revenue_ratio_ppm" yaml:"revenue_ratio_ppm"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServicePrincipal:   "reservoir",
		OpportunisticBatch: 10,
		DepositRatioPPM:    200_000,
		MonthsCoverage:     3,
		RevenueRatioPPM:    50_000,
	}
}
