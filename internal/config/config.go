package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete conflux configuration
type Config struct {
	Tenant     TenantConfig     `mapstructure:"tenant"`
	Store      StoreConfig      `mapstructure:"store"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Suggest    SuggestConfig    `mapstructure:"suggest"`
	Detection  DetectionConfig  `mapstructure:"detection"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Approval   ApprovalConfig   `mapstructure:"approval"`
	Intake     IntakeConfig     `mapstructure:"intake"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// TenantConfig selects the tenant commands operate on when --tenant is absent
type TenantConfig struct {
	Default string `mapstructure:"default"`
}

// StoreConfig selects the key/value backend holding tenant collections
type StoreConfig struct {
	// Driver is one of: "memory", "file", "sqlite", "postgres"
	Driver string `mapstructure:"driver"`
	// Path is the base directory (file) or database file (sqlite).
	// Empty means a location under DataDir().
	Path string `mapstructure:"path"`
	// DSN is the Postgres connection string. DSNEnv names an env var that
	// overrides it, so secrets stay out of config files.
	DSN    string `mapstructure:"dsn"`
	DSNEnv string `mapstructure:"dsn_env"`
	// Table is the KV table name for sqlite and postgres.
	Table string `mapstructure:"table"`
}

// ResolutionConfig controls the resolution engine
type ResolutionConfig struct {
	// SuggestionTimeoutMs bounds every suggestion-provider call
	SuggestionTimeoutMs int `mapstructure:"suggestion_timeout_ms"`
	// BulkMaxConcurrency caps concurrent resolutions inside one bulk call
	BulkMaxConcurrency int `mapstructure:"bulk_max_concurrency"`
	// Lease is the admission guard: "memory", "file", or "postgres"
	Lease string `mapstructure:"lease"`
	// LeaseDir holds lock files for the file lease. Empty means DataDir()/leases.
	LeaseDir string `mapstructure:"lease_dir"`
	// MergeRules maps a field name to a default merge rule used when a merge
	// strategy carries no rule for the conflict's field
	MergeRules map[string]string `mapstructure:"merge_rules"`
}

// SuggestConfig selects the advisory suggestion provider
type SuggestConfig struct {
	// Provider is one of: "none", "heuristic", "http"
	Provider string `mapstructure:"provider"`
	// Endpoint is the URL the http provider POSTs conflicts to
	Endpoint string `mapstructure:"endpoint"`
	// APIKeyEnv names the env var holding the bearer token for the http provider
	APIKeyEnv string `mapstructure:"api_key_env"`
	// Model is passed through to the http provider when set
	Model string `mapstructure:"model"`
}

// DetectionConfig tunes classification rules
type DetectionConfig struct {
	// ConcurrentWindowSeconds is the maximum gap between server and client
	// modification times for a change to count as a concurrent edit
	ConcurrentWindowSeconds int `mapstructure:"concurrent_window_seconds"`
	// ModuleImpact maps a module name to a business impact
	ModuleImpact map[string]string `mapstructure:"module_impact"`
	// RevenueFields are field names that always carry revenue impact
	RevenueFields []string `mapstructure:"revenue_fields"`
	// PermissionFields are field names whose divergence is a permission conflict
	PermissionFields []string `mapstructure:"permission_fields"`
}

// EscalationConfig controls age-based automatic escalation.
// A max age of 0 disables automatic escalation for that impact.
type EscalationConfig struct {
	RevenueMaxAgeMinutes    int `mapstructure:"revenue_max_age_minutes"`
	ComplianceMaxAgeMinutes int `mapstructure:"compliance_max_age_minutes"`
	OperationsMaxAgeMinutes int `mapstructure:"operations_max_age_minutes"`
	ReportingMaxAgeMinutes  int `mapstructure:"reporting_max_age_minutes"`
	// SweepIntervalSeconds is how often `conflux watch` runs a sweep
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

// ApprovalConfig controls workflow templates
type ApprovalConfig struct {
	// TemplatesDir holds *.yaml workflow templates. Empty disables templates.
	TemplatesDir string `mapstructure:"templates_dir"`
}

// IntakeConfig controls the inbox watcher
type IntakeConfig struct {
	// Dir is the inbox directory watched for *.json change records
	Dir string `mapstructure:"dir"`
	// DebounceMs coalesces bursts of writes to the same file
	DebounceMs int `mapstructure:"debounce_ms"`
}

// NotifyConfig selects the notification sink
type NotifyConfig struct {
	// Sink is one of: "none", "log", "bus"
	Sink string `mapstructure:"sink"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Tenant: TenantConfig{
			Default: "default",
		},
		Store: StoreConfig{
			Driver: "file",
			DSNEnv: "CONFLUX_DATABASE_URL",
			Table:  "conflux_kv",
		},
		Resolution: ResolutionConfig{
			SuggestionTimeoutMs: 2000,
			BulkMaxConcurrency:  8,
			Lease:               "memory",
			MergeRules:          map[string]string{},
		},
		Suggest: SuggestConfig{
			Provider:  "heuristic",
			APIKeyEnv: "CONFLUX_SUGGEST_API_KEY",
		},
		Detection: DetectionConfig{
			ConcurrentWindowSeconds: 5,
			ModuleImpact: map[string]string{
				"finance":    "revenue",
				"billing":    "revenue",
				"sales":      "revenue",
				"compliance": "compliance",
				"audit":      "compliance",
				"legal":      "compliance",
				"hr":         "compliance",
				"inventory":  "operations",
				"operations": "operations",
				"logistics":  "operations",
				"reports":    "reporting",
				"analytics":  "reporting",
			},
			RevenueFields:    []string{"amount", "price", "total", "discount", "credit_limit"},
			PermissionFields: []string{"role", "permissions", "access_level", "owner"},
		},
		Escalation: EscalationConfig{
			RevenueMaxAgeMinutes:    60,
			ComplianceMaxAgeMinutes: 120,
			OperationsMaxAgeMinutes: 0,
			ReportingMaxAgeMinutes:  0,
			SweepIntervalSeconds:    60,
		},
		Intake: IntakeConfig{
			DebounceMs: 50,
		},
		Notify: NotifyConfig{
			Sink: "log",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SuggestionTimeout returns the provider timeout as a time.Duration
func (c *ResolutionConfig) SuggestionTimeout() time.Duration {
	return time.Duration(c.SuggestionTimeoutMs) * time.Millisecond
}

// ConcurrentWindow returns the concurrent-edit window as a time.Duration
func (c *DetectionConfig) ConcurrentWindow() time.Duration {
	return time.Duration(c.ConcurrentWindowSeconds) * time.Second
}

// Debounce returns the intake debounce interval as a time.Duration
func (c *IntakeConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// SweepInterval returns the escalation sweep interval (0 means disabled)
func (c *EscalationConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// MaxAges returns the per-impact age thresholds keyed by impact name.
// Impacts with a zero threshold are omitted.
func (c *EscalationConfig) MaxAges() map[string]time.Duration {
	out := map[string]time.Duration{}
	add := func(impact string, minutes int) {
		if minutes > 0 {
			out[impact] = time.Duration(minutes) * time.Minute
		}
	}
	add("revenue", c.RevenueMaxAgeMinutes)
	add("compliance", c.ComplianceMaxAgeMinutes)
	add("operations", c.OperationsMaxAgeMinutes)
	add("reporting", c.ReportingMaxAgeMinutes)
	return out
}

// ResolvePath returns the store path, defaulting under DataDir per driver.
func (c *StoreConfig) ResolvePath() string {
	if c.Path != "" {
		return c.Path
	}
	switch c.Driver {
	case "sqlite":
		return filepath.Join(DataDir(), "conflux.db")
	default:
		return filepath.Join(DataDir(), "store")
	}
}

// ResolveDSN returns the Postgres DSN, preferring the DSNEnv variable.
func (c *StoreConfig) ResolveDSN() string {
	if c.DSNEnv != "" {
		if v := os.Getenv(c.DSNEnv); v != "" {
			return v
		}
	}
	return c.DSN
}

// ResolveLeaseDir returns the file-lease directory.
func (c *ResolutionConfig) ResolveLeaseDir() string {
	if c.LeaseDir != "" {
		return c.LeaseDir
	}
	return filepath.Join(DataDir(), "leases")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("tenant.default", defaults.Tenant.Default)

	viper.SetDefault("store.driver", defaults.Store.Driver)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("store.dsn", defaults.Store.DSN)
	viper.SetDefault("store.dsn_env", defaults.Store.DSNEnv)
	viper.SetDefault("store.table", defaults.Store.Table)

	viper.SetDefault("resolution.suggestion_timeout_ms", defaults.Resolution.SuggestionTimeoutMs)
	viper.SetDefault("resolution.bulk_max_concurrency", defaults.Resolution.BulkMaxConcurrency)
	viper.SetDefault("resolution.lease", defaults.Resolution.Lease)
	viper.SetDefault("resolution.lease_dir", defaults.Resolution.LeaseDir)
	viper.SetDefault("resolution.merge_rules", defaults.Resolution.MergeRules)

	viper.SetDefault("suggest.provider", defaults.Suggest.Provider)
	viper.SetDefault("suggest.endpoint", defaults.Suggest.Endpoint)
	viper.SetDefault("suggest.api_key_env", defaults.Suggest.APIKeyEnv)
	viper.SetDefault("suggest.model", defaults.Suggest.Model)

	viper.SetDefault("detection.concurrent_window_seconds", defaults.Detection.ConcurrentWindowSeconds)
	viper.SetDefault("detection.module_impact", defaults.Detection.ModuleImpact)
	viper.SetDefault("detection.revenue_fields", defaults.Detection.RevenueFields)
	viper.SetDefault("detection.permission_fields", defaults.Detection.PermissionFields)

	viper.SetDefault("escalation.revenue_max_age_minutes", defaults.Escalation.RevenueMaxAgeMinutes)
	viper.SetDefault("escalation.compliance_max_age_minutes", defaults.Escalation.ComplianceMaxAgeMinutes)
	viper.SetDefault("escalation.operations_max_age_minutes", defaults.Escalation.OperationsMaxAgeMinutes)
	viper.SetDefault("escalation.reporting_max_age_minutes", defaults.Escalation.ReportingMaxAgeMinutes)
	viper.SetDefault("escalation.sweep_interval_seconds", defaults.Escalation.SweepIntervalSeconds)

	viper.SetDefault("approval.templates_dir", defaults.Approval.TemplatesDir)

	viper.SetDefault("intake.dir", defaults.Intake.Dir)
	viper.SetDefault("intake.debounce_ms", defaults.Intake.DebounceMs)

	viper.SetDefault("notify.sink", defaults.Notify.Sink)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults when
// the loaded configuration does not validate
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "conflux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conflux"
	}
	return filepath.Join(home, ".config", "conflux")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DataDir returns the directory holding local store files and leases
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "conflux")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".conflux"
	}
	return filepath.Join(home, ".local", "share", "conflux")
}
