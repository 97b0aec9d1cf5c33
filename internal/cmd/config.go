package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/conflux/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify conflux configuration",
	Long: `View or modify conflux configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  conflux config set store.driver sqlite
  conflux config set resolution.bulk_max_concurrency 16
  conflux config set escalation.revenue_max_age_minutes 30

Only scalar keys can be set here; edit the file for maps and lists.
Run 'conflux config show' to see every key.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/conflux/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := config.Load(); err != nil {
		fmt.Fprintf(out, "%s %v\n\n", warningStyle.Render("Invalid configuration:"), err)
	}

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n\n")
	}

	data, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])
	value := args[1]

	if key == "config" || !slices.Contains(viper.AllKeys(), key) {
		return fmt.Errorf("unknown configuration key: %s\nRun 'conflux config show' to see valid keys", key)
	}

	var typedValue any
	switch viper.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if n < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = n
	case string:
		typedValue = value
	default:
		return fmt.Errorf("%s is not a scalar key; edit %s directly", key, config.ConfigFile())
	}

	prev := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, prev)
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

const defaultConfigContent = `# Conflux Configuration

# Tenant used when --tenant is not given
tenant:
  default: default

# Key/value backend: memory, file, sqlite, postgres
store:
  driver: file
  # Base directory (file) or database file (sqlite); empty uses the data dir
  path: ""
  # Postgres connection string; dsn_env names an env var that overrides it
  dsn: ""
  dsn_env: CONFLUX_DATABASE_URL
  table: conflux_kv

resolution:
  suggestion_timeout_ms: 2000
  bulk_max_concurrency: 8
  # Admission guard for in-flight resolutions: memory, file, postgres
  lease: memory
  lease_dir: ""
  # Default merge rule per field: latest_timestamp, highest_value,
  # combine_arrays, fallback_server
  merge_rules: {}

# Suggestion provider: none, heuristic, http
suggest:
  provider: heuristic
  endpoint: ""
  api_key_env: CONFLUX_SUGGEST_API_KEY
  model: ""

detection:
  concurrent_window_seconds: 5
  revenue_fields: [amount, price, total, discount, credit_limit]
  permission_fields: [role, permissions, access_level, owner]

# Max age before an unresolved conflict is escalated; 0 disables
escalation:
  revenue_max_age_minutes: 60
  compliance_max_age_minutes: 120
  operations_max_age_minutes: 0
  reporting_max_age_minutes: 0
  sweep_interval_seconds: 60

approval:
  # Directory of *.yaml workflow templates
  templates_dir: ""

intake:
  dir: ""
  debounce_ms: 50

# Notification sink: none, log, bus
notify:
  sink: log

logging:
  level: info
  # Empty logs to stderr
  dir: ""
  max_size_mb: 10
  max_backups: 3
  compress: false
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'conflux config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize conflux's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: CONFLUX_* (e.g., CONFLUX_STORE_DRIVER)")
	return nil
}
