package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/conflux/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "conflux",
	Short: "Multi-tenant conflict resolution and sync coordination",
	Long: `Conflux detects divergent edits between server and client copies of
business records, classifies them by business impact, and resolves them
with configurable strategies, approval workflows and age-based escalation.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/conflux/config.yaml)")
	rootCmd.PersistentFlags().StringP("tenant", "t", "", "tenant to operate on (default from tenant.default)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	bindGlobalFlags()
}

// bindGlobalFlags maps the persistent flags onto their viper keys.
func bindGlobalFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("tenant.default", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CONFLUX")
	// e.g., CONFLUX_STORE_DRIVER for store.driver
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
