package main

import (
	"fmt"

	"veilo/pkg/config"
	"veilo/pkg/log"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath  string
	apiURL      string
	development bool
	debug       bool
	logLevel    string
	emergencyDB string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "veilo",
	Short: "Backend availability client for Veilo",
	Long: `veilo keeps a Veilo client usable while its backend is unreliable.

It monitors backend health, fails over between candidate backend URLs and
saves posts locally while every backend is unreachable.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&apiURL, "api-url", "", "Primary backend URL (overrides "+config.EnvAPIURL+")")
	flags.BoolVar(&development, "dev", false, "Use local development backends (overrides "+config.EnvDevelopment+")")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&emergencyDB, "emergency-db", "", "SQLite file holding posts saved while offline")

	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	overrides := config.Overrides{
		APIURL:      apiURL,
		LogLevel:    logLevel,
		EmergencyDB: emergencyDB,
	}
	if cmd.Flags().Changed("dev") {
		overrides.Development = &development
	}

	loaded, err := config.LoadWithOverrides(configPath, overrides)
	if err != nil {
		return nil, err
	}

	if !log.SetLevel(loaded.LogLevel) {
		return nil, fmt.Errorf("unknown log level %q", loaded.LogLevel)
	}
	if debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	log.Debug().
		Str("api_url", loaded.APIURL).
		Strs("fallback_urls", loaded.FallbackURLs).
		Bool("development", loaded.Development).
		Str("emergency_db", loaded.EmergencyDB).
		Msg("Configuration loaded")
	return loaded, nil
}
