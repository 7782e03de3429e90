// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/stationlink/internal/config"
	"github.com/Thermoquad/stationlink/internal/link"
	"github.com/Thermoquad/stationlink/internal/logging"
)

var (
	configPath string
	logLevel   string

	// Station overrides
	teamNumber int
	generation int

	// Mirror connection flags
	portName      string
	baudRate      int
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// cfg is loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stationlink",
	Short: "FRC driver station protocol tool",
	Long: `Stationlink - A driver station link for the FRC 2014 and FRC 2015 protocols.

Runs the UDP side of a driver station against a robot and the field
management system, records the traffic, and decodes or builds individual
datagrams for debugging.

Settings come from a TOML or YAML file (--config); flags override it.

Mirror connections stream captured traffic to a remote viewer:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the STATIONLINK_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")

	rootCmd.PersistentFlags().IntVarP(&teamNumber, "team", "t", 0, "Team number")
	rootCmd.PersistentFlags().IntVarP(&generation, "generation", "g", 2015, "Protocol generation (2014 or 2015)")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Mirror serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "Mirror WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// loadConfig reads the config file and applies the flags that were set
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Defaults()
	}

	flags := cmd.Flags()
	if flags.Changed("team") {
		cfg.Team = teamNumber
	}
	if flags.Changed("generation") {
		cfg.Generation = generation
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("port") {
		cfg.Mirror.Port = portName
	}
	if flags.Changed("baud") {
		cfg.Mirror.Baud = baudRate
	}
	if flags.Changed("url") {
		cfg.Mirror.URL = wsURL
	}
	if flags.Changed("username") {
		cfg.Mirror.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		cfg.Mirror.NoSSLVerify = wsNoSSLVerify
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	logging.ConfigureRuntime(cfg.Log.Level, cfg.Log.NoColor)
	return nil
}

// mirrorOptions returns the mirror target from the loaded config
func mirrorOptions() link.Options {
	return link.Options{
		Port:        cfg.Mirror.Port,
		Baud:        cfg.Mirror.Baud,
		URL:         cfg.Mirror.URL,
		Username:    cfg.Mirror.Username,
		NoSSLVerify: cfg.Mirror.NoSSLVerify,
	}
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
