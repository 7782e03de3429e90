// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the station configuration from TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	ErrUnknownFormat     = errors.New("config: unknown file format")
	ErrInvalidTeam       = errors.New("config: team number out of range")
	ErrInvalidGeneration = errors.New("config: unknown protocol generation")
	ErrInvalidAlliance   = errors.New("config: unknown alliance")
	ErrInvalidPosition   = errors.New("config: position out of range")
	ErrInvalidPort       = errors.New("config: port out of range")
	ErrInvalidTimeout    = errors.New("config: watchdog timeout must be positive")
	ErrMirrorConflict    = errors.New("config: mirror port and url are mutually exclusive")
)

type NetworkConfig struct {
	BindHost     string `toml:"bind_host" yaml:"bind_host"`         // 0.0.0.0
	RobotAddress string `toml:"robot_address" yaml:"robot_address"` // overrides the generation default
	TTL          int    `toml:"ttl" yaml:"ttl"`

	// Zero keeps the generation's port
	FMSInPort         int `toml:"fms_in_port" yaml:"fms_in_port"`
	FMSOutPort        int `toml:"fms_out_port" yaml:"fms_out_port"`
	RobotInPort       int `toml:"robot_in_port" yaml:"robot_in_port"`
	RobotOutPort      int `toml:"robot_out_port" yaml:"robot_out_port"`
	NetConsoleInPort  int `toml:"netconsole_in_port" yaml:"netconsole_in_port"`
	NetConsoleOutPort int `toml:"netconsole_out_port" yaml:"netconsole_out_port"`
}

type WatchdogConfig struct {
	FMSTimeoutMs   int `toml:"fms_timeout_ms" yaml:"fms_timeout_ms"`
	RadioTimeoutMs int `toml:"radio_timeout_ms" yaml:"radio_timeout_ms"`
	RobotTimeoutMs int `toml:"robot_timeout_ms" yaml:"robot_timeout_ms"`
}

type CaptureConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// MirrorConfig forwards every datagram to a serial port or WebSocket.
// The WebSocket password comes from STATIONLINK_PASSWORD or a prompt.
type MirrorConfig struct {
	Port        string `toml:"port" yaml:"port"` // "/dev/ttyUSB0", "COM5"
	Baud        int    `toml:"baud" yaml:"baud"`
	URL         string `toml:"url" yaml:"url"` // ws:// or wss://
	Username    string `toml:"username" yaml:"username"`
	NoSSLVerify bool   `toml:"no_ssl_verify" yaml:"no_ssl_verify"`
}

type LogConfig struct {
	Level   string `toml:"level" yaml:"level"`
	NoColor bool   `toml:"no_color" yaml:"no_color"`
}

type Config struct {
	Team       int            `toml:"team" yaml:"team"`
	Generation int            `toml:"generation" yaml:"generation"` // 2014 or 2015
	Alliance   string         `toml:"alliance" yaml:"alliance"`     // red or blue
	Position   int            `toml:"position" yaml:"position"`     // 1..3
	Network    NetworkConfig  `toml:"network" yaml:"network"`
	Watchdog   WatchdogConfig `toml:"watchdog" yaml:"watchdog"`
	Capture    CaptureConfig  `toml:"capture" yaml:"capture"`
	Mirror     MirrorConfig   `toml:"mirror" yaml:"mirror"`
	Log        LogConfig      `toml:"log" yaml:"log"`
}

// Defaults returns a disabled-safe configuration for team 0 on red 1
func Defaults() *Config {
	return &Config{
		Team:       0,
		Generation: 2015,
		Alliance:   "red",
		Position:   1,

		Network: NetworkConfig{
			BindHost: "0.0.0.0",
			TTL:      64,
		},

		Watchdog: WatchdogConfig{
			FMSTimeoutMs:   1000,
			RadioTimeoutMs: 1000,
			RobotTimeoutMs: 1000,
		},

		Mirror: MirrorConfig{
			Baud: 115200,
		},

		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over Defaults. The decoder is chosen by extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("cannot parse toml %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse yaml %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.Team < 0 || c.Team > 9999 {
		return fmt.Errorf("%w: %d", ErrInvalidTeam, c.Team)
	}
	if c.Generation != 2014 && c.Generation != 2015 {
		return fmt.Errorf("%w: %d", ErrInvalidGeneration, c.Generation)
	}
	switch strings.ToLower(strings.TrimSpace(c.Alliance)) {
	case "red", "blue":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAlliance, c.Alliance)
	}
	if c.Position < 1 || c.Position > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidPosition, c.Position)
	}

	ports := []int{
		c.Network.FMSInPort, c.Network.FMSOutPort,
		c.Network.RobotInPort, c.Network.RobotOutPort,
		c.Network.NetConsoleInPort, c.Network.NetConsoleOutPort,
	}
	for _, port := range ports {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%w: %d", ErrInvalidPort, port)
		}
	}

	if c.Watchdog.FMSTimeoutMs <= 0 || c.Watchdog.RadioTimeoutMs <= 0 || c.Watchdog.RobotTimeoutMs <= 0 {
		return ErrInvalidTimeout
	}
	if c.Mirror.Port != "" && c.Mirror.URL != "" {
		return ErrMirrorConflict
	}
	return nil
}

// ProtocolGeneration maps the configured year to a wire generation
func (c *Config) ProtocolGeneration() dsproto.Generation {
	if c.Generation == 2014 {
		return dsproto.FRC2014
	}
	return dsproto.FRC2015
}

// StationAlliance returns the configured alliance
func (c *Config) StationAlliance() dsproto.Alliance {
	if strings.EqualFold(strings.TrimSpace(c.Alliance), "blue") {
		return dsproto.AllianceBlue
	}
	return dsproto.AllianceRed
}

// StationPosition returns the configured position
func (c *Config) StationPosition() dsproto.Position {
	return dsproto.Position(c.Position)
}

// WatchdogTimeout returns the expiry period of a channel's watchdog
func (c *Config) WatchdogTimeout(ch dsproto.Channel) time.Duration {
	switch ch {
	case dsproto.ChannelFMS:
		return time.Duration(c.Watchdog.FMSTimeoutMs) * time.Millisecond
	case dsproto.ChannelRadio:
		return time.Duration(c.Watchdog.RadioTimeoutMs) * time.Millisecond
	default:
		return time.Duration(c.Watchdog.RobotTimeoutMs) * time.Millisecond
	}
}

// Socket applies the port overrides to a generation's socket descriptor
func (c *Config) Socket(ch dsproto.Channel, base dsproto.SocketDescriptor) dsproto.SocketDescriptor {
	override := func(port *int, value int) {
		if value != 0 {
			*port = value
		}
	}
	switch ch {
	case dsproto.ChannelFMS:
		override(&base.InPort, c.Network.FMSInPort)
		override(&base.OutPort, c.Network.FMSOutPort)
	case dsproto.ChannelRobot:
		override(&base.InPort, c.Network.RobotInPort)
		override(&base.OutPort, c.Network.RobotOutPort)
	case dsproto.ChannelNetConsole:
		override(&base.InPort, c.Network.NetConsoleInPort)
		override(&base.OutPort, c.Network.NetConsoleOutPort)
	}
	return base
}

// ControlState returns the initial control state for the protocol
func (c *Config) ControlState() dsproto.ControlState {
	s := dsproto.DefaultControlState()
	s.TeamNumber = c.Team
	s.Alliance = c.StationAlliance()
	s.Position = c.StationPosition()
	return s
}
