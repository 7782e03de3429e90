// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

func parseChannel(name string) (dsproto.Channel, error) {
	switch strings.ToLower(name) {
	case "fms":
		return dsproto.ChannelFMS, nil
	case "radio":
		return dsproto.ChannelRadio, nil
	case "robot":
		return dsproto.ChannelRobot, nil
	case "netconsole", "console":
		return dsproto.ChannelNetConsole, nil
	}
	return 0, fmt.Errorf("unknown channel %q (use fms, radio, robot or netconsole)", name)
}

func parseDirection(name string) (dsproto.Direction, error) {
	switch strings.ToLower(name) {
	case "out", "outbound", "tx":
		return dsproto.DirectionOutbound, nil
	case "in", "inbound", "rx":
		return dsproto.DirectionInbound, nil
	}
	return 0, fmt.Errorf("unknown direction %q (use out or in)", name)
}

func parseMode(name string) (dsproto.ControlMode, error) {
	switch strings.ToLower(name) {
	case "disabled", "off":
		return dsproto.ModeDisabled, nil
	case "test":
		return dsproto.ModeTest, nil
	case "auto", "autonomous":
		return dsproto.ModeAutonomous, nil
	case "teleop", "teleoperated":
		return dsproto.ModeTeleoperated, nil
	}
	return 0, fmt.Errorf("unknown mode %q (use disabled, test, auto or teleop)", name)
}

func parseAlliance(name string) (dsproto.Alliance, error) {
	switch strings.ToLower(name) {
	case "red", "r":
		return dsproto.AllianceRed, nil
	case "blue", "b":
		return dsproto.AllianceBlue, nil
	}
	return 0, fmt.Errorf("unknown alliance %q (use red or blue)", name)
}

// parseHex accepts hex bytes with optional spaces, colons or a 0x prefix
func parseHex(args []string) ([]byte, error) {
	raw := strings.Join(args, "")
	raw = strings.TrimPrefix(strings.ToLower(raw), "0x")
	raw = strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "").Replace(raw)
	data, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}
