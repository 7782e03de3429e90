// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Stationlink - FRC Driver Station Protocol Tool
//
// Runs a driver station link against a robot and field management system,
// and decodes, encodes and inspects driver station datagrams.

package main

import (
	"os"

	"github.com/Thermoquad/stationlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
