// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

// ControlState is the shared state read by the packet encoders and mutated
// by the packet decoders and by the host application.
type ControlState struct {
	TeamNumber int

	Mode           ControlMode
	Enabled        bool
	EmergencyStop  bool
	Alliance       Alliance
	Position       Position
	FMSComms       bool
	RobotComms     bool
	RadioComms     bool
	RobotHasCode   bool
	RobotVoltage   float64
	CPUUsage       uint8
	RAMUsage       uint8
	DiskUsage      uint8
	CANUtilization uint8
}

// DefaultControlState returns a disabled robot on the red 1 station
func DefaultControlState() ControlState {
	return ControlState{
		Mode:     ModeDisabled,
		Alliance: AllianceRed,
		Position: Position1,
	}
}

// Latches holds the command flags that stay armed across outgoing packets
// until a robot reset clears them.
type Latches struct {
	Reboot        bool
	RestartCode   bool
	Resync        bool // FRC 2014 only
	WantsDateTime bool // FRC 2015 only
}
