// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dsproto implements the driver station side of the FRC field link.
//
// It builds and parses the UDP datagrams exchanged with the field management
// system (FMS), the robot radio and the robot controller for two incompatible
// protocol generations: the 2014 cRIO protocol and the 2015 roboRIO protocol.
// A Protocol owns the control state that the encoders read and the decoders
// mutate, together with the per-channel packet counters and latched commands.
//
// Sockets, timers and watchdog expiry detection are left to the caller.
package dsproto

// Generation selects one of the supported wire protocol generations.
type Generation int

const (
	FRC2014 Generation = iota // Gen-A, cRIO era, 1024-byte robot datagram
	FRC2015                   // Gen-B, roboRIO era, tagged variable datagrams
)

// String returns the generation name
func (g Generation) String() string {
	switch g {
	case FRC2014:
		return "FRC 2014"
	case FRC2015:
		return "FRC 2015"
	default:
		return "UNKNOWN"
	}
}

// Channel identifies one of the peers the driver station talks to.
type Channel int

const (
	ChannelFMS Channel = iota
	ChannelRadio
	ChannelRobot
	ChannelNetConsole
)

// String returns the channel name
func (c Channel) String() string {
	switch c {
	case ChannelFMS:
		return "FMS"
	case ChannelRadio:
		return "RADIO"
	case ChannelRobot:
		return "ROBOT"
	case ChannelNetConsole:
		return "NETCONSOLE"
	default:
		return "UNKNOWN"
	}
}

// ControlMode is the operating mode requested for the robot.
type ControlMode int

const (
	ModeDisabled ControlMode = iota
	ModeTest
	ModeAutonomous
	ModeTeleoperated
)

// String returns the control mode name
func (m ControlMode) String() string {
	switch m {
	case ModeDisabled:
		return "DISABLED"
	case ModeTest:
		return "TEST"
	case ModeAutonomous:
		return "AUTONOMOUS"
	case ModeTeleoperated:
		return "TELEOPERATED"
	default:
		return "UNKNOWN"
	}
}

// Alliance is the team color for the current match.
type Alliance int

const (
	AllianceRed Alliance = iota
	AllianceBlue
)

// String returns the alliance name
func (a Alliance) String() string {
	switch a {
	case AllianceRed:
		return "RED"
	case AllianceBlue:
		return "BLUE"
	default:
		return "UNKNOWN"
	}
}

// Position is the driver station position within the alliance wall.
type Position int

const (
	Position1 Position = iota + 1
	Position2
	Position3
)

// Packet intervals, shared by both generations (milliseconds)
const (
	fmsIntervalMs   = 500
	radioIntervalMs = 0
	robotIntervalMs = 20
)

// Socket ports
const (
	PortFMSIn         = 1120
	PortFMSOut        = 1160
	PortRobotIn       = 1150
	PortRobotOut      = 1110
	PortNetConsoleIn  = 6666
	PortNetConsoleOut = 6668
)

// FRC 2015 control code bits
const (
	ctlTest         = 0x01
	ctlAutonomous   = 0x02
	ctlTeleoperated = 0x00
	ctlEnabled      = 0x04
	ctlFMSAttached  = 0x08
	ctlEmergency    = 0x80
)

// FRC 2015 request codes
const (
	RequestUnconnected = 0x00
	RequestRestartCode = 0x04
	RequestReboot      = 0x08
	RequestNormal      = 0x80
)

// FRC 2015 FMS control code extras
const (
	fmsRadioPing  = 0x10
	fmsRobotPing  = 0x08
	fmsRobotComms = 0x20
	fmsDSVersion  = 0x00
)

// FRC 2015 outgoing tags
const (
	TagGeneral  = 0x01
	TagJoystick = 0x0c
	TagDate     = 0x0f
	TagTimezone = 0x10
)

// FRC 2015 station codes
const (
	StationRed1  = 0x00
	StationRed2  = 0x01
	StationRed3  = 0x02
	StationBlue1 = 0x03
	StationBlue2 = 0x04
	StationBlue3 = 0x05
)

// FRC 2015 incoming robot tags and flags
const (
	TagRobotDisk  = 0x04
	TagRobotCPU   = 0x05
	TagRobotRAM   = 0x06
	TagRobotCAN   = 0x0e
	requestTime   = 0x01
	robotHasCode  = 0x20
	dateBlockSize = 12
)

// FRC 2015 packet sizes
const (
	RobotHeaderSize = 6
	FMSPacketSize   = 8
	minRobotReply   = 8
	minFMSCommand   = 22
	joystickDelay   = 5
)

// FRC 2014 control code bits
const (
	legacyEnabled      = 0x20
	legacyTest         = 0x02
	legacyAutonomous   = 0x10
	legacyTeleoperated = 0x00
	legacyFMSAttached  = 0x08
	legacyResync       = 0x04
	legacyReboot       = 0x80
	legacyEStopOn      = 0x00
	legacyEStopOff     = 0x40
)

// FRC 2014 alliance, position and FMS mode codes
const (
	CodePosition1       = 0x31
	CodePosition2       = 0x32
	CodePosition3       = 0x33
	CodeAllianceRed     = 0x52
	CodeAllianceBlue    = 0x42
	CodeFMSAutonomous   = 0x53
	CodeFMSTeleoperated = 0x43
)

// FRC 2014 packet layout
const (
	LegacyPacketSize     = 1024
	legacyHeaderSize     = 8
	legacyVersionOffset  = 72
	legacyChecksumOffset = 1020
	minLegacyFMSCommand  = 5
)

// legacyVersion is the driver station version stamp expected by cRIO
// firmware (the value sent by DS 16.0.1).
var legacyVersion = [8]byte{'0', '4', '0', '1', '1', '6', '0', '0'}
