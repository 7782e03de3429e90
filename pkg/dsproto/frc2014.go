// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import "encoding/binary"

// frc2014 implements the cRIO-era protocol. It defines no FMS or radio
// payload; only the robot channel carries data.
type frc2014 struct{}

func (frc2014) id() Generation { return FRC2014 }

func (frc2014) limits() JoystickLimits {
	return JoystickLimits{Joysticks: 4, Axes: 6, Buttons: 10, Hats: 0}
}

func (frc2014) socket(ch Channel) SocketDescriptor {
	switch ch {
	case ChannelFMS:
		return SocketDescriptor{InPort: PortFMSIn, OutPort: PortFMSOut, Transport: TransportUDP, Enabled: true}
	case ChannelRobot:
		return SocketDescriptor{InPort: PortRobotIn, OutPort: PortRobotOut, Transport: TransportUDP, Enabled: true}
	}
	return disabledSocket()
}

func (frc2014) fmsAddress(int) string { return "" }

func (frc2014) radioAddress(team int) string { return StaticIP(team, 1) }

func (frc2014) robotAddress(team int) string { return StaticIP(team, 2) }

// controlCode starts from the e-stop released bit. E-stop and reboot replace
// the whole byte instead of OR-ing into it, reboot taking precedence.
func (frc2014) controlCode(s *ControlState, l *Latches) uint8 {
	code := uint8(legacyEStopOff)
	var enabled uint8
	if s.Enabled {
		enabled = legacyEnabled
	}

	switch s.Mode {
	case ModeTest:
		code |= enabled + legacyTest
	case ModeAutonomous:
		code |= enabled + legacyAutonomous
	case ModeTeleoperated:
		code |= enabled + legacyTeleoperated
	default:
		code = legacyEStopOff
	}

	if l.Resync {
		code |= legacyResync
	}
	if s.FMSComms {
		code |= legacyFMSAttached
	}
	if s.EmergencyStop {
		code = legacyEStopOn
	}
	if l.Reboot {
		code = legacyReboot
	}
	return code
}

func (frc2014) createFMSPacket(*Protocol, uint16) []byte   { return []byte{} }
func (frc2014) createRadioPacket(*Protocol, uint16) []byte { return []byte{} }

// createRobotPacket builds the fixed 1024-byte datagram: header, four
// joysticks, the version stamp at 72 and a CRC32 of the whole buffer (with
// the checksum field zeroed) at 1020.
func (g frc2014) createRobotPacket(p *Protocol, counter uint16) []byte {
	team := uint16(p.state.TeamNumber)

	data := make([]byte, LegacyPacketSize)
	data[0] = byte(counter >> 8)
	data[1] = byte(counter)
	data[2] = g.controlCode(&p.state, &p.latches)
	data[3] = 0x00 // digital inputs
	data[4] = byte(team >> 8)
	data[5] = byte(team)
	data[6] = AllianceCode(p.state.Alliance)
	data[7] = PositionCode(p.state.Position)

	sticks := encodeLegacyJoysticks(p.snapshot(), g.limits(), p.quantize)
	copy(data[legacyHeaderSize:], sticks)
	copy(data[legacyVersionOffset:], legacyVersion[:])

	binary.BigEndian.PutUint32(data[legacyChecksumOffset:], CalculateCRC(data))
	return data
}

// readFMSPacket takes the mode, enable state and station from the FMS. The
// mode byte is tested bitwise against 'S' and then 'C'. The two letters
// share bits, so any byte matching 'S' also matches 'C' and ends up
// teleoperated; autonomous is only kept for bytes that overlap 'S' alone.
func (frc2014) readFMSPacket(p *Protocol, data []byte) bool {
	if len(data) < minLegacyFMSCommand {
		return false
	}

	mode := data[2]
	if mode&CodeFMSAutonomous != 0 {
		p.state.Mode = ModeAutonomous
	}
	if mode&CodeFMSTeleoperated != 0 {
		p.state.Mode = ModeTeleoperated
	}
	p.state.Enabled = mode&legacyEnabled != 0
	p.state.Alliance = AllianceFromCode(data[3])
	p.state.Position = PositionFromCode(data[4])
	return true
}

func (frc2014) readRadioPacket(*Protocol, []byte) bool { return false }

// readRobotPacket takes the e-stop state and battery voltage. The cRIO
// reports no code status, so code is assumed present.
func (frc2014) readRobotPacket(p *Protocol, data []byte) bool {
	if len(data) < LegacyPacketSize {
		return false
	}

	p.state.RobotVoltage = DecodeLegacyVoltage(data[1], data[2])
	p.state.EmergencyStop = data[0] == legacyEStopOn
	p.state.RobotHasCode = true
	return true
}

func (frc2014) resetFMS(*Protocol)   {}
func (frc2014) resetRadio(*Protocol) {}

// resetRobot clears the command latches and asks the robot to resync. The
// resync latch is never cleared afterwards.
func (frc2014) resetRobot(p *Protocol) {
	p.latches.Resync = true
	p.latches.Reboot = false
	p.latches.RestartCode = false
}
