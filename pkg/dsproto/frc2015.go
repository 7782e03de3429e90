// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"fmt"
	"time"
)

// frc2015 implements the roboRIO-era protocol
type frc2015 struct{}

func (frc2015) id() Generation { return FRC2015 }

func (frc2015) limits() JoystickLimits {
	return JoystickLimits{Joysticks: 6, Axes: 6, Buttons: 10, Hats: 1}
}

func (frc2015) socket(ch Channel) SocketDescriptor {
	switch ch {
	case ChannelFMS:
		return SocketDescriptor{InPort: PortFMSIn, OutPort: PortFMSOut, Transport: TransportUDP, Enabled: true}
	case ChannelRobot:
		return SocketDescriptor{InPort: PortRobotIn, OutPort: PortRobotOut, Transport: TransportUDP, Enabled: true}
	case ChannelNetConsole:
		return SocketDescriptor{InPort: PortNetConsoleIn, OutPort: PortNetConsoleOut, Transport: TransportUDP, Broadcast: true, Enabled: true}
	}
	return disabledSocket()
}

// The FMS address is assigned when the first FMS packet arrives
func (frc2015) fmsAddress(int) string { return "" }

func (frc2015) radioAddress(team int) string { return StaticIP(team, 1) }

func (frc2015) robotAddress(team int) string {
	return fmt.Sprintf("roboRIO-%d.local", team)
}

// controlCode builds the robot control byte: mode, enable, FMS attached and
// e-stop, all OR-combined.
func (frc2015) controlCode(s *ControlState) uint8 {
	var code uint8
	switch s.Mode {
	case ModeTest:
		code |= ctlTest
	case ModeAutonomous:
		code |= ctlAutonomous
	case ModeTeleoperated:
		code |= ctlTeleoperated
	}
	if s.FMSComms {
		code |= ctlFMSAttached
	}
	if s.EmergencyStop {
		code |= ctlEmergency
	}
	if s.Enabled {
		code |= ctlEnabled
	}
	return code
}

// fmsControlCode is the robot control byte plus the radio and robot link
// flags, without the FMS attached bit.
func (frc2015) fmsControlCode(s *ControlState) uint8 {
	var code uint8
	switch s.Mode {
	case ModeTest:
		code |= ctlTest
	case ModeAutonomous:
		code |= ctlAutonomous
	case ModeTeleoperated:
		code |= ctlTeleoperated
	}
	if s.EmergencyStop {
		code |= ctlEmergency
	}
	if s.Enabled {
		code |= ctlEnabled
	}
	if s.RadioComms {
		code |= fmsRadioPing
	}
	if s.RobotComms {
		code |= fmsRobotComms | fmsRobotPing
	}
	return code
}

// requestCode asks the robot to reboot or restart its code. Without robot
// communications the unconnected code is sent whatever the latches say.
func (frc2015) requestCode(s *ControlState, l *Latches) uint8 {
	if !s.RobotComms {
		return RequestUnconnected
	}
	if l.Reboot {
		return RequestReboot
	}
	if l.RestartCode {
		return RequestRestartCode
	}
	return RequestNormal
}

// dateTimeBlock encodes the local date, time and timezone. Day of year,
// month and year use the C struct tm conventions the robot expects.
func (frc2015) dateTimeBlock(now time.Time) []byte {
	zone, _ := now.Zone()
	data := make([]byte, dateBlockSize, dateBlockSize+len(zone))
	data[0] = 0x0b
	data[1] = TagDate
	data[2] = 0
	data[3] = 0
	data[4] = uint8(now.Second())
	data[5] = uint8(now.Minute())
	data[6] = uint8(now.Hour())
	data[7] = uint8(now.YearDay() - 1)
	data[8] = uint8(int(now.Month()) - 1)
	data[9] = uint8(now.Year() - 1900)
	data[10] = uint8(len(zone))
	data[11] = TagTimezone
	return append(data, zone...)
}

func (g frc2015) createFMSPacket(p *Protocol, counter uint16) []byte {
	integer, decimal := EncodeVoltage(p.state.RobotVoltage)
	team := uint16(p.state.TeamNumber)

	data := make([]byte, FMSPacketSize)
	data[0] = byte(counter >> 8)
	data[1] = byte(counter)
	data[2] = fmsDSVersion
	data[3] = g.fmsControlCode(&p.state)
	data[4] = byte(team >> 8)
	data[5] = byte(team)
	data[6] = integer
	data[7] = decimal
	return data
}

// The radio has no payload in this generation
func (frc2015) createRadioPacket(*Protocol, uint16) []byte { return []byte{} }

func (g frc2015) createRobotPacket(p *Protocol, counter uint16) []byte {
	data := make([]byte, RobotHeaderSize)
	data[0] = byte(counter >> 8)
	data[1] = byte(counter)
	data[2] = TagGeneral
	data[3] = g.controlCode(&p.state)
	data[4] = g.requestCode(&p.state, &p.latches)
	data[5] = StationCode(p.state.Alliance, p.state.Position)

	if p.latches.WantsDateTime {
		data = append(data, g.dateTimeBlock(p.clock())...)
	} else if counter > joystickDelay {
		data = append(data, encodeJoystickBlocks(p.snapshot(), p.quantize)...)
	}
	return data
}

// readFMSPacket takes the enable state, mode and station from the FMS. The
// teleoperated bit is zero, so testing it never matches and teleoperated is
// never selected from here.
func (frc2015) readFMSPacket(p *Protocol, data []byte) bool {
	if len(data) < minFMSCommand {
		return false
	}

	control := data[3]
	station := data[5]

	p.state.Enabled = control&ctlEnabled != 0
	if control&ctlTeleoperated != 0 {
		p.state.Mode = ModeTeleoperated
	} else if control&ctlAutonomous != 0 {
		p.state.Mode = ModeAutonomous
	} else if control&ctlTest != 0 {
		p.state.Mode = ModeTest
	}

	p.state.Alliance = AllianceFromStation(station)
	p.state.Position = PositionFromStation(station)
	return true
}

// The driver station never handles radio traffic directly
func (frc2015) readRadioPacket(*Protocol, []byte) bool { return false }

func (g frc2015) readRobotPacket(p *Protocol, data []byte) bool {
	if len(data) < minRobotReply {
		return false
	}

	control := data[3]
	status := data[4]
	request := data[7]

	p.state.RobotHasCode = status&robotHasCode != 0
	p.state.EmergencyStop = control&ctlEmergency != 0
	p.latches.WantsDateTime = request == requestTime
	p.state.RobotVoltage = DecodeVoltage(data[5], data[6])

	if len(data) > 9 {
		g.readExtended(p, data, 8)
	}
	return true
}

// readExtended applies one tagged telemetry record. The value positions are
// fixed packet indexes, not offsets from the tag.
func (frc2015) readExtended(p *Protocol, data []byte, offset int) {
	at := func(i int) (uint8, bool) {
		if i >= len(data) {
			return 0, false
		}
		return data[i], true
	}

	tag, ok := at(offset + 1)
	if !ok {
		return
	}
	switch tag {
	case TagRobotCAN:
		if v, ok := at(10); ok {
			p.state.CANUtilization = v
		}
	case TagRobotCPU:
		p.state.CPUUsage = data[3]
	case TagRobotRAM:
		p.state.RAMUsage = data[4]
	case TagRobotDisk:
		p.state.DiskUsage = data[4]
	}
}

func (frc2015) resetFMS(*Protocol)   {}
func (frc2015) resetRadio(*Protocol) {}

func (frc2015) resetRobot(p *Protocol) {
	p.latches.Reboot = false
	p.latches.RestartCode = false
	p.latches.WantsDateTime = false
}
