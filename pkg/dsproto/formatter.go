// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// Direction tells whether a datagram was sent or received by the driver
// station.
type Direction int

const (
	DirectionOutbound Direction = iota
	DirectionInbound
)

// String returns the direction name
func (d Direction) String() string {
	if d == DirectionInbound {
		return "IN"
	}
	return "OUT"
}

// FormatPacket formats a datagram into a human-readable string
func FormatPacket(gen Generation, ch Channel, dir Direction, data []byte, timestamp time.Time) string {
	result := fmt.Sprintf("[%s] %s %s %s len=%d\n",
		timestamp.Format("15:04:05.000"), gen, ch, dir, len(data))

	if len(data) == 0 {
		return result + "  (no payload)\n"
	}

	var body string
	switch gen {
	case FRC2015:
		body = formatFRC2015(ch, dir, data)
	case FRC2014:
		body = formatFRC2014(ch, dir, data)
	}
	if body == "" {
		body = fmt.Sprintf("  Raw: %s\n", FormatHex(data, 32))
	}
	return result + body
}

func formatFRC2015(ch Channel, dir Direction, data []byte) string {
	switch {
	case ch == ChannelRobot && dir == DirectionOutbound:
		if len(data) < RobotHeaderSize {
			return "  (truncated robot header)\n"
		}
		result := fmt.Sprintf("  Index: %d, Tag: 0x%02X\n", binary.BigEndian.Uint16(data[0:2]), data[2])
		result += fmt.Sprintf("  Control: %s\n", FormatControlCode(data[3]))
		result += fmt.Sprintf("  Request: %s (0x%02X)\n", FormatRequestCode(data[4]), data[4])
		result += fmt.Sprintf("  Station: %s %d (0x%02X)\n",
			AllianceFromStation(data[5]), PositionFromStation(data[5]), data[5])
		trailer := data[RobotHeaderSize:]
		switch {
		case len(trailer) == 0:
		case len(trailer) >= 2 && trailer[1] == TagDate:
			result += "  Trailer: date/time\n"
		default:
			result += fmt.Sprintf("  Trailer: %d joysticks\n", countJoystickBlocks(trailer))
		}
		return result

	case ch == ChannelRobot && dir == DirectionInbound:
		if len(data) < minRobotReply {
			return "  (truncated robot status)\n"
		}
		result := fmt.Sprintf("  Index: %d\n", binary.BigEndian.Uint16(data[0:2]))
		result += fmt.Sprintf("  Control: %s\n", FormatControlCode(data[3]))
		result += fmt.Sprintf("  Code: %t, Voltage: %.2fV, Date request: %t\n",
			data[4]&robotHasCode != 0, DecodeVoltage(data[5], data[6]), data[7] == requestTime)
		if len(data) > 9 {
			result += fmt.Sprintf("  Extended tag: %s (0x%02X)\n", formatRobotTag(data[9]), data[9])
		}
		return result

	case ch == ChannelFMS && dir == DirectionOutbound:
		if len(data) < FMSPacketSize {
			return "  (truncated FMS status)\n"
		}
		result := fmt.Sprintf("  Index: %d, DS version: %d\n", binary.BigEndian.Uint16(data[0:2]), data[2])
		result += fmt.Sprintf("  Control: %s\n", FormatControlCode(data[3]))
		result += fmt.Sprintf("  Team: %d, Voltage: %d.%02d\n", binary.BigEndian.Uint16(data[4:6]), data[6], data[7])
		return result

	case ch == ChannelFMS && dir == DirectionInbound:
		if len(data) < minFMSCommand {
			return "  (short FMS command, ignored)\n"
		}
		return fmt.Sprintf("  Control: %s\n  Station: %s %d\n",
			FormatControlCode(data[3]), AllianceFromStation(data[5]), PositionFromStation(data[5]))
	}
	return ""
}

func formatFRC2014(ch Channel, dir Direction, data []byte) string {
	switch {
	case ch == ChannelRobot && dir == DirectionOutbound:
		if len(data) < LegacyPacketSize {
			return "  (truncated robot command)\n"
		}
		result := fmt.Sprintf("  Index: %d, Control: 0x%02X\n", binary.BigEndian.Uint16(data[0:2]), data[2])
		result += fmt.Sprintf("  Team: %d, Station: %s %d\n", binary.BigEndian.Uint16(data[4:6]),
			AllianceFromCode(data[6]), PositionFromCode(data[7]))
		result += fmt.Sprintf("  Version: %s, CRC: 0x%08X\n",
			string(data[legacyVersionOffset:legacyVersionOffset+8]),
			binary.BigEndian.Uint32(data[legacyChecksumOffset:]))
		return result

	case ch == ChannelRobot && dir == DirectionInbound:
		if len(data) < 3 {
			return "  (truncated robot status)\n"
		}
		return fmt.Sprintf("  E-Stop: %t, Voltage: %.2fV\n",
			data[0] == legacyEStopOn, DecodeLegacyVoltage(data[1], data[2]))

	case ch == ChannelFMS && dir == DirectionInbound:
		if len(data) < minLegacyFMSCommand {
			return "  (short FMS command, ignored)\n"
		}
		return fmt.Sprintf("  Mode: 0x%02X, Enabled: %t, Station: %s %d\n",
			data[2], data[2]&legacyEnabled != 0, AllianceFromCode(data[3]), PositionFromCode(data[4]))
	}
	return ""
}

// FormatControlCode describes an FRC 2015 control byte
func FormatControlCode(code uint8) string {
	var parts []string
	switch {
	case code&ctlTest != 0:
		parts = append(parts, "TEST")
	case code&ctlAutonomous != 0:
		parts = append(parts, "AUTONOMOUS")
	default:
		parts = append(parts, "TELEOPERATED")
	}
	if code&ctlEnabled != 0 {
		parts = append(parts, "ENABLED")
	} else {
		parts = append(parts, "DISABLED")
	}
	if code&ctlFMSAttached != 0 {
		parts = append(parts, "FMS")
	}
	if code&fmsRadioPing != 0 {
		parts = append(parts, "RADIO")
	}
	if code&fmsRobotComms != 0 {
		parts = append(parts, "ROBOT")
	}
	if code&ctlEmergency != 0 {
		parts = append(parts, "E-STOP")
	}
	return fmt.Sprintf("%s (0x%02X)", strings.Join(parts, "|"), code)
}

// FormatRequestCode returns the name of an FRC 2015 request byte
func FormatRequestCode(code uint8) string {
	switch code {
	case RequestUnconnected:
		return "UNCONNECTED"
	case RequestRestartCode:
		return "RESTART_CODE"
	case RequestReboot:
		return "REBOOT"
	case RequestNormal:
		return "NORMAL"
	default:
		return "UNKNOWN"
	}
}

func formatRobotTag(tag uint8) string {
	switch tag {
	case TagRobotCAN:
		return "CAN"
	case TagRobotCPU:
		return "CPU"
	case TagRobotRAM:
		return "RAM"
	case TagRobotDisk:
		return "DISK"
	default:
		return "UNKNOWN"
	}
}

// countJoystickBlocks walks size-prefixed joystick blocks
func countJoystickBlocks(data []byte) int {
	count := 0
	for i := 0; i+1 < len(data) && data[i] > 0; i += int(data[i]) {
		if data[i+1] != TagJoystick {
			break
		}
		count++
	}
	return count
}

// FormatHex renders up to limit bytes as hex, marking truncation
func FormatHex(data []byte, limit int) string {
	var sb strings.Builder
	for i, b := range data {
		if limit > 0 && i >= limit {
			sb.WriteString(fmt.Sprintf(" ... (+%d)", len(data)-limit))
			break
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(fmt.Sprintf("%02X", b))
	}
	return sb.String()
}
