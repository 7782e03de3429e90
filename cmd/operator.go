// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

const operatorHelp = `Commands:
  enable | disable          Enable or disable the robot
  mode <disabled|test|auto|teleop>
  estop | estop off         Set or clear the emergency stop
  alliance <red|blue>       Select the alliance
  position <1|2|3>          Select the station position
  team <number>             Change the team number
  reboot                    Reboot the robot controller
  restart                   Restart the robot code
  status                    Show the control state
  help                      Show this help`

// applyCommand runs one operator console line against the protocol and
// returns the text to show
func applyCommand(proto *dsproto.Protocol, line string) (string, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return "", nil
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch fields[0] {
	case "enable":
		proto.Update(func(s *dsproto.ControlState) { s.Enabled = true })
	case "disable":
		proto.Update(func(s *dsproto.ControlState) { s.Enabled = false })
	case "mode":
		mode, err := parseMode(arg)
		if err != nil {
			return "", err
		}
		proto.Update(func(s *dsproto.ControlState) { s.Mode = mode })
	case "estop":
		proto.Update(func(s *dsproto.ControlState) { s.EmergencyStop = arg != "off" })
	case "alliance":
		alliance, err := parseAlliance(arg)
		if err != nil {
			return "", err
		}
		proto.Update(func(s *dsproto.ControlState) { s.Alliance = alliance })
	case "position":
		pos, err := strconv.Atoi(arg)
		if err != nil || pos < 1 || pos > 3 {
			return "", fmt.Errorf("position must be 1, 2 or 3")
		}
		proto.Update(func(s *dsproto.ControlState) { s.Position = dsproto.Position(pos) })
	case "team":
		team, err := strconv.Atoi(arg)
		if err != nil || team < 0 || team > 9999 {
			return "", fmt.Errorf("team must be between 0 and 9999")
		}
		proto.Update(func(s *dsproto.ControlState) { s.TeamNumber = team })
	case "reboot":
		proto.RebootRobot()
	case "restart":
		proto.RestartRobotCode()
	case "status":
	case "help", "?":
		return operatorHelp, nil
	default:
		return "", fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	return formatState(proto), nil
}

// formatState renders the control state and latches on two lines
func formatState(proto *dsproto.Protocol) string {
	s := proto.State()
	l := proto.Latches()
	enabled := "DISABLED"
	if s.Enabled {
		enabled = "ENABLED"
	}
	result := fmt.Sprintf("Team %d %s %d | %s %s | E-Stop: %t | Code: %t | %.2fV\n",
		s.TeamNumber, s.Alliance, s.Position, s.Mode, enabled, s.EmergencyStop, s.RobotHasCode, s.RobotVoltage)
	result += fmt.Sprintf("Links FMS=%t Radio=%t Robot=%t | Reboot=%t Restart=%t",
		s.FMSComms, s.RadioComms, s.RobotComms, l.Reboot, l.RestartCode)
	if s.CPUUsage > 0 || s.RAMUsage > 0 || s.DiskUsage > 0 || s.CANUtilization > 0 {
		result += fmt.Sprintf("\nCPU %d%% RAM %d%% Disk %d%% CAN %d%%",
			s.CPUUsage, s.RAMUsage, s.DiskUsage, s.CANUtilization)
	}
	return result
}
