// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	encodeChannel  string
	encodeMode     string
	encodeEnable   bool
	encodeEStop    bool
	encodeFMS      bool
	encodeRobot    bool
	encodeAlliance string
	encodePosition int
	encodeVoltage  float64
	encodeReboot   bool
	encodeRestart  bool
	encodeIndex    int
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build a single outbound datagram",
	Long: `Build the datagram the driver station would send for a given control state
and print it as hex followed by its decoded form.

Examples:
  stationlink encode --team 118 --mode teleop --enable
  stationlink encode -g 2014 --team 254 --alliance blue --position 2 --reboot
  stationlink encode --channel fms --team 118 --robot-comms --voltage 12.5`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	encodeCmd.Flags().StringVar(&encodeChannel, "channel", "robot", "Channel (fms, radio, robot)")
	encodeCmd.Flags().StringVar(&encodeMode, "mode", "disabled", "Mode (disabled, test, auto, teleop)")
	encodeCmd.Flags().BoolVar(&encodeEnable, "enable", false, "Robot enabled")
	encodeCmd.Flags().BoolVar(&encodeEStop, "estop", false, "Emergency stop")
	encodeCmd.Flags().BoolVar(&encodeFMS, "fms-comms", false, "FMS attached")
	encodeCmd.Flags().BoolVar(&encodeRobot, "robot-comms", false, "Robot link up")
	encodeCmd.Flags().StringVar(&encodeAlliance, "alliance", "", "Alliance (red or blue, default from config)")
	encodeCmd.Flags().IntVar(&encodePosition, "position", 0, "Position (1-3, default from config)")
	encodeCmd.Flags().Float64Var(&encodeVoltage, "voltage", 0, "Battery voltage reported to the FMS")
	encodeCmd.Flags().BoolVar(&encodeReboot, "reboot", false, "Arm the reboot latch")
	encodeCmd.Flags().BoolVar(&encodeRestart, "restart", false, "Arm the restart-code latch")
	encodeCmd.Flags().IntVar(&encodeIndex, "index", 0, "Packet index (earlier packets are built and discarded)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	ch, err := parseChannel(encodeChannel)
	if err != nil {
		return err
	}
	mode, err := parseMode(encodeMode)
	if err != nil {
		return err
	}
	if encodeIndex < 0 || encodeIndex > 0xFFFF {
		return fmt.Errorf("index must be between 0 and 65535")
	}

	state := cfg.ControlState()
	state.Mode = mode
	state.Enabled = encodeEnable
	state.EmergencyStop = encodeEStop
	state.FMSComms = encodeFMS
	state.RobotComms = encodeRobot
	state.RobotVoltage = encodeVoltage
	if encodeAlliance != "" {
		if state.Alliance, err = parseAlliance(encodeAlliance); err != nil {
			return err
		}
	}
	if encodePosition != 0 {
		if encodePosition < 1 || encodePosition > 3 {
			return fmt.Errorf("position must be 1, 2 or 3")
		}
		state.Position = dsproto.Position(encodePosition)
	}

	proto := dsproto.New(cfg.ProtocolGeneration(), dsproto.WithState(state))
	if encodeReboot {
		proto.RebootRobot()
	}
	if encodeRestart {
		proto.RestartRobotCode()
	}

	var create func() []byte
	switch ch {
	case dsproto.ChannelFMS:
		create = proto.CreateFMSPacket
	case dsproto.ChannelRadio:
		create = proto.CreateRadioPacket
	case dsproto.ChannelRobot:
		create = proto.CreateRobotPacket
	default:
		return fmt.Errorf("%s has no outbound datagram", ch)
	}

	for i := 0; i < encodeIndex; i++ {
		create()
	}
	data := create()

	fmt.Println(dsproto.FormatHex(data, 0))
	fmt.Print(renderPacket(dsproto.DirectionOutbound,
		dsproto.FormatPacket(proto.Generation(), ch, dsproto.DirectionOutbound, data, time.Now())))
	return nil
}
