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
	decodeChannel   string
	decodeDirection string
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>...",
	Short: "Decode a single datagram",
	Long: `Decode a datagram given as hex bytes and display it in human-readable form.

Inbound datagrams are also fed to a fresh protocol instance, and the control
state they produce is shown along with whether the datagram was accepted.

Examples:
  stationlink decode --channel robot --direction in 00 01 01 00 20 0c 00 00
  stationlink decode -g 2014 --channel fms --direction in 000073 42 32`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringVar(&decodeChannel, "channel", "robot", "Channel (fms, radio, robot, netconsole)")
	decodeCmd.Flags().StringVar(&decodeDirection, "direction", "out", "Direction (out or in)")
}

func runDecode(cmd *cobra.Command, args []string) error {
	ch, err := parseChannel(decodeChannel)
	if err != nil {
		return err
	}
	dir, err := parseDirection(decodeDirection)
	if err != nil {
		return err
	}
	data, err := parseHex(args)
	if err != nil {
		return err
	}

	gen := cfg.ProtocolGeneration()
	fmt.Print(renderPacket(dir, dsproto.FormatPacket(gen, ch, dir, data, time.Now())))

	if dir != dsproto.DirectionInbound {
		return nil
	}

	proto := dsproto.New(gen, dsproto.WithState(cfg.ControlState()))
	var accepted bool
	switch ch {
	case dsproto.ChannelFMS:
		accepted = proto.ReadFMSPacket(data)
	case dsproto.ChannelRadio:
		accepted = proto.ReadRadioPacket(data)
	case dsproto.ChannelRobot:
		accepted = proto.ReadRobotPacket(data)
	default:
		return nil
	}

	if !accepted {
		fmt.Println(renderError("Rejected: datagram too short or not handled by " + proto.Name()))
		return nil
	}
	fmt.Println(renderLabel("Accepted, resulting state:"))
	fmt.Println(formatState(proto))
	return nil
}
