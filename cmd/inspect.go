// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/stationlink/internal/capture"
	"github.com/Thermoquad/stationlink/internal/link"
	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	inspectChannel string
	inspectSummary bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [capture-file]",
	Short: "Display a capture file or a live mirror stream",
	Long: `Decode and display recorded traffic.

With a file argument the capture file is read to the end. Without one, the
mirror stream of a running station is read from --port or --url until the
connection closes.

Inbound datagrams are replayed through a protocol instance so the summary
counts accepted and rejected datagrams the same way the station does.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectChannel, "channel", "", "Only show one channel (fms, radio, robot, netconsole)")
	inspectCmd.Flags().BoolVar(&inspectSummary, "summary", false, "Only print the statistics summary")
}

func runInspect(cmd *cobra.Command, args []string) error {
	filter := dsproto.Channel(-1)
	if inspectChannel != "" {
		ch, err := parseChannel(inspectChannel)
		if err != nil {
			return err
		}
		filter = ch
	}

	var reader *capture.Reader
	source := ""
	if len(args) == 1 {
		r, err := capture.Open(args[0])
		if err != nil {
			return err
		}
		reader, source = r, args[0]
	} else {
		conn, connInfo, err := link.Open(cmd.Context(), mirrorOptions())
		if err != nil {
			return err
		}
		r, err := capture.NewReader(conn)
		if err != nil {
			conn.Close()
			return err
		}
		reader, source = r, connInfo
	}
	defer reader.Close()

	header := reader.Header()
	fmt.Println(renderTitle("Stationlink - Capture Inspector"))
	fmt.Printf("%s %s\n", renderLabel("Source:"), source)
	fmt.Printf("%s %s (%s)\n\n", renderLabel("Session:"), header.Session, reader.Generation())

	stats, err := inspectRecords(reader, filter, !inspectSummary, func(s string) { fmt.Print(s) })
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}

// inspectRecords walks a capture, printing records through out when verbose,
// and returns the per-channel statistics. A channel filter of -1 keeps all.
func inspectRecords(reader *capture.Reader, filter dsproto.Channel, verbose bool, out func(string)) (*dsproto.Statistics, error) {
	gen := reader.Generation()
	replay := dsproto.New(gen)
	stats := dsproto.NewStatistics()

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) || errors.Is(err, link.ErrConnectionClosed) {
			return stats, nil
		}
		if err != nil {
			log.Warn().Err(err).Msg("capture ends with an incomplete record")
			return stats, nil
		}

		ch := rec.PacketChannel()
		if filter >= 0 && ch != filter {
			continue
		}
		dir := rec.PacketDirection()

		if dir == dsproto.DirectionOutbound {
			stats.RecordSent(ch)
		} else {
			stats.RecordReceived(ch, replayInbound(replay, ch, rec.Data))
		}

		if verbose {
			out(renderPacket(dir, dsproto.FormatPacket(gen, ch, dir, rec.Data, rec.Timestamp())))
		}
	}
}

func replayInbound(proto *dsproto.Protocol, ch dsproto.Channel, data []byte) bool {
	switch ch {
	case dsproto.ChannelFMS:
		return proto.ReadFMSPacket(data)
	case dsproto.ChannelRadio:
		return proto.ReadRadioPacket(data)
	case dsproto.ChannelRobot:
		return proto.ReadRobotPacket(data)
	}
	return true
}
