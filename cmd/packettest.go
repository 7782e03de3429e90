// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/stationlink/internal/station"
	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

var (
	packetTestTimeout int
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test the robot link by waiting for a valid status reply",
	Long: `Send disabled control packets to the robot and wait for a valid reply.

This command binds the robot channel, sends a disabled control packet every
20 ms and waits for a status datagram the protocol accepts. Short or
malformed datagrams are ignored.

Exit codes:
  0 - Reply received before timeout
  1 - Timeout reached without receiving a valid reply
  2 - Socket or address error

Useful for checking robot connectivity from a pit laptop or a script.`,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "timeout", 10, "Timeout in seconds to wait for a reply")
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	state := cfg.ControlState()
	proto := dsproto.New(cfg.ProtocolGeneration(), dsproto.WithState(state))
	desc := cfg.Socket(dsproto.ChannelRobot, proto.Socket(dsproto.ChannelRobot))

	host := cfg.Network.RobotAddress
	if host == "" {
		host = proto.RobotAddress()
	}
	dest, err := station.ResolveUDP(host, desc.OutPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Address error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(packetTestTimeout)*time.Second)
	defer cancel()

	conn, err := station.ListenUDP(cfg.Network.TTL)(ctx, dsproto.ChannelRobot, cfg.Network.BindHost, desc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Socket error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Stationlink - Packet Test\n")
	fmt.Printf("Protocol: %s\n", proto.Name())
	fmt.Printf("Robot: %s\n", dest)
	fmt.Printf("Timeout: %d seconds\n", packetTestTimeout)
	fmt.Printf("Waiting for valid robot reply...\n\n")

	replyChan := make(chan []byte, 1)
	errChan := make(chan error, 1)

	// Sender goroutine
	go func() {
		ticker := time.NewTicker(proto.Interval(dsproto.ChannelRobot))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := conn.WriteTo(proto.CreateRobotPacket(), dest); err != nil {
					errChan <- err
					return
				}
			}
		}
	}()

	// Reader goroutine
	go func() {
		buf := make([]byte, 2048)
		rejected := 0
		for {
			_ = conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
			n, _, err := conn.ReadFrom(buf)
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					if ctx.Err() != nil {
						return
					}
					continue
				}
				errChan <- err
				return
			}

			data := append([]byte(nil), buf[:n]...)
			if !proto.ReadRobotPacket(data) {
				rejected++
				continue
			}
			if rejected > 0 {
				fmt.Printf("(ignored %d invalid datagrams)\n", rejected)
			}
			replyChan <- data
			return
		}
	}()

	select {
	case data := <-replyChan:
		s := proto.State()
		fmt.Printf("SUCCESS: Received valid reply\n")
		fmt.Printf("  Length: %d bytes\n", len(data))
		fmt.Printf("  Voltage: %.2fV\n", s.RobotVoltage)
		fmt.Printf("  Code: %t\n", s.RobotHasCode)
		fmt.Printf("  E-Stop: %t\n", s.EmergencyStop)
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Socket error: %v\n", err)
		os.Exit(2)

	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid reply received within %d seconds\n", packetTestTimeout)
		os.Exit(1)
	}

	return nil
}
