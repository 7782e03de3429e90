// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

// PacketConn is the part of net.PacketConn a channel uses
type PacketConn interface {
	ReadFrom(p []byte) (n int, addr net.Addr, err error)
	WriteTo(p []byte, addr net.Addr) (n int, err error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// ListenFunc opens the socket of one channel
type ListenFunc func(ctx context.Context, ch dsproto.Channel, host string, desc dsproto.SocketDescriptor) (PacketConn, error)

// ResolveFunc resolves a destination host and port
type ResolveFunc func(host string, port int) (net.Addr, error)

// ListenUDP binds host:InPort and applies the hop limit. Datagram sockets
// are created with SO_BROADCAST set, so broadcast channels need nothing
// further.
func ListenUDP(ttl int) ListenFunc {
	return func(ctx context.Context, ch dsproto.Channel, host string, desc dsproto.SocketDescriptor) (PacketConn, error) {
		if desc.Transport != dsproto.TransportUDP {
			return nil, fmt.Errorf("%s: unsupported transport %s", ch, desc.Transport)
		}

		var lc net.ListenConfig
		addr := net.JoinHostPort(host, strconv.Itoa(desc.InPort))
		pc, err := lc.ListenPacket(ctx, "udp4", addr)
		if err != nil {
			return nil, fmt.Errorf("%s: listen %s: %w", ch, addr, err)
		}

		if ttl > 0 {
			p := ipv4.NewPacketConn(pc)
			if err := p.SetTTL(ttl); err != nil {
				pc.Close()
				return nil, fmt.Errorf("%s: set ttl: %w", ch, err)
			}
		}
		return pc, nil
	}
}

// ResolveUDP resolves an IPv4 UDP address
func ResolveUDP(host string, port int) (net.Addr, error) {
	return net.ResolveUDPAddr("udp4", net.JoinHostPort(host, strconv.Itoa(port)))
}

// broadcastAddress is the limited broadcast destination
const broadcastAddress = "255.255.255.255"
