// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import "fmt"

// Transport is the socket type used by a channel.
type Transport int

const (
	TransportUDP Transport = iota
	TransportTCP
)

// String returns the transport name
func (t Transport) String() string {
	if t == TransportTCP {
		return "tcp"
	}
	return "udp"
}

// SocketDescriptor carries the static network parameters of one channel.
// An empty Address means the address is resolved at runtime (see
// Protocol.Address).
type SocketDescriptor struct {
	Address   string
	InPort    int
	OutPort   int
	Transport Transport
	Broadcast bool
	Enabled   bool
}

// String returns a short human-readable description
func (s SocketDescriptor) String() string {
	if !s.Enabled {
		return "disabled"
	}
	mode := ""
	if s.Broadcast {
		mode = " broadcast"
	}
	return fmt.Sprintf("%s in=%d out=%d%s", s.Transport, s.InPort, s.OutPort, mode)
}

// disabledSocket mirrors an unconfigured socket: nothing bound, nothing sent.
func disabledSocket() SocketDescriptor {
	return SocketDescriptor{Transport: TransportUDP}
}

// StaticIP builds a 10.TE.AM.host address from a team number.
func StaticIP(team, host int) string {
	return fmt.Sprintf("10.%d.%d.%d", team/100, team%100, host)
}
