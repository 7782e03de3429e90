// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/stationlink/internal/config"
	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

type datagram struct {
	data []byte
	addr net.Addr
}

// fakeConn delivers queued datagrams and records writes
type fakeConn struct {
	inbound chan datagram
	closed  chan struct{}
	once    sync.Once

	mu   sync.Mutex
	sent []datagram
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan datagram, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadFrom(p []byte) (int, net.Addr, error) {
	select {
	case d := <-c.inbound:
		return copy(p, d.data), d.addr, nil
	case <-c.closed:
		return 0, nil, net.ErrClosed
	case <-time.After(5 * time.Millisecond):
		return 0, nil, timeoutError{}
	}
}

func (c *fakeConn) WriteTo(p []byte, addr net.Addr) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, datagram{append([]byte(nil), p...), addr})
	return len(p), nil
}

func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Sent() []datagram {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]datagram(nil), c.sent...)
}

// fakeNetwork hands out one fakeConn per channel
type fakeNetwork struct {
	mu    sync.Mutex
	conns map[dsproto.Channel]*fakeConn
	ports map[dsproto.Channel]int
	fail  dsproto.Channel
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		conns: make(map[dsproto.Channel]*fakeConn),
		ports: make(map[dsproto.Channel]int),
		fail:  -1,
	}
}

func (n *fakeNetwork) Listen(_ context.Context, ch dsproto.Channel, _ string, desc dsproto.SocketDescriptor) (PacketConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if ch == n.fail {
		return nil, errors.New("address in use")
	}
	c := newFakeConn()
	n.conns[ch] = c
	n.ports[ch] = desc.InPort
	return c, nil
}

func (n *fakeNetwork) Conn(ch dsproto.Channel) *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[ch]
}

func (n *fakeNetwork) Opened() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.conns)
}

func robotResolver(host string, port int) (net.Addr, error) {
	return &net.UDPAddr{IP: net.IPv4(10, 1, 18, 2), Port: port}, nil
}

// recordingSink keeps every datagram it sees
type recordingSink struct {
	mu      sync.Mutex
	packets []dsproto.Direction
	err     error
}

func (r *recordingSink) WritePacket(_ dsproto.Channel, dir dsproto.Direction, _ []byte, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, dir)
	return r.err
}

func (r *recordingSink) Count(dir dsproto.Direction) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.packets {
		if d == dir {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Team = 118
	cfg.Watchdog.FMSTimeoutMs = 5000
	cfg.Watchdog.RobotTimeoutMs = 100
	return cfg
}

// startStation runs a station until the test ends
func startStation(t *testing.T, s *Station) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})
}

func TestStation_RobotLink(t *testing.T) {
	network := newFakeNetwork()
	sink := &recordingSink{}
	proto := dsproto.New(dsproto.FRC2015)
	cfg := testConfig()
	proto.Update(func(st *dsproto.ControlState) { st.TeamNumber = cfg.Team })

	s := New(proto, cfg,
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithSink(sink),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool { return network.Opened() == 3 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, network.Conn(dsproto.ChannelRadio), "radio socket opened")

	robot := network.Conn(dsproto.ChannelRobot)
	require.Eventually(t, func() bool { return len(robot.Sent()) >= 3 }, time.Second, 5*time.Millisecond)
	first := robot.Sent()[0]
	assert.Equal(t, "10.1.18.2:1110", first.addr.String())
	assert.Equal(t, byte(dsproto.TagGeneral), first.data[2])

	robot.inbound <- datagram{[]byte{0, 1, 1, 0, 0x20, 12, 0, 0}, &net.UDPAddr{IP: net.IPv4(10, 1, 18, 2), Port: 1150}}
	require.Eventually(t, func() bool { return proto.State().RobotHasCode }, time.Second, 5*time.Millisecond)
	assert.InDelta(t, 12.0, proto.State().RobotVoltage, 1e-9)

	// No further replies: the watchdog clears the link
	require.Eventually(t, func() bool {
		wd := s.Watchdog(dsproto.ChannelRobot)
		return wd != nil && wd.Expired() && !proto.State().RobotComms
	}, time.Second, 5*time.Millisecond)

	stats := s.Statistics().Channel(dsproto.ChannelRobot)
	assert.Equal(t, uint64(1), stats.Received)
	assert.GreaterOrEqual(t, stats.Resets, uint64(1))
	assert.GreaterOrEqual(t, stats.Sent, uint64(3))

	assert.Eventually(t, func() bool {
		return sink.Count(dsproto.DirectionInbound) == 1 && sink.Count(dsproto.DirectionOutbound) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestStation_RejectedDatagram(t *testing.T) {
	network := newFakeNetwork()
	proto := dsproto.New(dsproto.FRC2015)
	s := New(proto, testConfig(),
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool { return network.Conn(dsproto.ChannelRobot) != nil }, time.Second, 5*time.Millisecond)
	network.Conn(dsproto.ChannelRobot).inbound <- datagram{[]byte{0, 1, 1}, &net.UDPAddr{}}

	require.Eventually(t, func() bool {
		return s.Statistics().Channel(dsproto.ChannelRobot).Rejected == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, proto.State().RobotComms)
	assert.Zero(t, s.Statistics().Channel(dsproto.ChannelRobot).Received)
}

func TestStation_LearnsFMSAddress(t *testing.T) {
	network := newFakeNetwork()
	proto := dsproto.New(dsproto.FRC2015)
	s := New(proto, testConfig(),
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool { return network.Conn(dsproto.ChannelFMS) != nil }, time.Second, 5*time.Millisecond)
	fms := network.Conn(dsproto.ChannelFMS)

	// Nothing is sent to the FMS before its address is known
	time.Sleep(600 * time.Millisecond)
	assert.Empty(t, fms.Sent())

	command := make([]byte, 22)
	command[3] = 0x04 | 0x02 // enabled, autonomous
	command[5] = dsproto.StationBlue2
	fms.inbound <- datagram{command, &net.UDPAddr{IP: net.IPv4(10, 0, 100, 5), Port: 49152}}

	require.Eventually(t, func() bool { return proto.State().FMSComms }, time.Second, 5*time.Millisecond)
	state := proto.State()
	assert.True(t, state.Enabled)
	assert.Equal(t, dsproto.ModeAutonomous, state.Mode)
	assert.Equal(t, dsproto.AllianceBlue, state.Alliance)
	assert.Equal(t, dsproto.Position2, state.Position)
	assert.Equal(t, "10.0.100.5:1160", s.FMSAddress().String())

	require.Eventually(t, func() bool { return len(fms.Sent()) > 0 }, 2*time.Second, 10*time.Millisecond)
	sent := fms.Sent()[0]
	assert.Equal(t, "10.0.100.5:1160", sent.addr.String())
	assert.Len(t, sent.data, dsproto.FMSPacketSize)
}

func TestStation_LegacyResync(t *testing.T) {
	network := newFakeNetwork()
	proto := dsproto.New(dsproto.FRC2014)
	cfg := testConfig()
	cfg.Generation = 2014
	s := New(proto, cfg,
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool { return proto.Latches().Resync }, time.Second, 5*time.Millisecond)
	assert.Nil(t, network.Conn(dsproto.ChannelNetConsole), "netconsole opened for FRC 2014")

	robot := network.Conn(dsproto.ChannelRobot)
	require.Eventually(t, func() bool { return len(robot.Sent()) > 0 }, time.Second, 5*time.Millisecond)
	assert.Len(t, robot.Sent()[0].data, dsproto.LegacyPacketSize)
}

func TestStation_RobotAddressOverride(t *testing.T) {
	network := newFakeNetwork()
	cfg := testConfig()
	cfg.Network.RobotAddress = "127.0.0.1"
	cfg.Network.RobotOutPort = 21110

	var mu sync.Mutex
	var hosts []string
	resolver := func(host string, port int) (net.Addr, error) {
		mu.Lock()
		hosts = append(hosts, host)
		mu.Unlock()
		return &net.UDPAddr{IP: net.ParseIP(host), Port: port}, nil
	}

	s := New(dsproto.New(dsproto.FRC2015), cfg,
		WithListener(network.Listen),
		WithResolver(resolver),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool {
		c := network.Conn(dsproto.ChannelRobot)
		return c != nil && len(c.Sent()) >= 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "127.0.0.1:21110", network.Conn(dsproto.ChannelRobot).Sent()[0].addr.String())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"127.0.0.1"}, hosts, "address resolved more than once")
}

func TestStation_NetConsole(t *testing.T) {
	network := newFakeNetwork()
	s := New(dsproto.New(dsproto.FRC2015), testConfig(),
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool { return network.Conn(dsproto.ChannelNetConsole) != nil }, time.Second, 5*time.Millisecond)
	network.mu.Lock()
	assert.Equal(t, dsproto.PortNetConsoleIn, network.ports[dsproto.ChannelNetConsole])
	network.mu.Unlock()

	network.Conn(dsproto.ChannelNetConsole).inbound <- datagram{[]byte("robot code started\n"), &net.UDPAddr{}}
	require.Eventually(t, func() bool {
		return s.Statistics().Channel(dsproto.ChannelNetConsole).Received == 1
	}, time.Second, 5*time.Millisecond)
}

func TestStation_FailingSinkDropped(t *testing.T) {
	network := newFakeNetwork()
	sink := &recordingSink{err: errors.New("disk full")}
	s := New(dsproto.New(dsproto.FRC2015), testConfig(),
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithSink(sink),
		WithLogger(zerolog.Nop()))
	startStation(t, s)

	require.Eventually(t, func() bool {
		c := network.Conn(dsproto.ChannelRobot)
		return c != nil && len(c.Sent()) >= 5
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return sink.Count(dsproto.DirectionOutbound) == 1 }, time.Second, 5*time.Millisecond)

	// Later datagrams never reach the dropped sink
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, sink.Count(dsproto.DirectionOutbound))
}

// blockingSink stalls on its first write until released
type blockingSink struct {
	release chan struct{}
	once    sync.Once
	writes  atomic.Int64
}

func (b *blockingSink) WritePacket(dsproto.Channel, dsproto.Direction, []byte, time.Time) error {
	b.writes.Add(1)
	<-b.release
	return nil
}

func (b *blockingSink) Release() {
	b.once.Do(func() { close(b.release) })
}

func TestStation_BlockedSinkDoesNotStallTraffic(t *testing.T) {
	network := newFakeNetwork()
	sink := &blockingSink{release: make(chan struct{})}
	proto := dsproto.New(dsproto.FRC2015)
	s := New(proto, testConfig(),
		WithListener(network.Listen),
		WithResolver(robotResolver),
		WithSink(sink),
		WithLogger(zerolog.Nop()))
	startStation(t, s)
	// Cleanups run in reverse, so the sink is released before Run is stopped
	t.Cleanup(sink.Release)

	require.Eventually(t, func() bool { return sink.writes.Load() == 1 }, time.Second, 5*time.Millisecond)

	robot := network.Conn(dsproto.ChannelRobot)
	before := len(robot.Sent())
	require.Eventually(t, func() bool { return len(robot.Sent()) >= before+10 }, time.Second, 5*time.Millisecond)

	robot.inbound <- datagram{[]byte{0, 1, 1, 0, 0x20, 12, 0, 0}, &net.UDPAddr{IP: net.IPv4(10, 1, 18, 2), Port: 1150}}
	require.Eventually(t, func() bool { return proto.State().RobotComms }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), sink.writes.Load())
}

func TestStation_SinkQueueOverflowDrops(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	defer sink.Release()

	s := New(dsproto.New(dsproto.FRC2015), testConfig(), WithSink(sink), WithLogger(zerolog.Nop()))
	s.queue = make(chan sinkRecord, 2)

	for i := 0; i < 5; i++ {
		s.emit(dsproto.ChannelRobot, dsproto.DirectionOutbound, []byte{byte(i)})
	}
	assert.Equal(t, uint64(3), s.DroppedRecords())
	assert.Len(t, s.queue, 2)
}

func TestStation_ListenError(t *testing.T) {
	network := newFakeNetwork()
	network.fail = dsproto.ChannelRobot
	s := New(dsproto.New(dsproto.FRC2015), testConfig(),
		WithListener(network.Listen),
		WithLogger(zerolog.Nop()))

	err := s.Run(context.Background())
	require.Error(t, err)

	fms := network.Conn(dsproto.ChannelFMS)
	require.NotNil(t, fms)
	select {
	case <-fms.closed:
	default:
		t.Error("FMS socket left open after failed start")
	}
}
