// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package station runs the network side of a driver station around a
// dsproto.Protocol: one UDP socket per enabled channel, send timers,
// watchdogs and traffic sinks.
package station

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Thermoquad/stationlink/internal/config"
	"github.com/Thermoquad/stationlink/pkg/dsproto"
)

// readTimeout bounds each blocking read so cancellation is noticed
const readTimeout = 250 * time.Millisecond

// maxDatagram covers the 1024-byte FRC 2014 robot reply with room to spare
const maxDatagram = 2048

// sinkQueueSize is how many datagrams may wait for the sinks before new
// ones are dropped
const sinkQueueSize = 512

var channels = []dsproto.Channel{
	dsproto.ChannelFMS,
	dsproto.ChannelRadio,
	dsproto.ChannelRobot,
	dsproto.ChannelNetConsole,
}

// Sink receives every datagram sent or received by the station. Sinks are
// written from a single goroutine, in traffic order.
type Sink interface {
	WritePacket(ch dsproto.Channel, dir dsproto.Direction, data []byte, at time.Time) error
}

type sinkRecord struct {
	ch   dsproto.Channel
	dir  dsproto.Direction
	data []byte
	at   time.Time
}

// Station drives one protocol over the network
type Station struct {
	proto   *dsproto.Protocol
	cfg     *config.Config
	stats   *dsproto.Statistics
	log     zerolog.Logger
	listen  ListenFunc
	resolve ResolveFunc
	clock   func() time.Time

	sinks    []Sink
	sinkless bool
	queue    chan sinkRecord
	dropped  atomic.Uint64

	mu        sync.Mutex
	fmsAddr   net.Addr
	resolved  map[string]net.Addr
	watchdogs map[dsproto.Channel]*Watchdog
}

// Option configures a Station
type Option func(*Station)

// WithListener replaces ListenUDP
func WithListener(listen ListenFunc) Option {
	return func(s *Station) {
		s.listen = listen
	}
}

// WithResolver replaces ResolveUDP
func WithResolver(resolve ResolveFunc) Option {
	return func(s *Station) {
		s.resolve = resolve
	}
}

// WithSink adds a traffic sink
func WithSink(sink Sink) Option {
	return func(s *Station) {
		s.sinks = append(s.sinks, sink)
	}
}

// WithLogger replaces the global logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Station) {
		s.log = logger
	}
}

// WithClock sets the clock used for watchdogs and sink timestamps
func WithClock(clock func() time.Time) Option {
	return func(s *Station) {
		s.clock = clock
	}
}

// New creates a station for proto configured by cfg
func New(proto *dsproto.Protocol, cfg *config.Config, opts ...Option) *Station {
	s := &Station{
		proto:     proto,
		cfg:       cfg,
		stats:     dsproto.NewStatistics(),
		log:       log.Logger,
		listen:    ListenUDP(cfg.Network.TTL),
		resolve:   ResolveUDP,
		clock:     time.Now,
		resolved:  make(map[string]net.Addr),
		watchdogs: make(map[dsproto.Channel]*Watchdog),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sinkless = len(s.sinks) == 0
	return s
}

// Protocol returns the driven protocol
func (s *Station) Protocol() *dsproto.Protocol {
	return s.proto
}

// Statistics returns the traffic counters
func (s *Station) Statistics() *dsproto.Statistics {
	return s.stats
}

// DroppedRecords returns how many datagrams were not passed to the sinks
// because the sink queue was full
func (s *Station) DroppedRecords() uint64 {
	return s.dropped.Load()
}

// FMSAddress returns the FMS address learned from inbound traffic, or nil
func (s *Station) FMSAddress() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fmsAddr
}

// Watchdog returns the watchdog of a channel while Run is active
func (s *Station) Watchdog(ch dsproto.Channel) *Watchdog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchdogs[ch]
}

// Socket returns the effective socket descriptor of a channel
func (s *Station) Socket(ch dsproto.Channel) dsproto.SocketDescriptor {
	return s.cfg.Socket(ch, s.proto.Socket(ch))
}

// Run opens every enabled channel and services it until ctx is cancelled
func (s *Station) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conns := make(map[dsproto.Channel]PacketConn)
	closeAll := func() {
		for _, conn := range conns {
			conn.Close()
		}
	}

	for _, ch := range channels {
		desc := s.Socket(ch)
		if !desc.Enabled {
			continue
		}
		conn, err := s.listen(ctx, ch, s.cfg.Network.BindHost, desc)
		if err != nil {
			closeAll()
			return err
		}
		conns[ch] = conn
		s.log.Info().
			Str("channel", ch.String()).
			Str("socket", desc.String()).
			Msg("channel open")
	}

	s.mu.Lock()
	for ch := range conns {
		if hasWatchdog(ch) {
			s.watchdogs[ch] = NewWatchdog(s.cfg.WatchdogTimeout(ch), s.clock)
		}
	}
	s.mu.Unlock()

	s.queue = make(chan sinkRecord, sinkQueueSize)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		s.dispatch()
	}()

	var wg sync.WaitGroup
	for ch, conn := range conns {
		desc := s.Socket(ch)

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.receive(ctx, ch, desc, conn)
		}()

		if interval := s.proto.Interval(ch); interval > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.transmit(ctx, ch, desc, conn, interval)
			}()
		}

		if wd := s.Watchdog(ch); wd != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				wd.Run(ctx, func() { s.expire(ch) })
			}()
		}
	}

	<-ctx.Done()
	closeAll()
	wg.Wait()

	close(s.queue)
	<-dispatched

	s.mu.Lock()
	s.watchdogs = make(map[dsproto.Channel]*Watchdog)
	s.mu.Unlock()

	s.log.Info().Msg("station stopped")
	return nil
}

func hasWatchdog(ch dsproto.Channel) bool {
	return ch == dsproto.ChannelFMS || ch == dsproto.ChannelRadio || ch == dsproto.ChannelRobot
}

func (s *Station) receive(ctx context.Context, ch dsproto.Channel, desc dsproto.SocketDescriptor, conn PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		if ctx.Err() != nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Debug().Err(err).Str("channel", ch.String()).Msg("read failed")
			continue
		}

		data := append([]byte(nil), buf[:n]...)
		s.handle(ch, desc, data, addr)
	}
}

// handle passes a datagram to the protocol and updates the link state
func (s *Station) handle(ch dsproto.Channel, desc dsproto.SocketDescriptor, data []byte, addr net.Addr) {
	s.emit(ch, dsproto.DirectionInbound, data)

	var ok bool
	switch ch {
	case dsproto.ChannelFMS:
		ok = s.proto.ReadFMSPacket(data)
		if ok {
			s.learnFMS(addr, desc.OutPort)
		}
	case dsproto.ChannelRadio:
		ok = s.proto.ReadRadioPacket(data)
	case dsproto.ChannelRobot:
		ok = s.proto.ReadRobotPacket(data)
	case dsproto.ChannelNetConsole:
		ok = true
		s.log.Info().
			Str("channel", ch.String()).
			Msg(strings.TrimRight(string(data), "\r\n\x00"))
	}
	s.stats.RecordReceived(ch, ok)

	if !ok {
		s.log.Debug().
			Str("channel", ch.String()).
			Int("len", len(data)).
			Msg("datagram rejected")
		return
	}

	if wd := s.Watchdog(ch); wd != nil {
		if wd.Expired() {
			s.log.Info().Str("channel", ch.String()).Msg("link up")
		}
		wd.Feed()
	}
	s.setLink(ch, true)
}

// learnFMS records the FMS address from the first accepted datagram
func (s *Station) learnFMS(addr net.Addr, port int) {
	udp, ok := addr.(*net.UDPAddr)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fmsAddr != nil {
		if prev, ok := s.fmsAddr.(*net.UDPAddr); ok && prev.IP.Equal(udp.IP) {
			return
		}
	}
	s.fmsAddr = &net.UDPAddr{IP: udp.IP, Port: port}
	s.log.Info().Str("address", s.fmsAddr.String()).Msg("FMS address learned")
}

func (s *Station) setLink(ch dsproto.Channel, up bool) {
	s.proto.Update(func(st *dsproto.ControlState) {
		switch ch {
		case dsproto.ChannelFMS:
			st.FMSComms = up
		case dsproto.ChannelRadio:
			st.RadioComms = up
		case dsproto.ChannelRobot:
			st.RobotComms = up
		}
	})
}

// expire runs when a channel's watchdog starves
func (s *Station) expire(ch dsproto.Channel) {
	switch ch {
	case dsproto.ChannelFMS:
		s.proto.ResetFMS()
	case dsproto.ChannelRadio:
		s.proto.ResetRadio()
	case dsproto.ChannelRobot:
		s.proto.ResetRobot()
	}
	s.setLink(ch, false)
	s.stats.RecordReset(ch)

	s.log.Warn().
		Str("channel", ch.String()).
		Dur("timeout", s.cfg.WatchdogTimeout(ch)).
		Msg("watchdog expired")
}

func (s *Station) transmit(ctx context.Context, ch dsproto.Channel, desc dsproto.SocketDescriptor, conn PacketConn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.send(ch, desc, conn)
		}
	}
}

// send builds and sends one datagram once the destination is known
func (s *Station) send(ch dsproto.Channel, desc dsproto.SocketDescriptor, conn PacketConn) {
	dest := s.destination(ch, desc)
	if dest == nil {
		return
	}

	var data []byte
	switch ch {
	case dsproto.ChannelFMS:
		data = s.proto.CreateFMSPacket()
	case dsproto.ChannelRadio:
		data = s.proto.CreateRadioPacket()
	case dsproto.ChannelRobot:
		data = s.proto.CreateRobotPacket()
	}
	if len(data) == 0 {
		return
	}

	if _, err := conn.WriteTo(data, dest); err != nil {
		s.log.Debug().Err(err).Str("channel", ch.String()).Msg("send failed")
		return
	}
	s.stats.RecordSent(ch)
	s.emit(ch, dsproto.DirectionOutbound, data)
}

// destination resolves where a channel sends; nil while unknown
func (s *Station) destination(ch dsproto.Channel, desc dsproto.SocketDescriptor) net.Addr {
	var host string
	switch {
	case desc.Broadcast:
		host = broadcastAddress
	case ch == dsproto.ChannelFMS:
		return s.FMSAddress()
	case ch == dsproto.ChannelRobot && s.cfg.Network.RobotAddress != "":
		host = s.cfg.Network.RobotAddress
	default:
		host = s.proto.Address(ch)
	}
	if host == "" {
		return nil
	}

	key := net.JoinHostPort(host, strconv.Itoa(desc.OutPort))
	s.mu.Lock()
	addr, ok := s.resolved[key]
	s.mu.Unlock()
	if ok {
		return addr
	}

	addr, err := s.resolve(host, desc.OutPort)
	if err != nil {
		s.log.Debug().Err(err).Str("channel", ch.String()).Str("host", host).Msg("resolve failed")
		return nil
	}

	s.mu.Lock()
	s.resolved[key] = addr
	s.mu.Unlock()
	return addr
}

// emit queues a datagram for the sinks without waiting on them
func (s *Station) emit(ch dsproto.Channel, dir dsproto.Direction, data []byte) {
	if s.sinkless {
		return
	}
	select {
	case s.queue <- sinkRecord{ch: ch, dir: dir, data: data, at: s.clock()}:
	default:
		if s.dropped.Add(1) == 1 {
			s.log.Warn().Msg("sinks are falling behind, dropping datagrams")
		}
	}
}

// dispatch writes queued datagrams to the sinks until the queue is closed.
// A failing sink is dropped.
func (s *Station) dispatch() {
	for rec := range s.queue {
		kept := s.sinks[:0]
		for _, sink := range s.sinks {
			if err := sink.WritePacket(rec.ch, rec.dir, rec.data, rec.at); err != nil {
				s.log.Error().Err(err).Msg("sink failed, dropping it")
				continue
			}
			kept = append(kept, sink)
		}
		s.sinks = kept
	}
}
