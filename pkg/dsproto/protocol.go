// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"sync"
	"time"
)

// generation is the closed set of wire layouts. Implementations run with
// the owning Protocol's lock held and may touch its state directly.
type generation interface {
	id() Generation
	limits() JoystickLimits
	socket(ch Channel) SocketDescriptor

	fmsAddress(team int) string
	radioAddress(team int) string
	robotAddress(team int) string

	createFMSPacket(p *Protocol, counter uint16) []byte
	createRadioPacket(p *Protocol, counter uint16) []byte
	createRobotPacket(p *Protocol, counter uint16) []byte

	readFMSPacket(p *Protocol, data []byte) bool
	readRadioPacket(p *Protocol, data []byte) bool
	readRobotPacket(p *Protocol, data []byte) bool

	resetFMS(p *Protocol)
	resetRadio(p *Protocol)
	resetRobot(p *Protocol)
}

// Protocol is the active protocol descriptor. It owns the control state,
// latched commands and per-channel packet counters for one generation.
// All methods are safe for concurrent use; each call holds a single lock
// for its whole duration.
type Protocol struct {
	mu sync.Mutex

	gen      generation
	state    ControlState
	latches  Latches
	counters [3]uint16

	joysticks JoystickSource
	quantize  AxisQuantizer
	clock     func() time.Time
}

// Option configures a Protocol at construction
type Option func(*Protocol)

// WithClock sets the wall clock used for the FRC 2015 date/time block
func WithClock(clock func() time.Time) Option {
	return func(p *Protocol) {
		p.clock = clock
	}
}

// WithJoysticks sets the joystick snapshot source
func WithJoysticks(source JoystickSource) Option {
	return func(p *Protocol) {
		p.joysticks = source
	}
}

// WithAxisQuantizer replaces AxisToByte as the axis encoder
func WithAxisQuantizer(quantize AxisQuantizer) Option {
	return func(p *Protocol) {
		p.quantize = quantize
	}
}

// WithState sets the initial control state
func WithState(state ControlState) Option {
	return func(p *Protocol) {
		p.state = state
	}
}

// New creates a protocol descriptor for the given generation. Unknown
// generations fall back to FRC 2015.
func New(gen Generation, opts ...Option) *Protocol {
	p := &Protocol{
		state:    DefaultControlState(),
		quantize: AxisToByte,
		clock:    time.Now,
	}
	switch gen {
	case FRC2014:
		p.gen = frc2014{}
	default:
		p.gen = frc2015{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generation returns the wire generation of this descriptor
func (p *Protocol) Generation() Generation {
	return p.gen.id()
}

// Name returns the human-readable protocol name
func (p *Protocol) Name() string {
	return p.gen.id().String()
}

// Limits returns the joystick limits of the generation
func (p *Protocol) Limits() JoystickLimits {
	return p.gen.limits()
}

// Interval returns the send interval of a channel; zero means the channel
// is never sent on a timer.
func (p *Protocol) Interval(ch Channel) time.Duration {
	switch ch {
	case ChannelFMS:
		return fmsIntervalMs * time.Millisecond
	case ChannelRadio:
		return radioIntervalMs * time.Millisecond
	case ChannelRobot:
		return robotIntervalMs * time.Millisecond
	}
	return 0
}

// Socket returns the socket descriptor of a channel
func (p *Protocol) Socket(ch Channel) SocketDescriptor {
	return p.gen.socket(ch)
}

// State returns a copy of the current control state
func (p *Protocol) State() ControlState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Update applies fn to the control state under the protocol lock. Hosts use
// it to push the team number, operator commands and link flags.
func (p *Protocol) Update(fn func(*ControlState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

// Latches returns a copy of the latched commands
func (p *Protocol) Latches() Latches {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latches
}

// Counter returns the index the next packet on ch will carry
func (p *Protocol) Counter(ch Channel) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if int(ch) >= len(p.counters) {
		return 0
	}
	return p.counters[ch]
}

// FMSAddress returns the FMS address, empty when it must be learned from
// inbound traffic
func (p *Protocol) FMSAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.fmsAddress(p.state.TeamNumber)
}

// RadioAddress returns the radio address for the current team
func (p *Protocol) RadioAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.radioAddress(p.state.TeamNumber)
}

// RobotAddress returns the robot address for the current team
func (p *Protocol) RobotAddress() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.robotAddress(p.state.TeamNumber)
}

// Address resolves the destination of a channel
func (p *Protocol) Address(ch Channel) string {
	switch ch {
	case ChannelFMS:
		return p.FMSAddress()
	case ChannelRadio:
		return p.RadioAddress()
	case ChannelRobot:
		return p.RobotAddress()
	}
	return p.gen.socket(ch).Address
}

// CreateFMSPacket builds the next datagram for the FMS
func (p *Protocol) CreateFMSPacket() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	data := p.gen.createFMSPacket(p, p.counters[ChannelFMS])
	p.counters[ChannelFMS]++
	return data
}

// CreateRadioPacket builds the next datagram for the radio
func (p *Protocol) CreateRadioPacket() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	data := p.gen.createRadioPacket(p, p.counters[ChannelRadio])
	p.counters[ChannelRadio]++
	return data
}

// CreateRobotPacket builds the next datagram for the robot
func (p *Protocol) CreateRobotPacket() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	data := p.gen.createRobotPacket(p, p.counters[ChannelRobot])
	p.counters[ChannelRobot]++
	return data
}

// ReadFMSPacket interprets a datagram from the FMS. It reports false and
// leaves the state untouched when the datagram cannot be used.
func (p *Protocol) ReadFMSPacket(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.readFMSPacket(p, data)
}

// ReadRadioPacket interprets a datagram from the radio
func (p *Protocol) ReadRadioPacket(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.readRadioPacket(p, data)
}

// ReadRobotPacket interprets a datagram from the robot. It reports false and
// leaves the state untouched when the datagram cannot be used.
func (p *Protocol) ReadRobotPacket(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen.readRobotPacket(p, data)
}

// ResetFMS is called when the FMS watchdog expires
func (p *Protocol) ResetFMS() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen.resetFMS(p)
}

// ResetRadio is called when the radio watchdog expires
func (p *Protocol) ResetRadio() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen.resetRadio(p)
}

// ResetRobot is called when the robot watchdog expires
func (p *Protocol) ResetRobot() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen.resetRobot(p)
}

// RebootRobot arms the reboot latch. It stays armed until ResetRobot.
func (p *Protocol) RebootRobot() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latches.Reboot = true
}

// RestartRobotCode arms the restart-code latch. It stays armed until
// ResetRobot.
func (p *Protocol) RestartRobotCode() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latches.RestartCode = true
}

// snapshot returns the current joysticks clamped to the generation limits
func (p *Protocol) snapshot() []Joystick {
	if p.joysticks == nil {
		return nil
	}
	return clampSnapshot(p.joysticks.Joysticks(), p.gen.limits())
}
