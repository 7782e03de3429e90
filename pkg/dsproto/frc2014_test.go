// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestFRC2014_RobotPacketSize(t *testing.T) {
	sticks := []Joystick{
		{Axes: []float64{1, -1, 0.5, 0, 0, 0, 0.3, 0.9}, Buttons: make([]bool, 16)},
		{Axes: []float64{0.1}},
		{}, {}, {}, {},
	}
	p := New(FRC2014, WithJoysticks(JoystickSourceFunc(func() []Joystick { return sticks })))
	p.Update(func(s *ControlState) { s.TeamNumber = 9999; s.EmergencyStop = true })

	for i := 0; i < 5; i++ {
		if data := p.CreateRobotPacket(); len(data) != LegacyPacketSize {
			t.Fatalf("packet %d: len = %d, want %d", i, len(data), LegacyPacketSize)
		}
	}
	if data := New(FRC2014).CreateRobotPacket(); len(data) != LegacyPacketSize {
		t.Errorf("empty state: len = %d, want %d", len(data), LegacyPacketSize)
	}
}

func TestFRC2014_RobotPacketLayout(t *testing.T) {
	p := New(FRC2014)
	p.Update(func(s *ControlState) {
		s.TeamNumber = 254
		s.Alliance = AllianceBlue
		s.Position = Position2
	})
	p.CreateRobotPacket()
	data := p.CreateRobotPacket()

	if binary.BigEndian.Uint16(data[0:2]) != 1 {
		t.Errorf("counter = %d, want 1", binary.BigEndian.Uint16(data[0:2]))
	}
	if data[3] != 0x00 {
		t.Errorf("digital inputs = 0x%02X, want 0", data[3])
	}
	if binary.BigEndian.Uint16(data[4:6]) != 254 {
		t.Errorf("team = %d, want 254", binary.BigEndian.Uint16(data[4:6]))
	}
	if data[6] != 'B' || data[7] != '2' {
		t.Errorf("station = %c%c, want B2", data[6], data[7])
	}
	if got := string(data[72:80]); got != "04011600" {
		t.Errorf("version stamp = %q, want 04011600", got)
	}

	// Neutral joysticks: axes are zero, buttons clear
	for i := 8; i < 8+32; i++ {
		if data[i] != 0 {
			t.Fatalf("joystick byte %d = 0x%02X, want 0", i, data[i])
		}
	}
	for i := 80; i < legacyChecksumOffset; i++ {
		if data[i] != 0 {
			t.Fatalf("padding byte %d = 0x%02X, want 0", i, data[i])
		}
	}
}

func TestFRC2014_Checksum(t *testing.T) {
	p := New(FRC2014)
	p.Update(func(s *ControlState) { s.TeamNumber = 1114; s.Mode = ModeAutonomous; s.Enabled = true })
	data := p.CreateRobotPacket()

	sum := binary.BigEndian.Uint32(data[legacyChecksumOffset:])
	zeroed := append([]byte(nil), data...)
	copy(zeroed[legacyChecksumOffset:], []byte{0, 0, 0, 0})
	if want := CalculateCRC(zeroed); sum != want {
		t.Errorf("checksum = 0x%08X, want 0x%08X", sum, want)
	}
}

func TestFRC2014_Joysticks(t *testing.T) {
	sticks := []Joystick{
		{Axes: []float64{1, -1}, Buttons: []bool{true, true}},
		{},
		{Buttons: []bool{false, false, false, false, false, false, false, false, false, true}},
	}
	p := New(FRC2014, WithJoysticks(JoystickSourceFunc(func() []Joystick { return sticks })))
	data := p.CreateRobotPacket()

	block := data[legacyHeaderSize : legacyHeaderSize+32]
	want := make([]byte, 32)
	want[0], want[1] = 0x7F, 0x81
	want[7] = 0x03
	want[16+6], want[16+7] = 0x02, 0x00
	if !bytes.Equal(block, want) {
		t.Errorf("joystick block = % X\nwant             % X", block, want)
	}
}

func TestFRC2014_ControlCode(t *testing.T) {
	tests := []struct {
		name   string
		state  func(*ControlState)
		reboot bool
		resync bool
		want   uint8
	}{
		{"disabled", func(s *ControlState) {}, false, false, 0x40},
		{"disabled ignores enable", func(s *ControlState) { s.Enabled = true }, false, false, 0x40},
		{"teleop enabled", func(s *ControlState) { s.Mode = ModeTeleoperated; s.Enabled = true }, false, false, 0x60},
		{"autonomous enabled", func(s *ControlState) { s.Mode = ModeAutonomous; s.Enabled = true }, false, false, 0x70},
		{"test disabled", func(s *ControlState) { s.Mode = ModeTest }, false, false, 0x42},
		{"fms attached", func(s *ControlState) { s.Mode = ModeTeleoperated; s.FMSComms = true }, false, false, 0x48},
		{"resync", func(s *ControlState) { s.Mode = ModeTeleoperated }, false, true, 0x44},
		{"e-stop replaces byte", func(s *ControlState) {
			s.Mode = ModeAutonomous
			s.Enabled = true
			s.FMSComms = true
			s.EmergencyStop = true
		}, false, true, 0x00},
		{"reboot replaces e-stop", func(s *ControlState) { s.EmergencyStop = true }, true, false, 0x80},
		{"reboot replaces mode", func(s *ControlState) { s.Mode = ModeTeleoperated; s.Enabled = true }, true, false, 0x80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(FRC2014)
			p.Update(tt.state)
			if tt.resync {
				p.ResetRobot()
			}
			if tt.reboot {
				p.RebootRobot()
			}
			if data := p.CreateRobotPacket(); data[2] != tt.want {
				t.Errorf("control code = 0x%02X, want 0x%02X", data[2], tt.want)
			}
		})
	}
}

func TestFRC2014_ResetRobotSetsResync(t *testing.T) {
	p := New(FRC2014)
	p.Update(func(s *ControlState) { s.Mode = ModeTeleoperated })
	p.RebootRobot()
	p.RestartRobotCode()

	p.ResetRobot()
	l := p.Latches()
	if !l.Resync || l.Reboot || l.RestartCode {
		t.Fatalf("latches after reset = %+v", l)
	}

	// Nothing clears resync again
	reply := make([]byte, LegacyPacketSize)
	reply[0] = 0x40 // e-stop released
	p.ReadRobotPacket(reply)
	p.ResetFMS()
	p.ResetRadio()
	for i := 0; i < 3; i++ {
		if data := p.CreateRobotPacket(); data[2]&legacyResync == 0 {
			t.Fatalf("packet %d missing resync bit: 0x%02X", i, data[2])
		}
	}
}

func TestFRC2014_ReadRobotPacket(t *testing.T) {
	data := make([]byte, LegacyPacketSize)
	data[0] = 0x40
	data[1] = 0x12
	data[2] = 0x14

	p := New(FRC2014)
	if !p.ReadRobotPacket(data) {
		t.Fatal("ReadRobotPacket returned false")
	}
	s := p.State()
	// upper = 18*12/18 = 12, lower = 20*12/18 = 13
	if want := 12 + 13.0/255; math.Abs(s.RobotVoltage-want) > 1e-9 {
		t.Errorf("RobotVoltage = %f, want %f", s.RobotVoltage, want)
	}
	if s.EmergencyStop {
		t.Error("EmergencyStop = true, want false")
	}
	if !s.RobotHasCode {
		t.Error("RobotHasCode = false, want true")
	}

	data[0] = 0x00
	p.ReadRobotPacket(data)
	if !p.State().EmergencyStop {
		t.Error("EmergencyStop = false after 0x00 status")
	}
}

func TestFRC2014_ReadRobotPacketShort(t *testing.T) {
	p := New(FRC2014)
	p.Update(func(s *ControlState) { s.RobotVoltage = 7.25; s.TeamNumber = 42 })
	before := p.State()

	for _, size := range []int{0, 100, LegacyPacketSize - 1} {
		if p.ReadRobotPacket(make([]byte, size)) {
			t.Errorf("size %d: ReadRobotPacket returned true", size)
		}
	}
	if p.State() != before {
		t.Error("state changed on failed read")
	}
}

func TestFRC2014_ReadFMSPacket(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		mode     ControlMode
		enabled  bool
		alliance Alliance
		position Position
	}{
		// 'S' shares bits with 'C', so the teleoperated test wins
		{"S enabled", []byte{0, 0, 'S' | 0x20, 'R', '1'}, ModeTeleoperated, true, AllianceRed, Position1},
		{"S disabled", []byte{0, 0, 'S', 'B', '3'}, ModeTeleoperated, false, AllianceBlue, Position3},
		{"teleop enabled", []byte{0, 0, 'C' | 0x20, 'B', '2'}, ModeTeleoperated, true, AllianceBlue, Position2},
		{"low bits select teleop", []byte{0, 0, 0x01, 'R', '2'}, ModeTeleoperated, false, AllianceRed, Position2},
		{"0x10 selects autonomous", []byte{0, 0, 0x10, 'R', '1'}, ModeAutonomous, false, AllianceRed, Position1},
		{"0x30 selects autonomous enabled", []byte{0, 0, 0x30, 'B', '1'}, ModeAutonomous, true, AllianceBlue, Position1},
		{"enable bit alone keeps mode", []byte{0, 0, 0x20, 'X', '9'}, ModeDisabled, true, AllianceBlue, Position1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(FRC2014)
			if !p.ReadFMSPacket(tt.data) {
				t.Fatal("ReadFMSPacket returned false")
			}
			s := p.State()
			if s.Mode != tt.mode || s.Enabled != tt.enabled {
				t.Errorf("mode/enabled = %s/%t, want %s/%t", s.Mode, s.Enabled, tt.mode, tt.enabled)
			}
			if s.Alliance != tt.alliance || s.Position != tt.position {
				t.Errorf("station = %s %d, want %s %d", s.Alliance, s.Position, tt.alliance, tt.position)
			}
		})
	}

	p := New(FRC2014)
	if p.ReadFMSPacket([]byte{0, 0, 'S', 'R'}) {
		t.Error("4-byte FMS packet accepted")
	}
}

func TestFRC2014_EmptyChannels(t *testing.T) {
	p := New(FRC2014)
	if data := p.CreateFMSPacket(); len(data) != 0 {
		t.Errorf("FMS packet len = %d, want 0", len(data))
	}
	if data := p.CreateRadioPacket(); len(data) != 0 {
		t.Errorf("radio packet len = %d, want 0", len(data))
	}
	if p.ReadRadioPacket(make([]byte, 64)) {
		t.Error("ReadRadioPacket returned true")
	}
}

func TestFRC2014_Addresses(t *testing.T) {
	p := New(FRC2014)
	p.Update(func(s *ControlState) { s.TeamNumber = 42 })

	if got := p.FMSAddress(); got != "" {
		t.Errorf("FMSAddress() = %q, want empty", got)
	}
	if got := p.RadioAddress(); got != "10.0.42.1" {
		t.Errorf("RadioAddress() = %q", got)
	}
	if got := p.RobotAddress(); got != "10.0.42.2" {
		t.Errorf("RobotAddress() = %q", got)
	}
}
