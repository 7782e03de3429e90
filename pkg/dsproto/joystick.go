// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import "math"

// HatNeutral is the hat value reported when no direction is pressed
const HatNeutral = -1

// Joystick is one polled input device. Axis values are normalized to
// [-1, 1]; hats hold an angle in degrees or HatNeutral.
type Joystick struct {
	Axes    []float64
	Buttons []bool
	Hats    []int
}

// JoystickLimits bounds what a generation can carry per packet.
type JoystickLimits struct {
	Joysticks int
	Axes      int
	Buttons   int
	Hats      int
}

// JoystickSource supplies the latest joystick snapshot.
type JoystickSource interface {
	Joysticks() []Joystick
}

// JoystickSourceFunc adapts a function to JoystickSource
type JoystickSourceFunc func() []Joystick

// Joysticks calls f
func (f JoystickSourceFunc) Joysticks() []Joystick {
	return f()
}

// AxisQuantizer converts a normalized axis value to its wire byte.
type AxisQuantizer func(value float64) byte

// AxisToByte maps [-1, 1] onto a signed byte in [-127, 127].
// Out-of-range and NaN inputs are clamped.
func AxisToByte(value float64) byte {
	if math.IsNaN(value) {
		return 0
	}
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	return byte(int8(value * 127))
}

// ButtonFlags packs button states into a bitmask, bit i set when button i
// is pressed. Buttons beyond the sixteenth are ignored.
func ButtonFlags(buttons []bool) uint16 {
	var flags uint16
	for i, pressed := range buttons {
		if i >= 16 {
			break
		}
		if pressed {
			flags |= 1 << uint(i)
		}
	}
	return flags
}

// clamp truncates the joystick to the given limits
func (j Joystick) clamp(limits JoystickLimits) Joystick {
	out := j
	if len(out.Axes) > limits.Axes {
		out.Axes = out.Axes[:limits.Axes]
	}
	if len(out.Buttons) > limits.Buttons {
		out.Buttons = out.Buttons[:limits.Buttons]
	}
	if len(out.Hats) > limits.Hats {
		out.Hats = out.Hats[:limits.Hats]
	}
	return out
}

// clampSnapshot truncates a snapshot to the given limits
func clampSnapshot(sticks []Joystick, limits JoystickLimits) []Joystick {
	if len(sticks) > limits.Joysticks {
		sticks = sticks[:limits.Joysticks]
	}
	out := make([]Joystick, len(sticks))
	for i, j := range sticks {
		out[i] = j.clamp(limits)
	}
	return out
}

// joystickBlockSize returns the size byte of one FRC 2015 joystick block:
// two header bytes, three button bytes, the axis count plus axes and the hat
// count plus two bytes per hat.
func joystickBlockSize(j Joystick) uint8 {
	header := 2
	buttons := 3
	axes := len(j.Axes) + 1
	hats := len(j.Hats)*2 + 1
	return uint8(header + buttons + axes + hats)
}

// encodeJoystickBlocks serializes the attached joysticks for FRC 2015
func encodeJoystickBlocks(sticks []Joystick, quantize AxisQuantizer) []byte {
	data := make([]byte, 0, len(sticks)*16)
	for _, j := range sticks {
		data = append(data, joystickBlockSize(j), TagJoystick)

		data = append(data, uint8(len(j.Axes)))
		for _, axis := range j.Axes {
			data = append(data, quantize(axis))
		}

		flags := ButtonFlags(j.Buttons)
		data = append(data, uint8(len(j.Buttons)), byte(flags>>8), byte(flags))

		data = append(data, uint8(len(j.Hats)))
		for _, hat := range j.Hats {
			h := uint16(int16(hat))
			data = append(data, byte(h>>8), byte(h))
		}
	}
	return data
}

// encodeLegacyJoysticks serializes a fixed joystick block for FRC 2014. Every
// slot up to the limit is written; missing joysticks, axes and buttons are
// sent as neutral values.
func encodeLegacyJoysticks(sticks []Joystick, limits JoystickLimits, quantize AxisQuantizer) []byte {
	data := make([]byte, 0, limits.Joysticks*(limits.Axes+2))
	for i := 0; i < limits.Joysticks; i++ {
		var j Joystick
		if i < len(sticks) {
			j = sticks[i]
		}

		for a := 0; a < limits.Axes; a++ {
			value := 0.0
			if a < len(j.Axes) {
				value = j.Axes[a]
			}
			data = append(data, quantize(value))
		}

		buttons := j.Buttons
		if len(buttons) > limits.Buttons {
			buttons = buttons[:limits.Buttons]
		}
		flags := ButtonFlags(buttons)
		data = append(data, byte(flags>>8), byte(flags))
	}
	return data
}
