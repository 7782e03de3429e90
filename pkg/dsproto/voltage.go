// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

// EncodeVoltage splits a battery voltage into the FRC 2015 integer and
// decimal bytes. The fractional part is truncated to an integer before it is
// scaled, so the decimal byte is always zero; FMS firmware has only ever
// received that value. Voltages outside [0, 255] are clamped.
func EncodeVoltage(voltage float64) (integer, decimal uint8) {
	if !(voltage >= 0) {
		return 0, 0
	}
	if voltage > 255 {
		voltage = 255
	}
	integer = uint8(voltage)
	decimal = uint8(voltage-float64(int(voltage))) * 100
	return integer, decimal
}

// DecodeVoltage rebuilds a voltage from the FRC 2015 robot status bytes
func DecodeVoltage(upper, lower uint8) float64 {
	return float64(upper) + float64(lower)/0xff
}

// DecodeLegacyVoltage rebuilds a voltage from the FRC 2014 robot status
// bytes. The cRIO sends the volts as "human readable" hex (12.14 V arrives
// as 0x12 0x14), which is rescaled by 12/18 with integer truncation before
// the bytes are combined.
func DecodeLegacyVoltage(upper, lower uint8) float64 {
	u := uint8((int(upper) * 12) / 0x12)
	l := uint8((int(lower) * 12) / 0x12)
	return float64(u) + float64(l)/0xff
}
