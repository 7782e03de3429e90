// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"math"
	"testing"
)

func TestEncodeVoltage(t *testing.T) {
	tests := []struct {
		voltage float64
		integer uint8
	}{
		{0, 0},
		{12.0, 12},
		{12.99, 12},
		{7.5, 7},
		{13.01, 13},
		{300, 255},
		{-4, 0},
		{math.NaN(), 0},
	}

	for _, tt := range tests {
		integer, decimal := EncodeVoltage(tt.voltage)
		if integer != tt.integer {
			t.Errorf("EncodeVoltage(%v) integer = %d, want %d", tt.voltage, integer, tt.integer)
		}
		// The fraction is truncated before scaling
		if decimal != 0 {
			t.Errorf("EncodeVoltage(%v) decimal = %d, want 0", tt.voltage, decimal)
		}
	}
}

func TestDecodeVoltage(t *testing.T) {
	if got := DecodeVoltage(12, 0); got != 12 {
		t.Errorf("DecodeVoltage(12, 0) = %f", got)
	}
	if got := DecodeVoltage(12, 0xFF); got != 13 {
		t.Errorf("DecodeVoltage(12, 255) = %f", got)
	}
	if got := DecodeVoltage(0, 51); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("DecodeVoltage(0, 51) = %f", got)
	}
}

func TestDecodeLegacyVoltage(t *testing.T) {
	tests := []struct {
		upper, lower uint8
		want         float64
	}{
		{0x12, 0x14, 12 + 13.0/255},
		{0x00, 0x00, 0},
		{0x0C, 0x01, 8}, // 12*12/18 = 8, 1*12/18 = 0
		{0xFF, 0xFF, 170 + 170.0/255},
	}

	for _, tt := range tests {
		if got := DecodeLegacyVoltage(tt.upper, tt.lower); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("DecodeLegacyVoltage(0x%02X, 0x%02X) = %f, want %f", tt.upper, tt.lower, got, tt.want)
		}
	}
}
