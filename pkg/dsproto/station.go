// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

// StationCode returns the FRC 2015 station byte for an alliance and
// position. Unknown combinations fall back to red 1.
func StationCode(alliance Alliance, position Position) uint8 {
	switch position {
	case Position1:
		if alliance == AllianceRed {
			return StationRed1
		}
		return StationBlue1
	case Position2:
		if alliance == AllianceRed {
			return StationRed2
		}
		return StationBlue2
	case Position3:
		if alliance == AllianceRed {
			return StationRed3
		}
		return StationBlue3
	}
	return StationRed1
}

// AllianceFromStation extracts the alliance from an FRC 2015 station byte
func AllianceFromStation(code uint8) Alliance {
	switch code {
	case StationBlue1, StationBlue2, StationBlue3:
		return AllianceBlue
	}
	return AllianceRed
}

// PositionFromStation extracts the position from an FRC 2015 station byte
func PositionFromStation(code uint8) Position {
	switch code {
	case StationRed2, StationBlue2:
		return Position2
	case StationRed3, StationBlue3:
		return Position3
	}
	return Position1
}

// AllianceCode returns the FRC 2014 alliance byte ('R' or 'B')
func AllianceCode(alliance Alliance) uint8 {
	if alliance == AllianceRed {
		return CodeAllianceRed
	}
	return CodeAllianceBlue
}

// PositionCode returns the FRC 2014 position byte ('1', '2' or '3')
func PositionCode(position Position) uint8 {
	switch position {
	case Position2:
		return CodePosition2
	case Position3:
		return CodePosition3
	}
	return CodePosition1
}

// AllianceFromCode extracts the alliance from an FRC 2014 alliance byte.
// Anything other than 'R' is blue.
func AllianceFromCode(code uint8) Alliance {
	if code == CodeAllianceRed {
		return AllianceRed
	}
	return AllianceBlue
}

// PositionFromCode extracts the position from an FRC 2014 position byte
func PositionFromCode(code uint8) Position {
	switch code {
	case CodePosition2:
		return Position2
	case CodePosition3:
		return Position3
	}
	return Position1
}
