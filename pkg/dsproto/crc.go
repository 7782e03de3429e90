// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import "hash/crc32"

// CalculateCRC computes the IEEE CRC32 checksum for the given data
func CalculateCRC(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
