// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"fmt"
	"sync"
	"time"
)

// ChannelCounters tracks traffic on a single channel
type ChannelCounters struct {
	Sent     uint64
	Received uint64
	Rejected uint64
	Resets   uint64
}

// Statistics tracks per-channel packet counts and rates
type Statistics struct {
	mu sync.Mutex

	StartTime      time.Time
	LastUpdateTime time.Time

	channels map[Channel]*ChannelCounters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
		channels:       make(map[Channel]*ChannelCounters),
	}
}

func (s *Statistics) counters(ch Channel) *ChannelCounters {
	c, ok := s.channels[ch]
	if !ok {
		c = &ChannelCounters{}
		s.channels[ch] = c
	}
	return c
}

// RecordSent counts an outgoing datagram
func (s *Statistics) RecordSent(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(ch).Sent++
	s.LastUpdateTime = time.Now()
}

// RecordReceived counts an incoming datagram and whether it was accepted
func (s *Statistics) RecordReceived(ch Channel, accepted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters(ch)
	if accepted {
		c.Received++
	} else {
		c.Rejected++
	}
	s.LastUpdateTime = time.Now()
}

// RecordReset counts a watchdog reset
func (s *Statistics) RecordReset(ch Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters(ch).Resets++
	s.LastUpdateTime = time.Now()
}

// Channel returns a copy of the counters for ch
func (s *Statistics) Channel(ch Channel) ChannelCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.channels[ch]; ok {
		return *c
	}
	return ChannelCounters{}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.LastUpdateTime.Sub(s.StartTime)
	seconds := elapsed.Seconds()

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", seconds)
	for _, ch := range []Channel{ChannelFMS, ChannelRadio, ChannelRobot, ChannelNetConsole} {
		c, ok := s.channels[ch]
		if !ok {
			continue
		}
		result += fmt.Sprintf("%-10s sent=%-8d recv=%-8d rejected=%-6d resets=%d\n",
			ch, c.Sent, c.Received, c.Rejected, c.Resets)
		if seconds > 0 {
			result += fmt.Sprintf("           %.1f tx/sec, %.1f rx/sec\n",
				float64(c.Sent)/seconds, float64(c.Received)/seconds)
		}
	}
	result += "================================\n"
	return result
}

// Reset clears all counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = now
	s.LastUpdateTime = now
	s.channels = make(map[Channel]*ChannelCounters)
}
