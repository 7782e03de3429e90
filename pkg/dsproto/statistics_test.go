// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dsproto

import (
	"strings"
	"testing"
)

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	s.RecordSent(ChannelRobot)
	s.RecordSent(ChannelRobot)
	s.RecordReceived(ChannelRobot, true)
	s.RecordReceived(ChannelRobot, false)
	s.RecordReset(ChannelRobot)
	s.RecordReceived(ChannelFMS, true)

	want := ChannelCounters{Sent: 2, Received: 1, Rejected: 1, Resets: 1}
	if got := s.Channel(ChannelRobot); got != want {
		t.Errorf("robot counters = %+v, want %+v", got, want)
	}
	if got := s.Channel(ChannelRadio); got != (ChannelCounters{}) {
		t.Errorf("radio counters = %+v, want zero", got)
	}

	out := s.String()
	if !strings.Contains(out, "ROBOT") || !strings.Contains(out, "FMS") {
		t.Errorf("summary missing channels:\n%s", out)
	}
	if strings.Contains(out, "RADIO") {
		t.Errorf("summary lists idle channel:\n%s", out)
	}

	s.Reset()
	if got := s.Channel(ChannelRobot); got != (ChannelCounters{}) {
		t.Errorf("counters after Reset = %+v", got)
	}
}
