// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"context"
	"sync"
	"time"
)

// Watchdog fires once when it has not been fed for longer than its timeout.
// Feeding re-arms it.
type Watchdog struct {
	mu      sync.Mutex
	timeout time.Duration
	last    time.Time
	expired bool
	clock   func() time.Time
}

// NewWatchdog creates an armed watchdog
func NewWatchdog(timeout time.Duration, clock func() time.Time) *Watchdog {
	if clock == nil {
		clock = time.Now
	}
	return &Watchdog{timeout: timeout, last: clock(), clock: clock}
}

// Feed records traffic and re-arms the watchdog
func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = w.clock()
	w.expired = false
}

// Check reports true exactly once per starvation period
func (w *Watchdog) Check() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.expired || w.clock().Sub(w.last) < w.timeout {
		return false
	}
	w.expired = true
	return true
}

// Expired reports whether the watchdog has fired and not been fed since
func (w *Watchdog) Expired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}

// Run polls the watchdog and calls onExpire on every expiry until ctx ends
func (w *Watchdog) Run(ctx context.Context, onExpire func()) {
	period := w.timeout / 4
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Check() {
				onExpire()
			}
		}
	}
}
