// debounce.go: delay-and-coalesce task scheduling
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gosearch

import (
	"sync"
	"time"
)

// DeferredTask runs an action once after a quiet period. Repeated Start
// calls within the delay window reschedule the pending run instead of
// queueing additional ones, so a burst of triggers produces exactly one
// execution. Flush forces a pending run to happen immediately and
// synchronously, which the service uses at shutdown to drain writers.
//
// The metadata committer, the cache rebuilder and per-engine lazy
// serialization all share this type with different delays.
type DeferredTask struct {
	mu      sync.Mutex
	delay   time.Duration
	action  func()
	timer   *time.Timer
	armed   bool
	running sync.Mutex // serializes action executions
}

// NewDeferredTask creates a deferred task running action after delay.
func NewDeferredTask(delay time.Duration, action func()) *DeferredTask {
	return &DeferredTask{
		delay:  delay,
		action: action,
	}
}

// Start arms the task, or pushes the deadline back out if it is already
// armed.
func (d *DeferredTask) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.armed {
		d.timer.Reset(d.delay)
		return
	}
	d.armed = true
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *DeferredTask) fire() {
	d.mu.Lock()
	if !d.armed {
		// Flush or Cancel won the race with the timer.
		d.mu.Unlock()
		return
	}
	d.armed = false
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	d.action()
}

// Flush runs the action immediately if a run is pending and returns
// after it completes. No-op when the task is idle.
func (d *DeferredTask) Flush() {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return
	}
	d.armed = false
	d.timer.Stop()
	d.mu.Unlock()

	d.running.Lock()
	defer d.running.Unlock()
	d.action()
}

// Cancel discards any pending run without executing it.
func (d *DeferredTask) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed {
		d.armed = false
		d.timer.Stop()
	}
}

// IsArmed reports whether a run is currently pending.
func (d *DeferredTask) IsArmed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}
