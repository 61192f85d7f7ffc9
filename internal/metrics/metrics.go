// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics provides the process-lifetime performance aggregates for
// the dispatch core. Counters are monotonically non-decreasing between
// resets, and a Record is all-or-nothing to concurrent readers.
package metrics

import (
	"sync"
	"time"
)

// Method names recorded for method usage counters.
const (
	MethodPrimary  = "primary"
	MethodFallback = "fallback"
)

// Outcome is the per-query record folded into the aggregates exactly once
// when a query completes.
type Outcome struct {
	Success bool
	// Method is MethodPrimary or MethodFallback, or empty when no
	// execution was attempted (e.g. validation failures).
	Method  string
	Elapsed time.Duration
	// Timeouts is the number of attempts that exceeded their bound while
	// handling this query.
	Timeouts int
	ErrKind  string
	ErrMsg   string
}

// MethodUsage counts completed queries per execution method.
type MethodUsage struct {
	Primary  int64 `json:"primary"`
	Fallback int64 `json:"fallback"`
}

// Snapshot is an immutable copy of the aggregates. It deliberately carries
// no wall-clock fields so two snapshots taken without an intervening Record
// or Reset compare equal.
type Snapshot struct {
	TotalQueries int64 `json:"total_queries"`
	Successes    int64 `json:"successful_queries"`
	Failures     int64 `json:"failed_queries"`
	Timeouts     int64 `json:"timeout_count"`

	MethodUsage MethodUsage `json:"method_usage"`

	// SuccessRate is a percentage in [0,100].
	SuccessRate float64 `json:"success_rate"`
	// AverageResponseTime is the mean query latency in seconds.
	AverageResponseTime float64 `json:"average_response_time"`
	// AveragePrimaryTime and AverageFallbackTime are per-method means in seconds.
	AveragePrimaryTime  float64 `json:"average_primary_time"`
	AverageFallbackTime float64 `json:"average_fallback_time"`

	LastError string `json:"last_error,omitempty"`
}

// Aggregator accumulates outcomes from concurrent in-flight requests.
// A single mutex guards all fields: independent atomics would let a
// concurrent Snapshot observe a half-applied Record.
type Aggregator struct {
	mu sync.RWMutex

	total     int64
	successes int64
	failures  int64
	timeouts  int64

	primary  int64
	fallback int64

	totalLatency    time.Duration
	primaryLatency  time.Duration
	fallbackLatency time.Duration

	lastError string
}

// New creates an empty aggregator. Tests construct a fresh instance per
// case; production wiring injects one instance into the dispatcher.
func New() *Aggregator {
	return &Aggregator{}
}

// Record folds one completed query into the aggregates.
func (a *Aggregator) Record(o Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.total++
	if o.Success {
		a.successes++
	} else {
		a.failures++
		if o.ErrMsg != "" {
			a.lastError = o.ErrKind + ": " + o.ErrMsg
		} else if o.ErrKind != "" {
			a.lastError = o.ErrKind
		}
	}
	a.timeouts += int64(o.Timeouts)
	a.totalLatency += o.Elapsed

	switch o.Method {
	case MethodPrimary:
		a.primary++
		a.primaryLatency += o.Elapsed
	case MethodFallback:
		a.fallback++
		a.fallbackLatency += o.Elapsed
	}
}

// Snapshot returns an immutable copy of the current aggregates.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := Snapshot{
		TotalQueries: a.total,
		Successes:    a.successes,
		Failures:     a.failures,
		Timeouts:     a.timeouts,
		MethodUsage:  MethodUsage{Primary: a.primary, Fallback: a.fallback},
		LastError:    a.lastError,
	}
	if a.total > 0 {
		s.SuccessRate = float64(a.successes) / float64(a.total) * 100.0
		s.AverageResponseTime = a.totalLatency.Seconds() / float64(a.total)
	}
	if a.primary > 0 {
		s.AveragePrimaryTime = a.primaryLatency.Seconds() / float64(a.primary)
	}
	if a.fallback > 0 {
		s.AverageFallbackTime = a.fallbackLatency.Seconds() / float64(a.fallback)
	}
	return s
}

// Reset zeroes all counters. Operator action only.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = 0
	a.successes = 0
	a.failures = 0
	a.timeouts = 0
	a.primary = 0
	a.fallback = 0
	a.totalLatency = 0
	a.primaryLatency = 0
	a.fallbackLatency = 0
	a.lastError = ""
}
