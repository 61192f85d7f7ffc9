// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatcher

// State is a dispatcher lifecycle phase for one query. Every query ends in
// StateCompleted exactly once.
type State int

const (
	StateReceived State = iota
	StateClassifying
	StateSelected
	StateExecuting
	StateSucceeded
	StateRetrying
	StateFallbackExecuting
	StateCompleted
)

var stateNames = map[State]string{
	StateReceived:          "received",
	StateClassifying:       "classifying",
	StateSelected:          "selected",
	StateExecuting:         "executing",
	StateSucceeded:         "succeeded",
	StateRetrying:          "retrying",
	StateFallbackExecuting: "fallback_executing",
	StateCompleted:         "completed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
