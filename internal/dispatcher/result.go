// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatcher

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a terminal failure. The values match the error codes the
// callers of the original assistant already consume.
type Kind string

const (
	// KindInvalidQuery marks empty or oversized input. Not retried.
	KindInvalidQuery Kind = "INVALID_QUERY"
	// KindUnknownTool marks a tool that vanished from the registry between
	// classification and execution. Treated as an execution failure.
	KindUnknownTool Kind = "UNKNOWN_TOOL"
	// KindExecutionFailure marks a handler error or degenerate output.
	KindExecutionFailure Kind = "EXECUTION_FAILURE"
	// KindExecutionTimeout marks an attempt that exceeded its bound.
	KindExecutionTimeout Kind = "EXECUTION_TIMEOUT"
	// KindFallbackFailure marks a failed or timed-out fallback execution.
	KindFallbackFailure Kind = "FALLBACK_FAILURE"
	// KindRetryExhausted marks exhausted primary attempts with fallback
	// disabled or unavailable.
	KindRetryExhausted Kind = "RETRY_EXHAUSTED"
)

// Execution methods reported in results and metrics.
const (
	MethodPrimary  = "primary"
	MethodFallback = "fallback"
)

// Query is one incoming request. Read-only after creation and discarded
// once its ExecutionResult is produced.
type Query struct {
	ID        string
	Text      string
	Language  string
	ArrivedAt time.Time
}

// NewQuery stamps raw text with a correlation id and arrival time.
func NewQuery(text, language string) Query {
	return Query{
		ID:        uuid.NewString()[:8],
		Text:      text,
		Language:  language,
		ArrivedAt: time.Now(),
	}
}

// ExecutionResult is the structured outcome returned to the caller.
// Exactly one is produced per query.
type ExecutionResult struct {
	QueryID string `json:"query_id"`
	Success bool   `json:"success"`
	// Response is the tool or fallback output on success.
	Response string `json:"response,omitempty"`
	// Method is "primary" or "fallback"; empty when nothing executed.
	Method string `json:"method,omitempty"`
	// Tool is the primary tool that was selected, if any.
	Tool string `json:"tool,omitempty"`
	// Attempts counts primary executions; Retries is Attempts-1 when at
	// least one attempt ran.
	Attempts int `json:"attempts"`
	Retries  int `json:"retries"`
	// ExecutionTime is the end-to-end handling time in seconds.
	ExecutionTime float64 `json:"execution_time"`
	// ErrKind and ErrMessage describe a terminal failure.
	ErrKind    Kind   `json:"error_code,omitempty"`
	ErrMessage string `json:"error,omitempty"`

	// Elapsed mirrors ExecutionTime as a duration for in-process callers.
	Elapsed time.Duration `json:"-"`

	// timeouts counts timed-out attempts for metrics.
	timeouts int
}
