// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package dispatcher orchestrates query handling: classification through
// the cache, primary tool execution under timeout and retry discipline,
// fallback routing, and metrics recording. It is the state machine at the
// center of the system.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"github.com/SachdevaAI/jarvis-core/internal/cache"
	"github.com/SachdevaAI/jarvis-core/internal/classifier"
	"github.com/SachdevaAI/jarvis-core/internal/config"
	"github.com/SachdevaAI/jarvis-core/internal/fallback"
	"github.com/SachdevaAI/jarvis-core/internal/metrics"
	"github.com/SachdevaAI/jarvis-core/internal/registry"
)

// Engine is the dispatcher. Construct with New; all dependencies are
// explicit so tests can inject fresh instances per case.
type Engine struct {
	cfg      *config.Manager
	reg      *registry.Registry
	cls      *classifier.Classifier
	store    *cache.Cache
	agg      *metrics.Aggregator
	fallback fallback.Provider
}

// New creates an engine. Classifier, cache, and aggregator may be nil, in
// which case fresh instances are created. The fallback provider may be nil;
// the engine then behaves as if fallback were disabled.
func New(cfg *config.Manager, reg *registry.Registry, cls *classifier.Classifier, store *cache.Cache, agg *metrics.Aggregator, fb fallback.Provider) *Engine {
	if cfg == nil {
		cfg = config.NewManager(config.Default())
	}
	if cls == nil {
		cls = classifier.New()
	}
	if store == nil {
		store = cache.New(cfg.Snapshot().CacheSize)
	}
	if agg == nil {
		agg = metrics.New()
	}
	return &Engine{
		cfg:      cfg,
		reg:      reg,
		cls:      cls,
		store:    store,
		agg:      agg,
		fallback: fb,
	}
}

// Metrics returns a snapshot of the performance aggregates.
func (e *Engine) Metrics() metrics.Snapshot { return e.agg.Snapshot() }

// ResetMetrics zeroes the performance aggregates.
func (e *Engine) ResetMetrics() { e.agg.Reset() }

// Config returns the configuration manager for runtime updates.
func (e *Engine) Config() *config.Manager { return e.cfg }

// Registry returns the tool registry.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// CacheStats returns the execution cache counters.
func (e *Engine) CacheStats() cache.Stats { return e.store.GetStats() }

// Handle processes one query end to end and returns its ExecutionResult.
// All failures surface inside the result; Handle itself panics only on API
// misuse (calling before the registry is sealed).
func (e *Engine) Handle(ctx context.Context, text, language string) *ExecutionResult {
	if !e.reg.Sealed() {
		panic("dispatcher: Handle called before registry initialization finished")
	}

	q := NewQuery(text, language)
	logger := log.WithField("request_id", q.ID)
	start := time.Now()

	res := e.run(ctx, logger, q)

	res.QueryID = q.ID
	res.Elapsed = time.Since(start)
	res.ExecutionTime = res.Elapsed.Seconds()
	if res.Attempts > 0 {
		res.Retries = res.Attempts - 1
	}

	e.agg.Record(metrics.Outcome{
		Success:  res.Success,
		Method:   res.Method,
		Elapsed:  res.Elapsed,
		Timeouts: res.timeouts,
		ErrKind:  string(res.ErrKind),
		ErrMsg:   res.ErrMessage,
	})
	logger.Infof("Query %s: success=%v method=%s attempts=%d elapsed=%s",
		StateCompleted, res.Success, res.Method, res.Attempts, res.Elapsed.Round(time.Millisecond))
	return res
}

// run advances the query through the dispatch states and produces the
// terminal result. Metrics are recorded by the caller.
func (e *Engine) run(ctx context.Context, logger *log.Entry, q Query) *ExecutionResult {
	cfg := e.cfg.Snapshot()
	logger.Debugf("State %s", StateReceived)

	if kind, msg := validate(q.Text, cfg); kind != "" {
		return &ExecutionResult{Success: false, ErrKind: kind, ErrMessage: msg}
	}

	logger.Debugf("State %s", StateClassifying)
	candidates := e.classify(q, cfg)

	direct := len(candidates) == 0 ||
		candidates[0].Confidence < cfg.ConfidenceThreshold ||
		cfg.ForceFallback
	if direct {
		if len(candidates) == 0 {
			logger.Debug("No candidate matched, routing to fallback")
		} else {
			logger.Debugf("Top candidate %s at %.2f below threshold %.2f, routing to fallback",
				candidates[0].Tool, candidates[0].Confidence, cfg.ConfidenceThreshold)
		}
		if !cfg.EnableFallback || e.fallback == nil {
			return &ExecutionResult{
				Success:    false,
				ErrKind:    KindRetryExhausted,
				ErrMessage: "no execution method available: no tool matched and fallback is disabled",
			}
		}
		return e.runFallback(ctx, logger, q, cfg, nil)
	}

	top := candidates[0]
	logger.Debugf("State %s: tool=%s confidence=%.2f rationale=%s", StateSelected, top.Tool, top.Confidence, top.Rationale)

	res := &ExecutionResult{Tool: top.Tool}
	maxAttempts := cfg.MaxRetries + 1
	var lastKind Kind
	var lastMsg string

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg.BackoffBase(), cfg.MaxBackoff(), attempt)
			logger.Debugf("State %s: attempt %d/%d after %s", StateRetrying, attempt+1, maxAttempts, delay)
			if !sleepCtx(ctx, delay) {
				// Cancellation observed between attempts: no further
				// retries or fallback.
				res.ErrKind = KindExecutionFailure
				res.ErrMessage = fmt.Sprintf("request canceled after %d attempts: %s", res.Attempts, lastMsg)
				return res
			}
		}

		logger.Debugf("State %s: tool=%s attempt=%d", StateExecuting, top.Tool, attempt+1)
		res.Attempts++
		out, kind, msg := e.attemptPrimary(ctx, q, top.Tool, cfg)
		if kind == "" {
			logger.Debugf("State %s", StateSucceeded)
			res.Success = true
			res.Response = out
			res.Method = MethodPrimary
			return res
		}

		lastKind, lastMsg = kind, msg
		if kind == KindExecutionTimeout {
			res.timeouts++
		}
		logger.Warnf("Attempt %d/%d on %s failed (%s): %s", attempt+1, maxAttempts, top.Tool, kind, msg)

		if ctx.Err() != nil {
			res.ErrKind = KindExecutionFailure
			res.ErrMessage = fmt.Sprintf("request canceled after %d attempts: %s", res.Attempts, msg)
			return res
		}
	}

	if cfg.EnableFallback && e.fallback != nil {
		return e.runFallback(ctx, logger, q, cfg, res)
	}

	res.ErrKind = KindRetryExhausted
	res.ErrMessage = fmt.Sprintf("all %d attempts on %s failed, last error (%s): %s", res.Attempts, top.Tool, lastKind, lastMsg)
	return res
}

// validate rejects empty and oversized queries before any classification.
// Bounds are in characters, not bytes, so multi-byte scripts like
// Devanagari get the same budget as Latin text.
func validate(text string, cfg config.Config) (Kind, string) {
	length := utf8.RuneCountInString(strings.TrimSpace(text))
	if length < cfg.MinQueryLength {
		return KindInvalidQuery, fmt.Sprintf("query too short (minimum %d characters)", cfg.MinQueryLength)
	}
	if length > cfg.MaxQueryLength {
		return KindInvalidQuery, fmt.Sprintf("query too long (maximum %d characters)", cfg.MaxQueryLength)
	}
	return "", ""
}

// classify obtains ranked candidates through the cache. The key is the
// normalized query signature plus the language hint.
func (e *Engine) classify(q Query, cfg config.Config) []classifier.Candidate {
	key := "classify:" + e.cls.Normalize(q.Text) + "|" + q.Language
	v, err := e.store.GetOrCompute(key, cfg.CacheTTL(), func() (any, error) {
		return e.cls.Classify(q.Text, e.reg.List()), nil
	})
	if err != nil {
		// Classification itself never errors; a cache-level failure just
		// means we classify uncached.
		return e.cls.Classify(q.Text, e.reg.List())
	}
	return v.([]classifier.Candidate)
}

// attemptPrimary executes one bounded attempt of the selected tool. An
// empty Kind means success.
func (e *Engine) attemptPrimary(ctx context.Context, q Query, tool string, cfg config.Config) (string, Kind, string) {
	desc, err := e.reg.Get(tool)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownTool) {
			return "", KindUnknownTool, err.Error()
		}
		return "", KindExecutionFailure, err.Error()
	}

	inv := registry.Invocation{Query: q.Text, Language: q.Language}
	if desc.Init != nil {
		ec, err := e.store.GetOrCompute("context:"+desc.Name, cfg.ContextTTL(), func() (any, error) {
			return desc.Init(ctx)
		})
		if err != nil {
			return "", KindExecutionFailure, fmt.Sprintf("failed to initialize execution context: %v", err)
		}
		inv.ExecContext = ec
	}

	out, kind, msg := runBounded(ctx, cfg.Timeout(), func(actx context.Context) (string, error) {
		return desc.Handler(actx, inv)
	})
	if kind != "" {
		return "", kind, msg
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(out)); n < cfg.MinResponseLength {
		return "", KindExecutionFailure, fmt.Sprintf("tool %s returned degenerate output (%d chars)", tool, n)
	}
	return out, "", ""
}

// runFallback executes the fallback path once. prior carries attempt counts
// from an exhausted primary phase, or nil when routing went straight to
// fallback.
func (e *Engine) runFallback(ctx context.Context, logger *log.Entry, q Query, cfg config.Config, prior *ExecutionResult) *ExecutionResult {
	res := prior
	if res == nil {
		res = &ExecutionResult{}
	}
	res.Method = MethodFallback
	logger.Debugf("State %s", StateFallbackExecuting)

	// The reasoner is the expensive reusable execution context of the
	// fallback path; build it through the cache.
	v, err := e.store.GetOrCompute("context:fallback:"+e.fallback.Name(), cfg.ContextTTL(), func() (any, error) {
		return e.fallback.Build(ctx)
	})
	if err != nil {
		res.Success = false
		res.ErrKind = KindFallbackFailure
		res.ErrMessage = fmt.Sprintf("failed to build fallback reasoner: %v", err)
		return res
	}
	reasoner := v.(fallback.Reasoner)

	out, kind, msg := runBounded(ctx, cfg.FallbackTimeout(), func(actx context.Context) (string, error) {
		return reasoner.Answer(actx, q.Text)
	})
	if kind == KindExecutionTimeout {
		res.timeouts++
		kind = KindFallbackFailure
		msg = fmt.Sprintf("fallback timed out after %s", cfg.FallbackTimeout())
	} else if kind != "" {
		kind = KindFallbackFailure
	}
	if kind == "" && strings.TrimSpace(out) == "" {
		kind = KindFallbackFailure
		msg = "fallback returned empty response"
	}

	if kind != "" {
		res.Success = false
		res.ErrKind = kind
		res.ErrMessage = msg
		return res
	}

	logger.Debugf("State %s", StateSucceeded)
	res.Success = true
	res.Response = strings.TrimSpace(out)
	res.ErrKind = ""
	res.ErrMessage = ""
	return res
}

// runBounded executes fn under a timeout, abandoning (not killing) the
// handler when the bound elapses. The result channel is buffered so an
// abandoned handler can still complete and release its goroutine.
func runBounded(ctx context.Context, timeout time.Duration, fn func(context.Context) (string, error)) (string, Kind, string) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		out string
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		out, err := fn(actx)
		ch <- outcome{out, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			if errors.Is(o.err, context.DeadlineExceeded) {
				return "", KindExecutionTimeout, fmt.Sprintf("attempt exceeded its %s bound", timeout)
			}
			return "", KindExecutionFailure, o.err.Error()
		}
		return o.out, "", ""
	case <-actx.Done():
		if ctx.Err() != nil {
			return "", KindExecutionFailure, "request canceled during attempt"
		}
		return "", KindExecutionTimeout, fmt.Sprintf("attempt exceeded its %s bound", timeout)
	}
}

// backoffDelay computes the delay before the given retry (1-based):
// base * 2^(retry-1), capped at max.
func backoffDelay(base, max time.Duration, retry int) time.Duration {
	if retry < 1 || base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// sleepCtx waits for d, returning false if ctx was canceled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
