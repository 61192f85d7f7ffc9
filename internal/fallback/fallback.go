// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fallback provides the general-purpose reasoning path used when no
// registered tool scores high enough or the chosen tool fails after
// retries.
package fallback

import "context"

// Reasoner answers a query without tool routing. Implementations are
// expected to be slower and more general than any single tool; the
// dispatcher runs them at most once per query and never retries them.
type Reasoner interface {
	Answer(ctx context.Context, query string) (string, error)
}

// Provider builds a Reasoner. Build may be expensive (client setup, agent
// initialization); the dispatcher caches the result as a reusable
// execution context and rebuilds it only after its ttl expires.
type Provider interface {
	// Name identifies the provider, used as the cache key suffix.
	Name() string
	// Build creates a ready-to-use Reasoner.
	Build(ctx context.Context) (Reasoner, error)
}

// Func adapts a plain function to the Reasoner interface.
type Func func(ctx context.Context, query string) (string, error)

// Answer implements Reasoner.
func (f Func) Answer(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// static is a Provider returning a fixed Reasoner, used for local setups
// and tests where no LLM backend is configured.
type static struct {
	name     string
	reasoner Reasoner
}

// NewStatic wraps an existing Reasoner in a Provider.
func NewStatic(name string, r Reasoner) Provider {
	return &static{name: name, reasoner: r}
}

func (s *static) Name() string { return s.name }

func (s *static) Build(ctx context.Context) (Reasoner, error) {
	return s.reasoner, nil
}
