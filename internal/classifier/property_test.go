// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/SachdevaAI/jarvis-core/internal/registry"
)

// TestProperty_ConfidenceBounds checks that every candidate confidence stays
// in [0,1] for arbitrary queries, keyword counts, and priorities.
func TestProperty_ConfidenceBounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("confidence always in [0,1]", prop.ForAll(
		func(query string, keywords []string, priority int) bool {
			r := registry.New()
			err := r.Register(&registry.ToolDescriptor{
				Name:     "candidate",
				Keywords: keywords,
				Priority: priority,
				Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
					return "", nil
				},
			})
			if err != nil {
				return true // invalid descriptor, nothing to check
			}
			r.Seal()

			c := New()
			for _, cand := range c.Classify(query, r.List()) {
				if cand.Confidence < 0 || cand.Confidence > 1 {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
		gen.SliceOf(gen.AlphaString()),
		gen.IntRange(1, 10),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(query string) bool {
			r := registry.New()
			_ = r.Register(&registry.ToolDescriptor{
				Name:     "a",
				Keywords: []string{"alpha", "beta"},
				Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
					return "", nil
				},
			})
			_ = r.Register(&registry.ToolDescriptor{
				Name:     "b",
				Keywords: []string{"beta", "gamma"},
				Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
					return "", nil
				},
			})
			r.Seal()

			c := New()
			first := c.Classify(query, r.List())
			second := c.Classify(query, r.List())
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
