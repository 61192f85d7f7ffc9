// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package classifier

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// scoreEnv is the evaluation environment for a descriptor's Scorer
// expression. Example scorer:
//
//	hits > 0 ? 0.5 + 0.1 * float(priority) : 0.0
type scoreEnv struct {
	// Query is the normalized query text.
	Query string `expr:"query"`
	// Tokens are the query tokens after normalization.
	Tokens []string `expr:"tokens"`
	// Hits is the number of matched keywords.
	Hits int `expr:"hits"`
	// Priority is the descriptor's priority.
	Priority int `expr:"priority"`
}

// exprCache compiles scorer expressions once and reuses the programs.
type exprCache struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
}

func newExprCache() *exprCache {
	return &exprCache{programs: make(map[string]*vm.Program)}
}

func (c *exprCache) compile(source string) (*vm.Program, error) {
	c.mu.RLock()
	program, ok := c.programs[source]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(source, expr.Env(scoreEnv{}))
	if err != nil {
		return nil, fmt.Errorf("classifier: failed to compile scorer %q: %w", source, err)
	}

	c.mu.Lock()
	c.programs[source] = program
	c.mu.Unlock()
	return program, nil
}

// eval runs a scorer expression and coerces the result to float64.
func (c *exprCache) eval(source string, env scoreEnv) (float64, error) {
	program, err := c.compile(source)
	if err != nil {
		return 0, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return 0, fmt.Errorf("classifier: failed to run scorer %q: %w", source, err)
	}

	switch v := output.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("classifier: scorer %q returned %T, want a number", source, output)
	}
}
