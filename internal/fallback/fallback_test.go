// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fallback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	p := NewStatic("echo", Func(func(ctx context.Context, query string) (string, error) {
		return "echo: " + query, nil
	}))

	require.Equal(t, "echo", p.Name())

	r, err := p.Build(context.Background())
	require.NoError(t, err)

	out, err := r.Answer(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "echo: hello", out)
}

func TestNewAnthropic_DefaultModel(t *testing.T) {
	p := NewAnthropic("key", "")
	require.Equal(t, "claude-sonnet-4-5", p.model)
	require.Equal(t, "anthropic", p.Name())

	p = NewAnthropic("key", "claude-haiku-4-5")
	require.Equal(t, "claude-haiku-4-5", p.model)
}
