// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestCache_HitSkipsCompute(t *testing.T) {
	c := New(8)
	calls := 0
	compute := func() (any, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCompute("k", time.Minute, compute)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "value" {
			t.Fatalf("got %v, want value", v)
		}
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestCache_MissCountedOncePerCompute(t *testing.T) {
	c := New(8)
	compute := func() (any, error) { return "value", nil }

	if _, err := c.GetOrCompute("k", time.Minute, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.GetOrCompute("k", time.Minute, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := c.GetStats()
	if stats.Misses != 1 {
		t.Errorf("got %d misses, want 1 for a single compute", stats.Misses)
	}
	if stats.Hits != 1 {
		t.Errorf("got %d hits, want 1", stats.Hits)
	}
}

func TestCache_ExpiredEntryIsRecomputed(t *testing.T) {
	c := New(8)
	calls := 0
	compute := func() (any, error) {
		calls++
		return calls, nil
	}

	if _, err := c.GetOrCompute("k", 10*time.Millisecond, compute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(25 * time.Millisecond)

	v, err := c.GetOrCompute("k", 10*time.Millisecond, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 2 {
		t.Errorf("got %v, want recomputed value 2", v)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCache_NeverServesPastTTL(t *testing.T) {
	c := New(8)
	if _, err := c.GetOrCompute("k", 20*time.Millisecond, func() (any, error) { return "fresh", nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should be served before its ttl")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry served past its ttl")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(2)
	fill := func(k string) {
		_, _ = c.GetOrCompute(k, time.Minute, func() (any, error) { return k, nil })
	}

	fill("a")
	fill("b")
	// Touch "a" so "b" becomes least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}
	fill("c")

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should still be cached")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("got %d evictions, want 1", got)
	}
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := New(8)
	calls := 0
	_, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		calls++
		return nil, fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}

	v, err := c.GetOrCompute("k", time.Minute, func() (any, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 2 {
		t.Errorf("got v=%v calls=%d, want ok/2", v, calls)
	}
}

func TestCache_ConcurrentMissesComputeOnce(t *testing.T) {
	c := New(8)
	var calls atomic.Int64
	compute := func() (any, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute("k", time.Minute, compute)
			if err != nil || v != "shared" {
				t.Errorf("got v=%v err=%v", v, err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times, want 1 (coalesced)", got)
	}
}

func TestCache_IndependentKeyspaces(t *testing.T) {
	c := New(8)
	_, _ = c.GetOrCompute("classify:weather batao", time.Minute, func() (any, error) { return "scores", nil })
	_, _ = c.GetOrCompute("context:get_weather", 5*time.Minute, func() (any, error) { return "agent", nil })

	if v, ok := c.Get("classify:weather batao"); !ok || v != "scores" {
		t.Errorf("classification entry missing, got %v", v)
	}
	if v, ok := c.Get("context:get_weather"); !ok || v != "agent" {
		t.Errorf("context entry missing, got %v", v)
	}
}
