// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry provides centralized management of capability descriptors.
// Tools are registered during an initialization phase and frozen with Seal
// before the dispatcher begins serving traffic, so steady-state reads need
// no locking.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrDuplicateTool indicates a tool with the same name is already registered.
	ErrDuplicateTool = errors.New("duplicate tool")

	// ErrUnknownTool indicates the requested tool is not in the registry.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrRegistrySealed indicates registration was attempted after Seal.
	ErrRegistrySealed = errors.New("registry is sealed")
)

// Invocation carries the per-request inputs handed to a tool handler.
type Invocation struct {
	// Query is the raw query text.
	Query string
	// Language is the caller-declared language hint, if any.
	Language string
	// ExecContext is the reusable execution context produced by the tool's
	// Init function. Nil when the tool declares no Init.
	ExecContext any
}

// HandlerFunc executes a tool against a query and returns its textual response.
type HandlerFunc func(ctx context.Context, inv Invocation) (string, error)

// InitFunc builds a reusable execution context for a tool (e.g. an
// initialized sub-agent). Results are cached by the dispatcher and rebuilt
// only after their ttl expires.
type InitFunc func(ctx context.Context) (any, error)

// ToolDescriptor describes a registered capability. Descriptors are
// immutable once registered.
type ToolDescriptor struct {
	// Name is the unique tool identifier.
	Name string `json:"name"`
	// Description is a human-readable summary of what the tool does.
	Description string `json:"description,omitempty"`
	// Category groups related tools (e.g. "system_info", "web_search").
	Category string `json:"category,omitempty"`
	// Keywords are the intent keywords and phrases this tool handles.
	// Entries may be in any supported language.
	Keywords []string `json:"keywords"`
	// Priority weights the tool's confidence score, 1 (lowest) to 10.
	// Zero means the default of 5.
	Priority int `json:"priority"`
	// MinConfidence drops candidates scoring below this per-tool floor.
	// Zero disables the floor; the dispatcher's global threshold still applies.
	MinConfidence float64 `json:"min_confidence,omitempty"`
	// Scorer is an optional expression that replaces keyword scoring.
	// See classifier.ExprScorer for the evaluation environment.
	Scorer string `json:"scorer,omitempty"`
	// Handler executes the tool. Required.
	Handler HandlerFunc `json:"-"`
	// Init optionally builds a reusable execution context for Handler.
	Init InitFunc `json:"-"`
}

// Registry holds all registered tool descriptors. Register and Seal are
// safe for concurrent use; Get and List are lock-free after Seal.
type Registry struct {
	mu     sync.Mutex
	sealed atomic.Bool
	tools  map[string]*ToolDescriptor
	// order preserves registration order for deterministic tie-breaking.
	order []*ToolDescriptor
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]*ToolDescriptor),
	}
}

// Register adds a descriptor to the registry. It fails with ErrDuplicateTool
// if the name is taken and ErrRegistrySealed after Seal.
func (r *Registry) Register(desc *ToolDescriptor) error {
	if desc == nil || desc.Name == "" {
		return fmt.Errorf("registry: descriptor must have a name")
	}
	if desc.Handler == nil {
		return fmt.Errorf("registry: tool %q has no handler", desc.Name)
	}
	if r.sealed.Load() {
		return fmt.Errorf("registry: cannot register %q: %w", desc.Name, ErrRegistrySealed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[desc.Name]; exists {
		return fmt.Errorf("registry: %q: %w", desc.Name, ErrDuplicateTool)
	}

	if desc.Priority == 0 {
		desc.Priority = 5
	}
	r.tools[desc.Name] = desc
	r.order = append(r.order, desc)
	log.Debugf("Registered tool %s (%d keywords, priority %d)", desc.Name, len(desc.Keywords), desc.Priority)
	return nil
}

// Seal ends the initialization phase. Subsequent Register calls fail and
// reads no longer take the lock.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Swap(true) {
		return
	}
	log.Infof("Tool registry sealed with %d tools", len(r.order))
}

// Sealed reports whether the initialization phase has ended.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Get returns the descriptor for name, failing with ErrUnknownTool if absent.
func (r *Registry) Get(name string) (*ToolDescriptor, error) {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	desc, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("registry: %q: %w", name, ErrUnknownTool)
	}
	return desc, nil
}

// List returns a snapshot of all descriptors in registration order.
func (r *Registry) List() []*ToolDescriptor {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	out := make([]*ToolDescriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if !r.sealed.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return len(r.order)
}
