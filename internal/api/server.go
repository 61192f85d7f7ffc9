// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the dispatch core over HTTP for the voice pipeline,
// the dashboard, and the CLI test harness.
package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/SachdevaAI/jarvis-core/internal/dispatcher"
)

// Handler bundles the HTTP handlers around one dispatcher engine.
type Handler struct {
	engine *dispatcher.Engine
}

// NewHandler creates a Handler serving the given engine.
func NewHandler(engine *dispatcher.Engine) *Handler {
	return &Handler{engine: engine}
}

// NewRouter builds the gin engine with all routes registered. The caller
// picks the gin mode.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/queries", h.SubmitQuery)
		v1.GET("/metrics", h.GetMetrics)
		v1.DELETE("/metrics", h.ResetMetrics)
		v1.PATCH("/config", h.UpdateConfig)
		v1.GET("/tools", h.ListTools)
	}
	return r
}

// Run serves the router on host:port, blocking until the listener fails.
func Run(h *Handler, host string, port int) error {
	gin.SetMode(gin.ReleaseMode)
	addr := fmt.Sprintf("%s:%d", host, port)
	log.Infof("API server listening on %s", addr)
	return NewRouter(h).Run(addr)
}

// queryRequest is the POST /v1/queries body.
type queryRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SubmitQuery dispatches one query and returns its ExecutionResult. Domain
// failures (retry exhaustion, fallback failure) are successful HTTP responses
// carrying success=false; only malformed requests get a 4xx.
func (h *Handler) SubmitQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body: " + err.Error(),
		})
		return
	}

	res := h.engine.Handle(c.Request.Context(), req.Text, req.Language)
	if res.ErrKind == dispatcher.KindInvalidQuery {
		c.JSON(http.StatusBadRequest, res)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GetMetrics returns the performance aggregates snapshot.
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics": h.engine.Metrics(),
		"cache":   h.engine.CacheStats(),
	})
}

// ResetMetrics zeroes the performance aggregates.
func (h *Handler) ResetMetrics(c *gin.Context) {
	h.engine.ResetMetrics()
	log.Info("Metrics reset by operator request")
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// UpdateConfig applies a partial JSON patch to the runtime configuration.
// Unknown fields are ignored; a patch naming no updatable field, or one that
// fails validation, is rejected without changing anything.
func (h *Handler) UpdateConfig(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	updated, err := h.engine.Config().Apply(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Info("Runtime configuration updated")
	c.JSON(http.StatusOK, gin.H{"config": updated})
}

// ListTools returns the registered tool descriptors.
func (h *Handler) ListTools(c *gin.Context) {
	tools := h.engine.Registry().List()
	c.JSON(http.StatusOK, gin.H{
		"count": len(tools),
		"tools": tools,
	})
}
