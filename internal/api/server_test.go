// Copyright 2026 The Jarvis Core Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/SachdevaAI/jarvis-core/internal/config"
	"github.com/SachdevaAI/jarvis-core/internal/dispatcher"
	"github.com/SachdevaAI/jarvis-core/internal/registry"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	err := reg.Register(&registry.ToolDescriptor{
		Name:     "get_time",
		Keywords: []string{"time", "clock"},
		Priority: 9,
		Handler: func(ctx context.Context, inv registry.Invocation) (string, error) {
			return "The current time is 12:34 PM", nil
		},
	})
	require.NoError(t, err)
	reg.Seal()

	cfg := config.Default()
	cfg.EnableFallback = false
	engine := dispatcher.New(config.NewManager(cfg), reg, nil, nil, nil, nil)
	return NewRouter(NewHandler(engine))
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitQuery_Success(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/v1/queries", `{"text": "what time is it"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res dispatcher.ExecutionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.True(t, res.Success)
	require.Equal(t, dispatcher.MethodPrimary, res.Method)
	require.Equal(t, "get_time", res.Tool)
	require.NotEmpty(t, res.QueryID)
}

func TestSubmitQuery_EmptyTextIsBadRequest(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/v1/queries", `{"text": ""}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var res dispatcher.ExecutionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Equal(t, dispatcher.KindInvalidQuery, res.ErrKind)
}

func TestSubmitQuery_MalformedBodyIsBadRequest(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "POST", "/v1/queries", `{not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitQuery_DomainFailureIsStillOK(t *testing.T) {
	r := newTestRouter(t)

	// No tool matches and fallback is disabled; the failure is a domain
	// result, not a transport error.
	w := doJSON(t, r, "POST", "/v1/queries", `{"text": "tell me a story"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res dispatcher.ExecutionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.False(t, res.Success)
	require.Equal(t, dispatcher.KindRetryExhausted, res.ErrKind)
}

func TestGetMetrics_ReflectsHandledQueries(t *testing.T) {
	r := newTestRouter(t)

	doJSON(t, r, "POST", "/v1/queries", `{"text": "what time is it"}`)

	w := doJSON(t, r, "GET", "/v1/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Metrics struct {
			TotalQueries int64   `json:"total_queries"`
			SuccessRate  float64 `json:"success_rate"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.Metrics.TotalQueries)
	require.Equal(t, 100.0, body.Metrics.SuccessRate)
}

func TestResetMetrics(t *testing.T) {
	r := newTestRouter(t)
	doJSON(t, r, "POST", "/v1/queries", `{"text": "what time is it"}`)

	w := doJSON(t, r, "DELETE", "/v1/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "GET", "/v1/metrics", "")
	var body struct {
		Metrics struct {
			TotalQueries int64 `json:"total_queries"`
		} `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Zero(t, body.Metrics.TotalQueries)
}

func TestUpdateConfig_PartialPatch(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "PATCH", "/v1/config", `{"max_retries": 5, "confidence_threshold": 0.9}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Config config.Config `json:"config"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 5, body.Config.MaxRetries)
	require.Equal(t, 0.9, body.Config.ConfidenceThreshold)
	// Untouched fields keep their values.
	require.Equal(t, config.Default().CacheSize, body.Config.CacheSize)
}

func TestUpdateConfig_InvalidValueRejected(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "PATCH", "/v1/config", `{"confidence_threshold": 1.5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateConfig_NoUpdatableFieldRejected(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "PATCH", "/v1/config", `{"nonsense": true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTools(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, "GET", "/v1/tools", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
		Tools []struct {
			Name     string   `json:"name"`
			Keywords []string `json:"keywords"`
			Priority int      `json:"priority"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "get_time", body.Tools[0].Name)
	require.Equal(t, 9, body.Tools[0].Priority)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	w := doJSON(t, r, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
}
