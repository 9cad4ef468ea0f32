package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-embeddings/internal/logger"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name       string
		dep        Pinger
		wantStatus int
		wantBody   string
	}{
		{"no dependency", nil, http.StatusOK, "ok"},
		{"healthy store", pingerFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"store down", pingerFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, "store unavailable\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			HealthHandler(logger.Discard(), tt.dep)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			resp := w.Result()
			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	r := NewRouter(logger.Discard(), time.Second)
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]any{"outcome": "updated"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"outcome":"updated"}`, w.Body.String())
}

func TestRequestLoggerIncludesHandlerAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	r := NewRouter(log, time.Second)
	r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
		AddLogAttrs(r, "document_id", "post-1", "outcome", "updated")
		w.WriteHeader(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", nil))
	require.Equal(t, http.StatusAccepted, w.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request", line["msg"])
	assert.Equal(t, "/events", line["path"])
	assert.Equal(t, float64(http.StatusAccepted), line["status"])
	assert.Equal(t, "post-1", line["document_id"])
	assert.Equal(t, "updated", line["outcome"])
}

func TestAddLogAttrsOutsideRequestLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotPanics(t, func() { AddLogAttrs(req, "document_id", "post-1") })
}
