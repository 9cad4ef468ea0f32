package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reddit-embeddings/internal/app"
	"reddit-embeddings/internal/config"
	"reddit-embeddings/internal/embeddings"
	"reddit-embeddings/internal/store"
	"reddit-embeddings/internal/updater"
)

func newTestDeps(st store.Store, e embeddings.Embedder) *app.Deps {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &app.Deps{
		Store:    st,
		Embedder: e,
		Updater:  updater.New(e, st, log),
		Config: config.Config{
			TriggerProvider: "http",
		},
		Log: log,
	}
}

func TestEventsHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(*store.MockStore, *embeddings.MockEmbedder)
		wantStatus     int
		wantOutcome    updater.Outcome
		wantDocumentID string
	}{
		{
			name: "event is embedded and stored",
			body: `{"fullDocument": {"_id": "post-1", "subreddit": "science", "title": "hello"}}`,
			setup: func(s *store.MockStore, e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "science:hello").Return(embeddings.Vector{0.1, 0.2}, nil).Once()
				s.On("SetPlotEmbedding", mock.Anything, "post-1", embeddings.Vector{0.1, 0.2}).Return(int64(1), nil).Once()
			},
			wantStatus:     http.StatusAccepted,
			wantOutcome:    updater.OutcomeUpdated,
			wantDocumentID: "post-1",
		},
		{
			name: "object id from extended json",
			body: `{"fullDocument": {"_id": {"$oid": "64b7f0c2a1e4d3b2c1a09f8e"}, "subreddit": "golang", "title": "tips"}}`,
			setup: func(s *store.MockStore, e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "golang:tips").Return(embeddings.Vector{0.4}, nil).Once()
				s.On("SetPlotEmbedding", mock.Anything, mock.Anything, embeddings.Vector{0.4}).Return(int64(1), nil).Once()
			},
			wantStatus:     http.StatusAccepted,
			wantOutcome:    updater.OutcomeUpdated,
			wantDocumentID: "64b7f0c2a1e4d3b2c1a09f8e",
		},
		{
			name: "processing failure is still accepted",
			body: `{"fullDocument": {"_id": "post-2", "subreddit": "science", "title": "hello"}}`,
			setup: func(s *store.MockStore, e *embeddings.MockEmbedder) {
				e.On("Embed", mock.Anything, "science:hello").Return(nil, errors.New("network down")).Once()
			},
			wantStatus:     http.StatusAccepted,
			wantOutcome:    updater.OutcomeFailed,
			wantDocumentID: "post-2",
		},
		{
			name:       "undecodable event is rejected",
			body:       `{"fullDocument":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockStore := new(store.MockStore)
			mockEmbedder := new(embeddings.MockEmbedder)
			if tt.setup != nil {
				tt.setup(mockStore, mockEmbedder)
			}

			deps := newTestDeps(mockStore, mockEmbedder)
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			eventsHandler(deps)(w, req)

			resp := w.Result()
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus == http.StatusAccepted {
				var result map[string]any
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
				assert.Equal(t, string(tt.wantOutcome), result["outcome"])
				assert.Equal(t, tt.wantDocumentID, result["document_id"])
			}

			mockStore.AssertExpectations(t)
			mockEmbedder.AssertExpectations(t)
		})
	}
}

func TestRouter(t *testing.T) {
	mockStore := new(store.MockStore)
	mockStore.On("Ping", mock.Anything).Return(nil)
	deps := newTestDeps(mockStore, new(embeddings.MockEmbedder))

	r := newRouter(deps)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterWithoutWebhook(t *testing.T) {
	deps := newTestDeps(new(store.MockStore), new(embeddings.MockEmbedder))
	deps.Config.TriggerProvider = "nats"

	w := httptest.NewRecorder()
	newRouter(deps).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunInvoke(t *testing.T) {
	mockStore := new(store.MockStore)
	mockEmbedder := new(embeddings.MockEmbedder)
	mockEmbedder.On("Embed", mock.Anything, "science:hello").Return(embeddings.Vector{0.1, 0.2}, nil).Once()
	mockStore.On("SetPlotEmbedding", mock.Anything, "post-1", embeddings.Vector{0.1, 0.2}).Return(int64(0), nil).Once()
	deps := newTestDeps(mockStore, mockEmbedder)

	var out bytes.Buffer
	err := runInvoke(context.Background(),
		strings.NewReader(`{"fullDocument": {"_id": "post-1", "subreddit": "science", "title": "hello"}}`),
		&out, deps.Updater)

	require.NoError(t, err)
	assert.Equal(t, "post-1 not_updated\n", out.String())
	mockStore.AssertExpectations(t)
	mockEmbedder.AssertExpectations(t)
}

func TestRunInvokeBadEvent(t *testing.T) {
	deps := newTestDeps(new(store.MockStore), new(embeddings.MockEmbedder))

	var out bytes.Buffer
	err := runInvoke(context.Background(), strings.NewReader(`not json`), &out, deps.Updater)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
