package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"issuetracker/database"
	"issuetracker/middleware"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		store      database.Store
		wantStatus int
		wantBody   string
	}{
		{
			name:       "store reachable",
			store:      database.NewMemoryStore(),
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "store down",
			store:      &failingStore{err: errors.New("no reachable servers")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(tt.store, zerolog.Nop())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_ServesIssues(t *testing.T) {
	r := NewRouter(database.NewMemoryStore(), zerolog.Nop())

	w := doJSON(t, r, http.MethodPost, issuesPath("apitest"), map[string]any{
		"issue_title": "T",
		"issue_text":  "X",
		"created_by":  "C",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, issuesPath("apitest"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}
