package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/medterms/internal/auth"
	"github.com/bobmcallan/medterms/internal/common"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCorrelationIDMiddleware(t *testing.T) {
	handler := correlationIDMiddleware(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get("X-Correlation-ID"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Len(t, rec.Header().Get("X-Correlation-ID"), 8)
}

func TestCorsMiddleware_Preflight(t *testing.T) {
	handler := corsMiddleware(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/terms", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), auth.HeaderName)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWriteLimiter(t *testing.T) {
	limiter := newWriteLimiter(0.001, 2)

	statuses := make([]int, 0, 3)
	allowed := make([]bool, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		allowed = append(allowed, limiter.Allow(rec))
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, []bool{true, true, false}, allowed)
	assert.Equal(t, http.StatusTooManyRequests, statuses[2])
}

func TestWriteLimiter_Disabled(t *testing.T) {
	limiter := newWriteLimiter(0, 0)
	assert.Nil(t, limiter)
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		assert.True(t, limiter.Allow(rec))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestLoggingMiddleware_CapturesStatus(t *testing.T) {
	handler := loggingMiddleware(common.NewSilentLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short", rec.Body.String())
}
