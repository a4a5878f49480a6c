package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.RemoteAddr = "10.0.0.7:51234"
	assert.Equal(t, "10.0.0.7", ClientID(r))

	r.RemoteAddr = "not-a-hostport"
	assert.Equal(t, "not-a-hostport", ClientID(r))
}

func TestMiddleware(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/submissions", Method: "POST", Limit: 2, Window: time.Hour, Burst: 2},
		},
	})
	defer limiter.Stop()

	handler := Middleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	send := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submissions", nil))
		return rec
	}

	first := send()
	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusAccepted, send().Code)

	denied := send()
	require.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.NotEmpty(t, denied.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(denied.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
}

func TestMiddleware_HealthIsUnlimited(t *testing.T) {
	limiter := NewLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer limiter.Stop()

	handler := Middleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestMiddleware_SubmissionsPerHourFromEnvironment(t *testing.T) {
	limiter := NewLimiter(LoadConfig(envMap(map[string]string{
		"RATE_LIMIT_SUBMISSIONS_PER_HOUR": "20",
	})))
	defer limiter.Stop()

	handler := Middleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	send := func(path, remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, path, nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	for i, wantRemaining := range []string{"1", "0"} {
		rec := send("/submissions", "10.0.0.1:4000")
		require.Equal(t, http.StatusAccepted, rec.Code, "submission %d", i+1)
		assert.Equal(t, "20", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, wantRemaining, rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	denied := send("/submissions", "10.0.0.1:4001")
	require.Equal(t, http.StatusTooManyRequests, denied.Code)
	assert.Equal(t, "application/json", denied.Header().Get("Content-Type"))
	assert.Equal(t, "0", denied.Header().Get("X-RateLimit-Remaining"))

	retryAfter, err := strconv.Atoi(denied.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 60)
	assert.LessOrEqual(t, retryAfter, 360)

	var body map[string]any
	require.NoError(t, json.Unmarshal(denied.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.EqualValues(t, 20, body["limit"])
	assert.EqualValues(t, retryAfter, body["retry_after"])
	assert.NotEmpty(t, body["reset_at"])

	assert.Equal(t, http.StatusAccepted, send("/submissions", "10.0.0.2:4000").Code, "other clients keep their own budget")
	assert.Equal(t, http.StatusAccepted, send("/submissions/stream", "10.0.0.1:4002").Code, "streaming submissions are limited separately")
}
