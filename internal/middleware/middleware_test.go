package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dummyHandler is a placeholder that records if it was called and the context it received.
type dummyHandler struct {
	called bool
	ctx    context.Context
}

func (d *dummyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.called = true
	d.ctx = r.Context()
	w.WriteHeader(http.StatusOK)
}

type fakeVerifier struct {
	user string
	err  error
	got  string
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (string, error) {
	f.got = token
	return f.user, f.err
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		verifier   *fakeVerifier
		wantCalled bool
		wantToken  string
	}{
		{"no header", "", &fakeVerifier{user: "u"}, false, ""},
		{"wrong scheme", "Basic abc", &fakeVerifier{user: "u"}, false, ""},
		{"empty token", "Bearer  ", &fakeVerifier{user: "u"}, false, ""},
		{"rejected", "Bearer bad", &fakeVerifier{err: errors.New("expired")}, false, "bad"},
		{"empty subject", "Bearer tok", &fakeVerifier{user: ""}, false, "tok"},
		{"valid", "Bearer good", &fakeVerifier{user: "user_abc"}, true, "good"},
		{"lowercase scheme", "bearer good", &fakeVerifier{user: "user_abc"}, true, "good"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dummy := &dummyHandler{}
			h := BearerAuth(tt.verifier, zap.NewNop())(dummy)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCalled, dummy.called)
			assert.Equal(t, tt.wantToken, tt.verifier.got)
			if !tt.wantCalled {
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
				return
			}
			assert.Equal(t, "user_abc", GetUserIDFromContext(dummy.ctx))
		})
	}
}

func TestGetUserIDFromContext_Missing(t *testing.T) {
	assert.Equal(t, "", GetUserIDFromContext(context.Background()))
}

func TestRequestID(t *testing.T) {
	dummy := &dummyHandler{}
	h := RequestID(dummy)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	id := rec.Header().Get(RequestIDHeader)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, GetRequestIDFromContext(dummy.ctx))

	incoming := uuid.NewString()
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, incoming)
	h.ServeHTTP(rec, req)
	assert.Equal(t, incoming, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
}

func TestWithRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := WithRequestLogging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/api/users/me", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "PATCH", fields["method"])
	assert.Equal(t, "/api/users/me", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, int64(len("short and stout")), fields["bytes"])
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Recoverer(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("table bq7xyz123 exploded")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vessels", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "bq7xyz123")
	assert.Equal(t, 1, logs.FilterMessage("panic while handling request").Len())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	dummy := &dummyHandler{}
	h := rl.Middleware(dummy)

	do := func(user string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/vessels", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusOK, do("alice"))
	assert.Equal(t, http.StatusTooManyRequests, do("alice"))

	// Budgets are per user.
	assert.Equal(t, http.StatusOK, do("bob"))
}

func TestRateLimiter_Headers(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	h := rl.Middleware(&dummyHandler{})

	req := httptest.NewRequest(http.MethodGet, "/api/vessels", nil)
	req = req.WithContext(WithUserID(req.Context(), "alice"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiter_RequiresUser(t *testing.T) {
	rl := NewRateLimiter(100, 100)
	dummy := &dummyHandler{}

	rec := httptest.NewRecorder()
	rl.Middleware(dummy).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vessels", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, dummy.called)
	assert.Zero(t, rl.Len())
}

func TestRateLimiter_Sweep(t *testing.T) {
	rl := NewRateLimiter(0.001, 1)
	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("bob"))
	require.False(t, rl.Allow("alice"))
	require.Equal(t, 2, rl.Len())

	assert.Zero(t, rl.Sweep(time.Now().Add(-time.Hour)), "recent users stay")
	assert.Equal(t, 2, rl.Len())

	assert.Equal(t, 2, rl.Sweep(time.Now().Add(time.Second)))
	assert.Zero(t, rl.Len())

	// An evicted user starts over with a full bucket.
	assert.True(t, rl.Allow("alice"))
}

func TestRateLimiter_StartCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	rl.Allow("alice")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 10*time.Millisecond, 0, zap.NewNop())

	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 10*time.Millisecond)
}
