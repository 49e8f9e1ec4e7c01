package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorsMiddleware(t *testing.T) {
	tests := []struct {
		name              string
		allowedOrigins    []string
		requestOrigin     string
		method            string
		expectAllowOrigin string
	}{
		{
			name:              "allowed origin",
			allowedOrigins:    []string{"https://hub.example.org", "https://example.com"},
			requestOrigin:     "https://hub.example.org",
			method:            http.MethodGet,
			expectAllowOrigin: "https://hub.example.org",
		},
		{
			name:              "disallowed origin",
			allowedOrigins:    []string{"https://hub.example.org"},
			requestOrigin:     "https://evil.com",
			method:            http.MethodGet,
			expectAllowOrigin: "",
		},
		{
			name:              "no origin header",
			allowedOrigins:    []string{"https://hub.example.org"},
			method:            http.MethodGet,
			expectAllowOrigin: "",
		},
		{
			name:              "empty allowed origins",
			allowedOrigins:    []string{},
			requestOrigin:     "https://hub.example.org",
			method:            http.MethodGet,
			expectAllowOrigin: "*",
		},
		{
			name:              "preflight request",
			allowedOrigins:    []string{"https://hub.example.org"},
			requestOrigin:     "https://hub.example.org",
			method:            http.MethodOptions,
			expectAllowOrigin: "https://hub.example.org",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reached := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
				w.WriteHeader(http.StatusTeapot)
			})

			req := httptest.NewRequest(tt.method, "/api/orcid-config", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rr := httptest.NewRecorder()
			NewCORSMiddleware(tt.allowedOrigins)(handler).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectAllowOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, OPTIONS", rr.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Content-Type, X-Request-ID", rr.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "3600", rr.Header().Get("Access-Control-Max-Age"))

			if tt.method == http.MethodOptions {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.False(t, reached, "preflight must not reach the handler")
			} else {
				assert.Equal(t, http.StatusTeapot, rr.Code)
				assert.True(t, reached)
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	t.Run("generates an id", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("reuses a valid inbound id", func(t *testing.T) {
		inbound := uuid.NewString()
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, inbound)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, inbound, seen)
	})

	t.Run("replaces a malformed inbound id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.NotEqual(t, "<script>", seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})
}

func TestRecoverMiddleware(t *testing.T) {
	handler := NewRecoverMiddleware("test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
}

func TestResponseWriterDelegator(t *testing.T) {
	rr := httptest.NewRecorder()
	w := wrapResponseWriter(rr)

	w.WriteHeader(http.StatusCreated)
	w.WriteHeader(http.StatusInternalServerError)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusCreated, w.Status())
	assert.Equal(t, 5, w.BytesWritten())
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, rr, w.Unwrap())
}
