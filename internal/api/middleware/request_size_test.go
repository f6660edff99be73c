package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSize(t *testing.T) {
	tests := []struct {
		name      string
		maxBytes  int64
		bodySize  int
		wantError bool
	}{
		{name: "small request accepted", maxBytes: 1024, bodySize: 512},
		{name: "exact limit accepted", maxBytes: 1024, bodySize: 1024},
		{name: "oversized request rejected", maxBytes: 1024, bodySize: 2048, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			handler := RequestSize(tt.maxBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, readErr = io.ReadAll(r.Body)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader(strings.Repeat("x", tt.bodySize)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantError {
				var maxErr *http.MaxBytesError
				require.Error(t, readErr)
				assert.True(t, errors.As(readErr, &maxErr))
			} else {
				assert.NoError(t, readErr)
			}
		})
	}
}

func TestRequestSizeDefaultsWhenUnset(t *testing.T) {
	var readErr error
	handler := RequestSize(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	body := strings.NewReader(strings.Repeat("x", int(DefaultMaxBodySize)+1))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/events", body))
	assert.Error(t, readErr)
}
