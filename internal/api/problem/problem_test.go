package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, res *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var body Envelope
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body
}

func TestWrite_DevIncludesDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/events", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeServerError, "Server error", errors.New("boom"), "development")

	assert.Equal(t, "application/json", res.Result().Header.Get("Content-Type"))
	body := decode(t, res)
	assert.False(t, body.Success)
	assert.Equal(t, "boom", body.Error.Detail)
	assert.Equal(t, "/api/events", body.Error.Instance)
	assert.Equal(t, http.StatusInternalServerError, body.Error.Status)
}

func TestWrite_ProdSanitizesServerDetail(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.com/api/events", nil)
	res := httptest.NewRecorder()

	Write(res, req, http.StatusInternalServerError, TypeServerError, "Server error", errors.New("pq: relation missing"), "production")

	body := decode(t, res)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Error.Detail)
}

func TestError_Mapping(t *testing.T) {
	constraint := &storage.Error{Kind: storage.KindConstraint, Op: "insert", Err: errors.New("UNIQUE constraint failed")}
	busy := &storage.Error{Kind: storage.KindConnection, Op: "query", Retriable: true, Err: errors.New("database is locked")}
	broken := &storage.Error{Kind: storage.KindConnection, Op: "query", Err: errors.New("unable to open database file")}

	tests := []struct {
		name       string
		err        error
		status     int
		typ        string
		reason     string
		retryAfter string
	}{
		{name: "validation", err: validation.Errors{"fatalities": "fatalities must be at least 0"}, status: 422, typ: TypeValidation},
		{name: "json syntax", err: &json.SyntaxError{}, status: 400, typ: TypeBadRequest},
		{name: "malformed body", err: fmt.Errorf("decode: %w", ErrMalformedBody), status: 400, typ: TypeBadRequest},
		{name: "missing token", err: auth.ErrMissingToken, status: 401, typ: TypeUnauthorized, reason: "missing"},
		{name: "expired token", err: auth.ErrExpiredToken, status: 401, typ: TypeUnauthorized, reason: "expired"},
		{name: "bad signature", err: auth.ErrInvalidSignature, status: 401, typ: TypeUnauthorized, reason: "invalid"},
		{name: "forbidden", err: auth.ErrForbidden, status: 403, typ: TypeForbidden},
		{name: "not found", err: fmt.Errorf("event 9: %w", ErrNotFound), status: 404, typ: TypeNotFound},
		{name: "constraint", err: fmt.Errorf("create: %w", constraint), status: 400, typ: TypeConflict},
		{name: "retriable connection", err: busy, status: 503, typ: TypeUnavailable, retryAfter: "5"},
		{name: "fatal connection", err: broken, status: 500, typ: TypeServerError},
		{name: "unknown", err: errors.New("boom"), status: 500, typ: TypeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
			res := httptest.NewRecorder()

			Error(res, req, tt.err, "production")

			assert.Equal(t, tt.status, res.Code)
			assert.Equal(t, tt.retryAfter, res.Header().Get("Retry-After"))
			body := decode(t, res)
			assert.Equal(t, tt.typ, body.Error.Type)
			assert.Equal(t, tt.reason, body.Error.Reason)
		})
	}
}

func TestError_ValidationListsFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/events", nil)
	res := httptest.NewRecorder()

	Error(res, req, validation.Errors{"fatalities": "fatalities must be at least 0"}, "test")

	body := decode(t, res)
	assert.Equal(t, "fatalities must be at least 0", body.Error.Errors["fatalities"])
}
