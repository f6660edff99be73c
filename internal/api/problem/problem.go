package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/storage"
	"github.com/Togather-Foundation/conflicts/internal/validation"
	"github.com/rs/zerolog"
)

const contentType = "application/json"

const typeBase = "https://conflicts.togather.foundation/problems/"

const (
	TypeValidation   = typeBase + "validation-error"
	TypeBadRequest   = typeBase + "bad-request"
	TypeUnauthorized = typeBase + "unauthorized"
	TypeForbidden    = typeBase + "forbidden"
	TypeNotFound     = typeBase + "not-found"
	TypeConflict     = typeBase + "conflict"
	TypeRateLimited  = typeBase + "rate-limited"
	TypeUnavailable  = typeBase + "service-unavailable"
	TypeServerError  = typeBase + "server-error"
)

// RetryAfterSeconds is advertised when a retriable backend failure occurs.
const RetryAfterSeconds = 5

type ProblemDetails struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Reason   string         `json:"reason,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

// Envelope is the body of every error response.
type Envelope struct {
	Success bool           `json:"success"`
	Error   ProblemDetails `json:"error"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithInstance(instance string) Option {
	return func(p *ProblemDetails) {
		p.Instance = instance
	}
}

func WithErrors(errs map[string]any) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

// WithReason sets the machine readable cause, e.g. "expired".
func WithReason(reason string) Option {
	return func(p *ProblemDetails) {
		p.Reason = reason
	}
}

func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	problem := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if problem.Detail == "" && err != nil {
		if status < 500 || exposeDetail(env) {
			problem.Detail = err.Error()
		} else {
			problem.Detail = http.StatusText(status)
		}
	}

	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}

	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		var event *zerolog.Event
		if status >= 500 {
			event = logger.Error()
		} else {
			event = logger.Warn()
		}
		event.
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteProblem(w, problem)
}

// Error renders err with the status its classification calls for.
func Error(w http.ResponseWriter, r *http.Request, err error, env string) {
	var verrs validation.Errors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &verrs):
		Write(w, r, http.StatusUnprocessableEntity, TypeValidation, "Validation failed", err, env,
			WithDetail("One or more fields are invalid"), WithErrors(verrs.Fields()))
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.Is(err, ErrMalformedBody):
		Write(w, r, http.StatusBadRequest, TypeBadRequest, "Malformed request body", err, env)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		Write(w, r, http.StatusUnauthorized, TypeUnauthorized, "Authentication required", err, env,
			WithDetail(unauthorizedDetail(err)), WithReason(auth.Reason(err)))
	case errors.Is(err, ErrUnauthorized):
		Write(w, r, http.StatusUnauthorized, TypeUnauthorized, "Authentication failed", err, env)
	case errors.Is(err, auth.ErrForbidden), errors.Is(err, ErrForbidden):
		Write(w, r, http.StatusForbidden, TypeForbidden, "Forbidden", err, env,
			WithDetail("Insufficient permissions"))
	case errors.Is(err, ErrNotFound):
		Write(w, r, http.StatusNotFound, TypeNotFound, "Not found", err, env)
	case errors.Is(err, storage.ErrConstraintViolation), errors.Is(err, ErrConflict):
		Write(w, r, http.StatusBadRequest, TypeConflict, "Conflict", err, env,
			WithDetail("The request conflicts with existing data"))
	case errors.Is(err, storage.ErrConnection) && storage.IsRetriable(err):
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
		Write(w, r, http.StatusServiceUnavailable, TypeUnavailable, "Service unavailable", err, env)
	default:
		Write(w, r, http.StatusInternalServerError, TypeServerError, "Server error", err, env)
	}
}

func unauthorizedDetail(err error) string {
	switch auth.Reason(err) {
	case "missing":
		return "A bearer token is required"
	case "expired":
		return "The token has expired"
	default:
		return "The token is invalid"
	}
}

func exposeDetail(env string) bool {
	return env == "development" || env == "test"
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	payload, err := json.Marshal(Envelope{Success: false, Error: problem})
	if err != nil {
		fallback := `{"success":false,"error":{"type":"about:blank","title":"Internal Server Error","status":500}}`
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
	ErrMalformedBody = errors.New("malformed request body")
)
