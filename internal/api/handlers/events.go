package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/conflicts/internal/api/pagination"
	"github.com/Togather-Foundation/conflicts/internal/api/problem"
	"github.com/Togather-Foundation/conflicts/internal/audit"
	"github.com/Togather-Foundation/conflicts/internal/auth"
	"github.com/Togather-Foundation/conflicts/internal/domain/events"
	"github.com/Togather-Foundation/conflicts/internal/validation"
)

type EventsHandler struct {
	Events *events.Service
	Audit  *audit.Logger
	Env    string
}

func NewEventsHandler(svc *events.Service, auditLogger *audit.Logger, env string) *EventsHandler {
	return &EventsHandler{Events: svc, Audit: auditLogger, Env: env}
}

type listResponse struct {
	Events     []events.Event  `json:"events"`
	Pagination pagination.Meta `json:"pagination"`
}

// List handles GET /api/events.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filters, ferr := events.ParseFilters(query)
	page, perr := pagination.Parse(query)
	if ferr != nil || perr != nil {
		problem.Error(w, r, combineValidation(ferr, perr), h.Env)
		return
	}

	items, meta, err := h.Events.List(r.Context(), filters, page)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Events: items, Pagination: meta})
}

// Create handles POST /api/events. The router restricts it to admins.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		problem.Error(w, r, auth.ErrMissingToken, h.Env)
		return
	}

	var params events.CreateParams
	if err := decodeJSON(r, &params); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	created, err := h.Events.Create(r.Context(), caller, params)
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}

	h.Audit.LogFromRequest(r, "event.create", "", "event", strconv.FormatInt(created.ID, 10), audit.StatusSuccess,
		map[string]string{"country": created.Country, "event_type": created.EventType})
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		problem.Error(w, r, problem.ErrNotFound, h.Env)
		return
	}

	ev, err := h.Events.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Event not found", err, h.Env)
			return
		}
		problem.Error(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// Stats handles GET /api/events/stats.
func (h *EventsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Events.Stats(r.Context())
	if err != nil {
		problem.Error(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// combineValidation reports filter and paging problems in one response.
func combineValidation(errs ...error) error {
	combined := validation.Errors{}
	for _, err := range errs {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			for field, msg := range verrs {
				combined.Add(field, msg)
			}
		} else if err != nil {
			return err
		}
	}
	return combined.Err()
}
