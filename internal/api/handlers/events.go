package handlers

import (
	"net/http"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/api/response"
	"github.com/calm3366/bond-portfolio/internal/apperrors"
	"github.com/calm3366/bond-portfolio/internal/service"
	"github.com/calm3366/bond-portfolio/internal/validation"
)

// EventHandler handles HTTP requests for the event log.
type EventHandler struct {
	eventLogService *service.EventLogService
}

// NewEventHandler creates a new EventHandler with the provided service dependency.
func NewEventHandler(eventLogService *service.EventLogService) *EventHandler {
	return &EventHandler{
		eventLogService: eventLogService,
	}
}

// Events handles GET requests to retrieve event log entries with filtering.
//
// Endpoint: GET /api/events
// Query Parameters:
//   - level: Optional comma-separated levels (info, warning, error)
//   - start_date, end_date: Optional bounds (YYYY-MM-DD or RFC3339)
//   - message: Optional message substring
//   - sort_dir: Optional asc or desc (default desc)
//   - limit: Optional 1-1000 (default 100)
//
// Response: 200 OK with array of EventLog
// Error: 400 Bad Request if a parameter is invalid
// Error: 500 Internal Server Error if retrieval fails
func (h *EventHandler) Events(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := request.ParseEventFilters(
		q.Get("level"),
		q.Get("start_date"),
		q.Get("end_date"),
		q.Get("message"),
		q.Get("sort_dir"),
		q.Get("limit"),
	)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid filter parameters", err.Error())
		return
	}

	events, err := h.eventLogService.List(r.Context(), filters)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveEvents.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, events)
}

// CreateEvent handles POST requests to append a user event to the log.
//
// Endpoint: POST /api/events
// Request Body: CreateEventRequest (message required, level defaults to info)
// Response: 201 Created with EventLog
// Error: 400 Bad Request if validation fails or request body is invalid
// Error: 500 Internal Server Error if storing fails
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	req, err := parseJSON[request.CreateEventRequest](r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := validation.ValidateCreateEvent(req); err != nil {
		response.RespondError(w, http.StatusBadRequest, "validation failed", validationDetails(err))
		return
	}

	event, err := h.eventLogService.Create(r.Context(), req.Level, req.Message)
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to create event", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusCreated, event)
}

// ClearEventsResponse reports how many entries were removed.
type ClearEventsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ClearEvents handles DELETE requests to empty the event log.
//
// Endpoint: DELETE /api/events
// Response: 200 OK with ClearEventsResponse
// Error: 500 Internal Server Error if deletion fails
func (h *EventHandler) ClearEvents(w http.ResponseWriter, r *http.Request) {
	n, err := h.eventLogService.Clear(r.Context())
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to clear events", err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, ClearEventsResponse{Deleted: n})
}
