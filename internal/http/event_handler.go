package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/calendarexport"
	"github.com/airbussard/jvc/internal/timeline"
)

// Calendar export defaults.
const (
	CalendarName        = "jVC Termine"
	defaultExportPeriod = 30
)

type eventService interface {
	Create(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	Update(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	Delete(ctx context.Context, principal application.Principal, eventID string) error
	Get(ctx context.Context, principal application.Principal, eventID string) (application.Event, error)
	List(ctx context.Context, params application.ListEventsParams) ([]application.Event, error)
}

// EventHandler exposes the event catalog and its iCalendar export.
type EventHandler struct {
	service   eventService
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, location *time.Location, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &EventHandler{service: service, location: location, now: time.Now, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode event request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	event, err := h.service.Create(r.Context(), application.CreateEventParams{Principal: principal, Input: req.toInput()})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "event_id", event.ID).InfoContext(r.Context(), "event created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	event, err := h.service.Update(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   pathParam(r, "eventID"),
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.Delete(r.Context(), principal, pathParam(r, "eventID")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.Get(r.Context(), principal, pathParam(r, "eventID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventResponse{Event: toEventDTO(event)})
}

// List handles GET /events?from&to.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	from, err := queryTimePtr(r, "from", h.location)
	var to *time.Time
	if err == nil {
		to, err = queryTimePtr(r, "to", h.location)
	}
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	events, err := h.service.List(r.Context(), application.ListEventsParams{Principal: principal, From: from, To: to})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := eventListResponse{Events: make([]eventDTO, 0, len(events))}
	for _, event := range events {
		resp.Events = append(resp.Events, toEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// ExportICS handles GET /events.ics?from&to. Both bounds are dates; events
// starting from the first day through the end of the last day are exported.
// The range defaults to today plus 30 days.
func (h *EventHandler) ExportICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	now := h.now().In(h.location)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)

	from, err := queryTime(r, "from", h.location)
	var to time.Time
	if err == nil {
		to, err = queryTime(r, "to", h.location)
	}
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if from.IsZero() {
		from = today
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, defaultExportPeriod)
	}
	end := to.AddDate(0, 0, 1)

	logger := h.log(r.Context(), "ExportICS", "from", formatDate(from), "to", formatDate(to))

	events, err := h.service.List(r.Context(), application.ListEventsParams{Principal: principal, From: &from, To: &end})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	items := make([]timeline.Item, 0, len(events))
	for _, event := range events {
		if event.Start.Before(from) || !event.Start.Before(end) {
			continue
		}
		items = append(items, eventItem(event))
	}

	var buf bytes.Buffer
	if err := calendarexport.Encode(&buf, items, calendarexport.Options{
		Name:     CalendarName,
		Location: h.location,
		Stamp:    h.now(),
	}); err != nil {
		logger.ErrorContext(r.Context(), "failed to encode calendar", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	filename := fmt.Sprintf("jvc-termine-%s-%s.ics", from.Format(dateLayout), to.Format(dateLayout))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.ErrorContext(r.Context(), "failed to write calendar", "error", err)
		return
	}
	logger.InfoContext(r.Context(), "calendar exported", "event_count", len(items))
}

func eventItem(event application.Event) timeline.Item {
	return timeline.Item{
		ID:          event.ID,
		SourceID:    event.ID,
		Category:    timeline.CategoryEvent,
		Title:       event.Title,
		Description: event.Description,
		Location:    event.Location,
		Start:       event.Start,
		End:         event.End,
		AllDay:      event.AllDay,
		Color:       event.Color,
	}
}

type eventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Color       string    `json:"color"`
}

func (r eventRequest) toInput() application.EventInput {
	return application.EventInput{
		Title:       r.Title,
		Description: r.Description,
		Location:    r.Location,
		Start:       r.Start,
		End:         r.End,
		AllDay:      r.AllDay,
		Color:       r.Color,
	}
}

type eventDTO struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Color       string    `json:"color"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type eventResponse struct {
	Event eventDTO `json:"event"`
}

type eventListResponse struct {
	Events []eventDTO `json:"events"`
}

func toEventDTO(e application.Event) eventDTO {
	return eventDTO{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       e.Start,
		End:         e.End,
		AllDay:      e.AllDay,
		Color:       e.Color,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
