package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/timeline"
)

type timelineService interface {
	Timeline(ctx context.Context, params application.TimelineParams) ([]timeline.Item, error)
	Availability(ctx context.Context, params application.AvailabilityParams) ([]timeline.MemberAvailability, error)
}

// TimelineHandler serves the merged calendar view and the availability overview.
type TimelineHandler struct {
	service   timelineService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewTimelineHandler constructs the handler. Date-only query values are
// interpreted in location.
func NewTimelineHandler(service timelineService, location *time.Location, logger *slog.Logger) *TimelineHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.UTC
	}
	return &TimelineHandler{service: service, location: location, responder: newResponder(base), logger: base}
}

func (h *TimelineHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TimelineHandler", operation, attrs...)
}

// Timeline handles GET /timeline.
func (h *TimelineHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	params := application.TimelineParams{Principal: principal}
	var err error
	if params.From, err = queryTime(r, "from", h.location); err == nil {
		params.To, err = queryTime(r, "to", h.location)
	}
	if err == nil {
		params.Filter.OnlyMyEvents, err = queryBool(r, "only_my_events")
	}
	if err == nil {
		params.Filter.ShowAbsences, err = queryBool(r, "show_absences")
	}
	if err != nil {
		h.log(r.Context(), "Timeline", "error_kind", "bad_request").WarnContext(r.Context(), "invalid timeline query", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	params.Filter.AbsenceScope = queryString(r, "absence_scope")

	items, err := h.service.Timeline(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := timelineResponse{Items: make([]timelineItemDTO, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, toTimelineItemDTO(item))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Availability handles GET /availability.
func (h *TimelineHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	from, err := queryTime(r, "from", h.location)
	var to time.Time
	if err == nil {
		to, err = queryTime(r, "to", h.location)
	}
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	summary, err := h.service.Availability(r.Context(), application.AvailabilityParams{Principal: principal, From: from, To: to})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := availabilityResponse{Members: make([]availabilityDTO, 0, len(summary))}
	for _, s := range summary {
		resp.Members = append(resp.Members, availabilityDTO{
			MemberID:        s.MemberID,
			Name:            s.Name,
			Vacations:       s.Vacations,
			UnavailableDays: s.UnavailableDays,
			Total:           s.Total,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type timelineItemDTO struct {
	ID               string    `json:"id"`
	SourceID         string    `json:"source_id"`
	Category         string    `json:"category"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	Location         string    `json:"location,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	AllDay           bool      `json:"all_day"`
	Color            string    `json:"color"`
	BorderColor      string    `json:"border_color,omitempty"`
	MemberID         string    `json:"member_id,omitempty"`
	MemberName       string    `json:"member_name,omitempty"`
	HasMyAttendance  bool      `json:"has_my_attendance"`
	AttendanceStatus string    `json:"attendance_status,omitempty"`
	Emphasized       bool      `json:"emphasized"`
}

type timelineResponse struct {
	Items []timelineItemDTO `json:"items"`
}

type availabilityDTO struct {
	MemberID        string `json:"member_id"`
	Name            string `json:"name"`
	Vacations       int    `json:"vacations"`
	UnavailableDays int    `json:"unavailable_days"`
	Total           int    `json:"total"`
}

type availabilityResponse struct {
	Members []availabilityDTO `json:"members"`
}

func toTimelineItemDTO(item timeline.Item) timelineItemDTO {
	return timelineItemDTO{
		ID:               item.ID,
		SourceID:         item.SourceID,
		Category:         string(item.Category),
		Title:            item.Title,
		Description:      item.Description,
		Location:         item.Location,
		Start:            item.Start,
		End:              item.End,
		AllDay:           item.AllDay,
		Color:            item.Color,
		BorderColor:      item.BorderColor,
		MemberID:         item.MemberID,
		MemberName:       item.MemberName,
		HasMyAttendance:  item.HasMyAttendance,
		AttendanceStatus: item.AttendanceStatus,
		Emphasized:       item.Emphasized,
	}
}
