package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/airbussard/jvc/internal/application"
)

type absenceService interface {
	CreateVacation(ctx context.Context, params application.CreateVacationParams) (application.Vacation, error)
	DeleteVacation(ctx context.Context, principal application.Principal, vacationID string) error
	ListVacations(ctx context.Context, params application.ListAbsencesParams) ([]application.Vacation, error)
	CreateUnavailableDay(ctx context.Context, params application.CreateUnavailableDayParams) (application.UnavailableDay, error)
	DeleteUnavailableDay(ctx context.Context, principal application.Principal, dayID string) error
	ListUnavailableDays(ctx context.Context, params application.ListAbsencesParams) ([]application.UnavailableDay, error)
}

// AbsenceHandler exposes vacations and unavailable days. Dates travel as YYYY-MM-DD.
type AbsenceHandler struct {
	service   absenceService
	responder responder
}

func NewAbsenceHandler(service absenceService, logger *slog.Logger) *AbsenceHandler {
	return &AbsenceHandler{service: service, responder: newResponder(logger)}
}

func (h *AbsenceHandler) ListVacations(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := absenceListParams(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	vacations, err := h.service.ListVacations(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := vacationListResponse{Vacations: make([]vacationDTO, 0, len(vacations))}
	for _, v := range vacations {
		resp.Vacations = append(resp.Vacations, toVacationDTO(v))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AbsenceHandler) CreateVacation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req vacationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	start, err := parseDate("start_date", req.StartDate)
	var end time.Time
	if err == nil {
		end, err = parseDate("end_date", req.EndDate)
	}
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	vacation, err := h.service.CreateVacation(r.Context(), application.CreateVacationParams{
		Principal: principal,
		MemberID:  req.MemberID,
		StartDate: start,
		EndDate:   end,
		Note:      req.Note,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, vacationResponse{Vacation: toVacationDTO(vacation)})
}

func (h *AbsenceHandler) DeleteVacation(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteVacation(r.Context(), principal, pathParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AbsenceHandler) ListUnavailableDays(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := absenceListParams(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	days, err := h.service.ListUnavailableDays(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := unavailableDayListResponse{UnavailableDays: make([]unavailableDayDTO, 0, len(days))}
	for _, d := range days {
		resp.UnavailableDays = append(resp.UnavailableDays, toUnavailableDayDTO(d))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *AbsenceHandler) CreateUnavailableDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req unavailableDayRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	day, err := h.service.CreateUnavailableDay(r.Context(), application.CreateUnavailableDayParams{
		Principal: principal,
		MemberID:  req.MemberID,
		Date:      date,
		Reason:    req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, unavailableDayResponse{UnavailableDay: toUnavailableDayDTO(day)})
}

func (h *AbsenceHandler) DeleteUnavailableDay(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	if err := h.service.DeleteUnavailableDay(r.Context(), principal, pathParam(r, "id")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func absenceListParams(r *http.Request) (application.ListAbsencesParams, error) {
	principal, _ := PrincipalFromContext(r.Context())
	params := application.ListAbsencesParams{Principal: principal, MemberID: queryString(r, "member_id")}

	var err error
	if params.From, err = queryTimePtr(r, "from", time.UTC); err != nil {
		return params, err
	}
	params.To, err = queryTimePtr(r, "to", time.UTC)
	return params, err
}

type vacationRequest struct {
	MemberID  string  `json:"member_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Note      *string `json:"note"`
}

type unavailableDayRequest struct {
	MemberID string  `json:"member_id"`
	Date     string  `json:"date"`
	Reason   *string `json:"reason"`
}

type vacationDTO struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"member_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Note      *string `json:"note,omitempty"`
}

type vacationResponse struct {
	Vacation vacationDTO `json:"vacation"`
}

type vacationListResponse struct {
	Vacations []vacationDTO `json:"vacations"`
}

type unavailableDayDTO struct {
	ID       string  `json:"id"`
	MemberID string  `json:"member_id"`
	Date     string  `json:"date"`
	Reason   *string `json:"reason,omitempty"`
}

type unavailableDayResponse struct {
	UnavailableDay unavailableDayDTO `json:"unavailable_day"`
}

type unavailableDayListResponse struct {
	UnavailableDays []unavailableDayDTO `json:"unavailable_days"`
}

func toVacationDTO(v application.Vacation) vacationDTO {
	return vacationDTO{
		ID:        v.ID,
		MemberID:  v.MemberID,
		StartDate: formatDate(v.StartDate),
		EndDate:   formatDate(v.EndDate),
		Note:      v.Note,
	}
}

func toUnavailableDayDTO(d application.UnavailableDay) unavailableDayDTO {
	return unavailableDayDTO{ID: d.ID, MemberID: d.MemberID, Date: formatDate(d.Date), Reason: d.Reason}
}
