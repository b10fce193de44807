package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/airbussard/jvc/internal/application"
)

type attendanceService interface {
	Declare(ctx context.Context, params application.DeclareAttendanceParams) (application.Attendance, error)
	SetExemption(ctx context.Context, params application.SetExemptionParams) (application.Attendance, error)
	Withdraw(ctx context.Context, params application.WithdrawAttendanceParams) error
	ListForEvent(ctx context.Context, principal application.Principal, eventID string) ([]application.RosterEntry, error)
}

// AttendanceHandler exposes attendance declaration and the exemption flag.
type AttendanceHandler struct {
	service   attendanceService
	responder responder
	logger    *slog.Logger
}

func NewAttendanceHandler(service attendanceService, logger *slog.Logger) *AttendanceHandler {
	base := defaultLogger(logger)
	return &AttendanceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AttendanceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AttendanceHandler", operation, attrs...)
}

// Declare handles PUT /events/{eventID}/attendance.
func (h *AttendanceHandler) Declare(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	eventID := pathParam(r, "eventID")

	var req declareAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Declare", "event_id", eventID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode attendance request")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	attendance, err := h.service.Declare(r.Context(), application.DeclareAttendanceParams{
		Principal: principal,
		EventID:   eventID,
		MemberID:  memberOrSelf(req.MemberID, principal),
		Status:    application.AttendanceStatus(req.Status),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{Attendance: toAttendanceDTO(attendance, "")})
}

// SetExemption handles PUT /events/{eventID}/attendance/exemption.
func (h *AttendanceHandler) SetExemption(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	eventID := pathParam(r, "eventID")

	var req exemptionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if req.RequiresExemption == nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, paramError{name: "requires_exemption"})
		return
	}

	attendance, err := h.service.SetExemption(r.Context(), application.SetExemptionParams{
		Principal:         principal,
		EventID:           eventID,
		MemberID:          memberOrSelf(req.MemberID, principal),
		RequiresExemption: *req.RequiresExemption,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, attendanceResponse{Attendance: toAttendanceDTO(attendance, "")})
}

// Withdraw handles DELETE /events/{eventID}/attendance. The member defaults
// to the principal and may be given with ?member_id=.
func (h *AttendanceHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	err := h.service.Withdraw(r.Context(), application.WithdrawAttendanceParams{
		Principal: principal,
		EventID:   pathParam(r, "eventID"),
		MemberID:  memberOrSelf(queryString(r, "member_id"), principal),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// List handles GET /events/{eventID}/attendances.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	roster, err := h.service.ListForEvent(r.Context(), principal, pathParam(r, "eventID"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := attendanceListResponse{Attendances: make([]attendanceDTO, 0, len(roster))}
	for _, entry := range roster {
		resp.Attendances = append(resp.Attendances, toAttendanceDTO(entry.Attendance, entry.MemberName))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func memberOrSelf(memberID string, principal application.Principal) string {
	if memberID != "" {
		return memberID
	}
	return principal.MemberID
}

type declareAttendanceRequest struct {
	MemberID string `json:"member_id"`
	Status   string `json:"status"`
}

type exemptionRequest struct {
	MemberID          string `json:"member_id"`
	RequiresExemption *bool  `json:"requires_exemption"`
}

type attendanceDTO struct {
	ID                string    `json:"id"`
	EventID           string    `json:"event_id"`
	MemberID          string    `json:"member_id"`
	MemberName        string    `json:"member_name,omitempty"`
	Status            string    `json:"status"`
	RequiresExemption bool      `json:"requires_exemption"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type attendanceResponse struct {
	Attendance attendanceDTO `json:"attendance"`
}

type attendanceListResponse struct {
	Attendances []attendanceDTO `json:"attendances"`
}

func toAttendanceDTO(a application.Attendance, memberName string) attendanceDTO {
	return attendanceDTO{
		ID:                a.ID,
		EventID:           a.EventID,
		MemberID:          a.MemberID,
		MemberName:        memberName,
		Status:            string(a.Status),
		RequiresExemption: a.RequiresExemption,
		UpdatedAt:         a.UpdatedAt,
	}
}
