package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/airbussard/jvc/internal/application"
)

type memberService interface {
	Invite(ctx context.Context, params application.InviteMemberParams) (application.Member, error)
	UpdateRole(ctx context.Context, params application.UpdateMemberRoleParams) (application.Member, error)
	AssignUnit(ctx context.Context, params application.AssignMemberUnitParams) (application.Member, error)
	List(ctx context.Context, principal application.Principal) ([]application.Member, error)
}

type MemberHandler struct {
	service   memberService
	responder responder
}

func NewMemberHandler(service memberService, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{service: service, responder: newResponder(logger)}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	members, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := memberListResponse{Members: make([]memberDTO, 0, len(members))}
	for _, m := range members {
		resp.Members = append(resp.Members, toMemberDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *MemberHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req inviteMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	member, err := h.service.Invite(r.Context(), application.InviteMemberParams{
		Principal:          principal,
		DisplayName:        req.DisplayName,
		Role:               application.Role(req.Role),
		OrganizationUnitID: req.OrganizationUnitID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, memberResponse{Member: toMemberDTO(member)})
}

// UpdateRole handles PUT /members/{memberID}/role.
func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req memberRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	member, err := h.service.UpdateRole(r.Context(), application.UpdateMemberRoleParams{
		Principal: principal,
		MemberID:  pathParam(r, "memberID"),
		Role:      application.Role(req.Role),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

// AssignUnit handles PUT /members/{memberID}/unit. A null unit detaches the member.
func (h *MemberHandler) AssignUnit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req memberUnitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	member, err := h.service.AssignUnit(r.Context(), application.AssignMemberUnitParams{
		Principal:          principal,
		MemberID:           pathParam(r, "memberID"),
		OrganizationUnitID: req.OrganizationUnitID,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, memberResponse{Member: toMemberDTO(member)})
}

type inviteMemberRequest struct {
	DisplayName        string  `json:"display_name"`
	Role               string  `json:"role"`
	OrganizationUnitID *string `json:"organization_unit_id"`
}

type memberRoleRequest struct {
	Role string `json:"role"`
}

type memberUnitRequest struct {
	OrganizationUnitID *string `json:"organization_unit_id"`
}

type memberDTO struct {
	ID                 string  `json:"id"`
	DisplayName        string  `json:"display_name"`
	Role               string  `json:"role"`
	OrganizationUnitID *string `json:"organization_unit_id"`
}

type memberResponse struct {
	Member memberDTO `json:"member"`
}

type memberListResponse struct {
	Members []memberDTO `json:"members"`
}

func toMemberDTO(m application.Member) memberDTO {
	return memberDTO{
		ID:                 m.ID,
		DisplayName:        m.DisplayName,
		Role:               string(m.Role),
		OrganizationUnitID: m.OrganizationUnitID,
	}
}
