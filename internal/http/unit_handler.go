package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/airbussard/jvc/internal/application"
)

type organizationUnitService interface {
	Create(ctx context.Context, params application.CreateOrganizationUnitParams) (application.OrganizationUnit, error)
	Rename(ctx context.Context, params application.RenameOrganizationUnitParams) (application.OrganizationUnit, error)
	List(ctx context.Context, principal application.Principal) ([]application.OrganizationUnit, error)
	Delete(ctx context.Context, principal application.Principal, unitID string) (int, error)
}

// OrganizationUnitHandler exposes organization unit administration.
type OrganizationUnitHandler struct {
	service   organizationUnitService
	responder responder
	logger    *slog.Logger
}

func NewOrganizationUnitHandler(service organizationUnitService, logger *slog.Logger) *OrganizationUnitHandler {
	base := defaultLogger(logger)
	return &OrganizationUnitHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *OrganizationUnitHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "OrganizationUnitHandler", operation, attrs...)
}

func (h *OrganizationUnitHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	units, err := h.service.List(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := unitListResponse{OrganizationUnits: make([]unitDTO, 0, len(units))}
	for _, u := range units {
		resp.OrganizationUnits = append(resp.OrganizationUnits, unitDTO{ID: u.ID, Name: u.Name})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *OrganizationUnitHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req unitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	unit, err := h.service.Create(r.Context(), application.CreateOrganizationUnitParams{Principal: principal, Name: req.Name})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, unitResponse{OrganizationUnit: unitDTO{ID: unit.ID, Name: unit.Name}})
}

func (h *OrganizationUnitHandler) Rename(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req unitRequest
	if err := decodeJSON(r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	unit, err := h.service.Rename(r.Context(), application.RenameOrganizationUnitParams{
		Principal: principal,
		UnitID:    pathParam(r, "unitID"),
		Name:      req.Name,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, unitResponse{OrganizationUnit: unitDTO{ID: unit.ID, Name: unit.Name}})
}

// Delete handles DELETE /organization-units/{unitID} and reports how many
// members were detached.
func (h *OrganizationUnitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	unitID := pathParam(r, "unitID")

	detached, err := h.service.Delete(r.Context(), principal, unitID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "unit_id", unitID).InfoContext(r.Context(), "organization unit deleted", "detached_members", detached)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, unitDeleteResponse{DetachedMembers: detached})
}

type unitRequest struct {
	Name string `json:"name"`
}

type unitDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type unitResponse struct {
	OrganizationUnit unitDTO `json:"organization_unit"`
}

type unitListResponse struct {
	OrganizationUnits []unitDTO `json:"organization_units"`
}

type unitDeleteResponse struct {
	DetachedMembers int `json:"detached_members"`
}
