package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/airbussard/jvc/internal/application"
)

// Headers set by the authentication gate in front of the service.
const (
	HeaderMemberID           = "X-Member-ID"
	HeaderMemberRole         = "X-Member-Role"
	HeaderOrganizationUnitID = "X-Organization-Unit-ID"
)

// TrustedHeaders builds the request principal from the gate headers. Requests
// without a member id are rejected with 401. A missing role means normal.
func TrustedHeaders(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			memberID := strings.TrimSpace(r.Header.Get(HeaderMemberID))
			if memberID == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingPrincipal)
				return
			}

			role := application.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderMemberRole))))
			if role == "" {
				role = application.RoleNormal
			}
			if !role.Valid() {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errInvalidRoleHeader)
				return
			}

			principal := application.Principal{MemberID: memberID, Role: role}
			if unitID := strings.TrimSpace(r.Header.Get(HeaderOrganizationUnitID)); unitID != "" {
				principal.OrganizationUnitID = &unitID
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// RequestLogger attaches a request scoped logger and logs start and completion.
// It reuses the id assigned by chi's RequestID middleware when present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := base.With(
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed",
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
