package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig wires handlers into the router. Nil handlers leave their
// routes unregistered.
type RouterConfig struct {
	Timeline          *TimelineHandler
	Attendances       *AttendanceHandler
	Events            *EventHandler
	Members           *MemberHandler
	OrganizationUnits *OrganizationUnitHandler
	Absences          *AbsenceHandler
	Exemptions        *ExemptionHandler
	Logger            *slog.Logger
	Middleware        []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, RequestLogger(logger), middleware.Recoverer)
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.Group(func(r chi.Router) {
		r.Use(TrustedHeaders(logger))

		if h := cfg.Timeline; h != nil {
			r.Get("/timeline", h.Timeline)
			r.Get("/availability", h.Availability)
		}

		if h := cfg.Events; h != nil {
			r.Get("/events", h.List)
			r.Post("/events", h.Create)
			r.Get("/events.ics", h.ExportICS)
			r.Get("/events/{eventID}", h.Get)
			r.Put("/events/{eventID}", h.Update)
			r.Delete("/events/{eventID}", h.Delete)
		}

		if h := cfg.Attendances; h != nil {
			r.Put("/events/{eventID}/attendance", h.Declare)
			r.Delete("/events/{eventID}/attendance", h.Withdraw)
			r.Put("/events/{eventID}/attendance/exemption", h.SetExemption)
			r.Get("/events/{eventID}/attendances", h.List)
		}

		if h := cfg.Members; h != nil {
			r.Get("/members", h.List)
			r.Post("/members", h.Invite)
			r.Put("/members/{memberID}/role", h.UpdateRole)
			r.Put("/members/{memberID}/unit", h.AssignUnit)
		}

		if h := cfg.OrganizationUnits; h != nil {
			r.Get("/organization-units", h.List)
			r.Post("/organization-units", h.Create)
			r.Put("/organization-units/{unitID}", h.Rename)
			r.Delete("/organization-units/{unitID}", h.Delete)
		}

		if h := cfg.Absences; h != nil {
			r.Get("/vacations", h.ListVacations)
			r.Post("/vacations", h.CreateVacation)
			r.Delete("/vacations/{id}", h.DeleteVacation)
			r.Get("/unavailable-days", h.ListUnavailableDays)
			r.Post("/unavailable-days", h.CreateUnavailableDay)
			r.Delete("/unavailable-days/{id}", h.DeleteUnavailableDay)
		}

		if h := cfg.Exemptions; h != nil {
			r.Get("/exemptions", h.List)
			r.Get("/exemptions/report", h.Report)
			r.Get("/exemptions/report.csv", h.ReportCSV)
		}
	})

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(LoggerFromContext(r.Context())).writeJSON(r.Context(), w, http.StatusMethodNotAllowed,
		errorResponse{Message: "Methode nicht erlaubt."})
}
