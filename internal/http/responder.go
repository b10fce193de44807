package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/airbussard/jvc/internal/application"
)

var (
	errBadRequestBody    = errors.New("Ungültiges Anfrageformat.")
	errMissingPrincipal  = errors.New("Anmeldung erforderlich.")
	errInvalidRoleHeader = errors.New("Unbekannte Rolle im Header X-Member-Role.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr *application.ValidationError
		sErr *application.InvalidStateError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:    localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   notFoundMessage(err),
		})
	case errors.As(err, &sErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_STATE",
			Message:   invalidStateMessage(sErr),
			Errors:    map[string]string{sErr.Field: translateValidationMessage(sErr.Reason)},
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "Der Eintrag existiert bereits.",
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Die Anfrage ist fehlerhaft."
	case http.StatusUnauthorized:
		return "Anmeldung erforderlich."
	case http.StatusForbidden:
		return "Für diese Aktion fehlt die Berechtigung."
	case http.StatusNotFound:
		return "Der angeforderte Eintrag wurde nicht gefunden."
	case http.StatusConflict:
		return "Die Aktion ist im aktuellen Zustand nicht möglich."
	case http.StatusUnprocessableEntity:
		return "Die Eingaben sind ungültig."
	default:
		return "Interner Serverfehler."
	}
}

var entityNames = map[string]string{
	"event":             "Termin",
	"member":            "Mitglied",
	"attendance":        "Teilnahme",
	"organization unit": "Organisation",
	"vacation":          "Urlaub",
	"unavailable day":   "F-Tag",
	"event or member":   "Termin oder Mitglied",
}

func notFoundMessage(err error) string {
	var nfErr *application.NotFoundError
	if errors.As(err, &nfErr) {
		if name, ok := entityNames[nfErr.Entity]; ok {
			return name + " wurde nicht gefunden."
		}
	}
	return localizedStatusMessage(http.StatusNotFound)
}

func invalidStateMessage(err *application.InvalidStateError) string {
	switch err.Field {
	case "attendance":
		return "Für diesen Termin liegt keine Teilnahme vor."
	case "status":
		return "Bei Abwesenheit ist keine Freistellung möglich."
	case "role":
		return "Die eigene Rolle kann nicht geändert werden."
	}
	return localizedStatusMessage(http.StatusConflict)
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var validationMessages = map[string]string{
	"event is required":  "Termin ist erforderlich.",
	"member is required": "Mitglied ist erforderlich.",
	"title is required":  "Titel ist erforderlich.",
	"start is required":  "Beginn ist erforderlich.",
	"end is required":    "Ende ist erforderlich.",
	"name is required":   "Name ist erforderlich.",
	"date is required":   "Datum ist erforderlich.",

	"status must be attending_onsite, attending_hybrid or absent": "Status muss attending_onsite, attending_hybrid oder absent sein.",
	"role must be normal, moderator or admin":                     "Rolle muss normal, moderator oder admin sein.",
	"absence scope must be all, mine or a member id":              "Abwesenheitsfilter muss all, mine oder eine Mitglieds-ID sein.",
	"month must be formatted YYYY-MM":                             "Monat muss im Format JJJJ-MM angegeben werden.",
	"color must be formatted #rrggbb":                             "Farbe muss im Format #rrggbb angegeben werden.",

	"end must not be before start":              "Ende darf nicht vor dem Beginn liegen.",
	"start date is required":                    "Startdatum ist erforderlich.",
	"end date is required":                      "Enddatum ist erforderlich.",
	"end date must not be before start date":    "Enddatum darf nicht vor dem Startdatum liegen.",
	"end of range must be after its start":      "Das Ende des Zeitraums muss nach dem Beginn liegen.",
	"end of range must not be before its start": "Das Ende des Zeitraums darf nicht vor dem Beginn liegen.",
	"organization unit is required":             "Organisation ist erforderlich.",
	"organization unit does not exist":          "Die Organisation existiert nicht.",

	"exemption cannot be set while absent":        "Bei Abwesenheit ist keine Freistellung möglich.",
	"no attendance declared for this event":       "Für diesen Termin liegt keine Teilnahme vor.",
	"administrators cannot change their own role": "Die eigene Rolle kann nicht geändert werden.",
}

func translateValidationMessage(message string) string {
	if translated, ok := validationMessages[message]; ok {
		return translated
	}

	var limit int
	switch {
	case scanLimit(message, "title must be at most %d characters", &limit):
		return fmt.Sprintf("Titel darf höchstens %d Zeichen lang sein.", limit)
	case scanLimit(message, "name must be at most %d characters", &limit):
		return fmt.Sprintf("Name darf höchstens %d Zeichen lang sein.", limit)
	case scanLimit(message, "name must have at least %d characters", &limit):
		return fmt.Sprintf("Name muss mindestens %d Zeichen lang sein.", limit)
	}
	return message
}

func scanLimit(message, format string, limit *int) bool {
	_, err := fmt.Sscanf(message, format, limit)
	return err == nil
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
