package http

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/exemption"
)

type exemptionService interface {
	ListExemptions(ctx context.Context, params application.ReportParams) ([]application.ExemptionEntry, error)
	BuildReport(ctx context.Context, params application.ReportParams) (application.ExemptionReport, error)
}

// ExemptionHandler serves the exemption list and the report in JSON and CSV.
type ExemptionHandler struct {
	service   exemptionService
	responder responder
	logger    *slog.Logger
}

func NewExemptionHandler(service exemptionService, logger *slog.Logger) *ExemptionHandler {
	base := defaultLogger(logger)
	return &ExemptionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ExemptionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ExemptionHandler", operation, attrs...)
}

func reportParams(r *http.Request) application.ReportParams {
	principal, _ := PrincipalFromContext(r.Context())
	return application.ReportParams{
		Principal: principal,
		Unit:      queryString(r, "unit"),
		Month:     queryString(r, "month"),
	}
}

// List handles GET /exemptions?unit&month.
func (h *ExemptionHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	entries, err := h.service.ListExemptions(r.Context(), reportParams(r))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := exemptionListResponse{Exemptions: make([]exemptionDTO, 0, len(entries))}
	for _, e := range entries {
		resp.Exemptions = append(resp.Exemptions, toExemptionDTO(e))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Report handles GET /exemptions/report. The response carries the document
// fingerprint as ETag and honours If-None-Match.
func (h *ExemptionHandler) Report(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.buildReport(w, r, "Report")
	if !ok {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, doc)
}

// ReportCSV handles GET /exemptions/report.csv.
func (h *ExemptionHandler) ReportCSV(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.buildReport(w, r, "ReportCSV")
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := exemption.WriteCSV(&buf, doc); err != nil {
		h.log(r.Context(), "ReportCSV").ErrorContext(r.Context(), "failed to render csv", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.CSVFilename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// buildReport writes the error or 304 response itself and reports whether
// the caller should render doc.
func (h *ExemptionHandler) buildReport(w http.ResponseWriter, r *http.Request, operation string) (application.ExemptionReport, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.ExemptionReport{}, false
	}

	params := reportParams(r)
	doc, err := h.service.BuildReport(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.ExemptionReport{}, false
	}

	etag := `"` + doc.Fingerprint() + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		h.log(r.Context(), operation, "unit", params.Unit, "month", params.Month).DebugContext(r.Context(), "report not modified")
		w.WriteHeader(http.StatusNotModified)
		return application.ExemptionReport{}, false
	}
	return doc, true
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

type exemptionDTO struct {
	AttendanceID string    `json:"attendance_id"`
	EventID      string    `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AllDay       bool      `json:"all_day"`
	MemberID     string    `json:"member_id"`
	Name         string    `json:"name"`
	UnitID       *string   `json:"organization_unit_id"`
	UnitName     string    `json:"organization_unit_name"`
	DateLabel    string    `json:"date_label"`
}

type exemptionListResponse struct {
	Exemptions []exemptionDTO `json:"exemptions"`
}

func toExemptionDTO(e application.ExemptionEntry) exemptionDTO {
	return exemptionDTO{
		AttendanceID: e.AttendanceID,
		EventID:      e.EventID,
		EventTitle:   e.EventTitle,
		Start:        e.Start,
		End:          e.End,
		AllDay:       e.AllDay,
		MemberID:     e.MemberID,
		Name:         e.Name,
		UnitID:       e.UnitID,
		UnitName:     e.UnitName,
		DateLabel:    e.DateLabel,
	}
}
