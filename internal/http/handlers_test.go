package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/airbussard/jvc/internal/application"
	"github.com/airbussard/jvc/internal/exemption"
	"github.com/airbussard/jvc/internal/timeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type attendanceServiceStub struct {
	declared  application.DeclareAttendanceParams
	exemption application.SetExemptionParams
	withdrawn application.WithdrawAttendanceParams
	roster    []application.RosterEntry
	err       error
}

func (s *attendanceServiceStub) Declare(ctx context.Context, params application.DeclareAttendanceParams) (application.Attendance, error) {
	s.declared = params
	if s.err != nil {
		return application.Attendance{}, s.err
	}
	return application.Attendance{ID: "att-1", EventID: params.EventID, MemberID: params.MemberID, Status: params.Status}, nil
}

func (s *attendanceServiceStub) SetExemption(ctx context.Context, params application.SetExemptionParams) (application.Attendance, error) {
	s.exemption = params
	if s.err != nil {
		return application.Attendance{}, s.err
	}
	return application.Attendance{ID: "att-1", EventID: params.EventID, MemberID: params.MemberID, Status: application.AttendanceOnsite, RequiresExemption: params.RequiresExemption}, nil
}

func (s *attendanceServiceStub) Withdraw(ctx context.Context, params application.WithdrawAttendanceParams) error {
	s.withdrawn = params
	return s.err
}

func (s *attendanceServiceStub) ListForEvent(ctx context.Context, principal application.Principal, eventID string) ([]application.RosterEntry, error) {
	return s.roster, s.err
}

type eventServiceStub struct {
	events     []application.Event
	listParams application.ListEventsParams
	err        error
}

func (s *eventServiceStub) Create(ctx context.Context, params application.CreateEventParams) (application.Event, error) {
	if s.err != nil {
		return application.Event{}, s.err
	}
	return application.Event{ID: "evt-new", Title: params.Input.Title, Start: params.Input.Start, End: params.Input.End}, nil
}

func (s *eventServiceStub) Update(ctx context.Context, params application.UpdateEventParams) (application.Event, error) {
	return application.Event{ID: params.EventID, Title: params.Input.Title}, s.err
}

func (s *eventServiceStub) Delete(ctx context.Context, principal application.Principal, eventID string) error {
	return s.err
}

func (s *eventServiceStub) Get(ctx context.Context, principal application.Principal, eventID string) (application.Event, error) {
	if s.err != nil {
		return application.Event{}, s.err
	}
	return application.Event{ID: eventID}, nil
}

func (s *eventServiceStub) List(ctx context.Context, params application.ListEventsParams) ([]application.Event, error) {
	s.listParams = params
	return s.events, s.err
}

type unitServiceStub struct {
	detached int
	err      error
}

func (s *unitServiceStub) Create(ctx context.Context, params application.CreateOrganizationUnitParams) (application.OrganizationUnit, error) {
	return application.OrganizationUnit{ID: "unit-1", Name: params.Name}, s.err
}

func (s *unitServiceStub) Rename(ctx context.Context, params application.RenameOrganizationUnitParams) (application.OrganizationUnit, error) {
	return application.OrganizationUnit{ID: params.UnitID, Name: params.Name}, s.err
}

func (s *unitServiceStub) List(ctx context.Context, principal application.Principal) ([]application.OrganizationUnit, error) {
	return nil, s.err
}

func (s *unitServiceStub) Delete(ctx context.Context, principal application.Principal, unitID string) (int, error) {
	return s.detached, s.err
}

type exemptionServiceStub struct {
	entries []application.ExemptionEntry
	doc     application.ExemptionReport
	params  application.ReportParams
	err     error
}

func (s *exemptionServiceStub) ListExemptions(ctx context.Context, params application.ReportParams) ([]application.ExemptionEntry, error) {
	s.params = params
	return s.entries, s.err
}

func (s *exemptionServiceStub) BuildReport(ctx context.Context, params application.ReportParams) (application.ExemptionReport, error) {
	s.params = params
	return s.doc, s.err
}

type timelineServiceStub struct {
	params application.TimelineParams
	items  []timeline.Item
}

func (s *timelineServiceStub) Timeline(ctx context.Context, params application.TimelineParams) ([]timeline.Item, error) {
	s.params = params
	return s.items, nil
}

func (s *timelineServiceStub) Availability(ctx context.Context, params application.AvailabilityParams) ([]timeline.MemberAvailability, error) {
	return []timeline.MemberAvailability{{MemberID: "m-1", Name: "Anna", Vacations: 1, Total: 1}}, nil
}

func newRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(HeaderMemberID, "m-1")
	req.Header.Set(HeaderMemberRole, "normal")
	return req
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestTrustedHeaders(t *testing.T) {
	t.Parallel()

	svc := &attendanceServiceStub{}
	router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

	t.Run("rejects requests without member id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/events/evt-1/attendances", nil)
		rec := serve(router, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown roles", func(t *testing.T) {
		req := newRequest(http.MethodGet, "/events/evt-1/attendances", "")
		req.Header.Set(HeaderMemberRole, "superuser")
		rec := serve(router, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("health check needs no principal", func(t *testing.T) {
		rec := serve(router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
	})
}

func TestAttendanceHandlers(t *testing.T) {
	t.Parallel()

	t.Run("declare uses path event and defaults to own member", func(t *testing.T) {
		svc := &attendanceServiceStub{}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		req := newRequest(http.MethodPut, "/events/evt-1/attendance", `{"status":"attending_hybrid"}`)
		req.Header.Set(HeaderOrganizationUnitID, "unit-9")
		rec := serve(router, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if svc.declared.EventID != "evt-1" || svc.declared.MemberID != "m-1" || svc.declared.Status != application.AttendanceHybrid {
			t.Fatalf("unexpected params %+v", svc.declared)
		}
		if unit := svc.declared.Principal.OrganizationUnitID; unit == nil || *unit != "unit-9" {
			t.Fatalf("expected principal unit from header, got %v", unit)
		}
	})

	t.Run("exemption on absent attendance is a conflict", func(t *testing.T) {
		svc := &attendanceServiceStub{err: &application.InvalidStateError{Field: "status", Reason: "exemption cannot be set while absent"}}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		rec := serve(router, newRequest(http.MethodPut, "/events/evt-1/attendance/exemption", `{"requires_exemption":true}`))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		body := decodeError(t, rec)
		if body.ErrorCode != "INVALID_STATE" || body.Message != "Bei Abwesenheit ist keine Freistellung möglich." {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("exemption requires the flag", func(t *testing.T) {
		svc := &attendanceServiceStub{}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		rec := serve(router, newRequest(http.MethodPut, "/events/evt-1/attendance/exemption", `{}`))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("withdraw for another member via query", func(t *testing.T) {
		svc := &attendanceServiceStub{}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		rec := serve(router, newRequest(http.MethodDelete, "/events/evt-1/attendance?member_id=m-2", ""))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if svc.withdrawn.MemberID != "m-2" {
			t.Fatalf("expected member m-2, got %q", svc.withdrawn.MemberID)
		}
	})

	t.Run("validation errors are translated", func(t *testing.T) {
		vErr := &application.ValidationError{FieldErrors: map[string]string{"status": "status must be attending_onsite, attending_hybrid or absent"}}
		svc := &attendanceServiceStub{err: vErr}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		rec := serve(router, newRequest(http.MethodPut, "/events/evt-1/attendance", `{"status":"maybe"}`))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		body := decodeError(t, rec)
		if !strings.HasPrefix(body.Errors["status"], "Status muss") {
			t.Fatalf("expected German status message, got %+v", body.Errors)
		}
	})

	t.Run("missing event maps to 404", func(t *testing.T) {
		svc := &attendanceServiceStub{err: &application.NotFoundError{Entity: "event", ID: "evt-404"}}
		router := NewRouter(RouterConfig{Attendances: NewAttendanceHandler(svc, discardLogger()), Logger: discardLogger()})

		rec := serve(router, newRequest(http.MethodGet, "/events/evt-404/attendances", ""))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if body := decodeError(t, rec); body.Message != "Termin wurde nicht gefunden." {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})
}

func TestTimelineHandler(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	svc := &timelineServiceStub{items: []timeline.Item{{ID: "evt-1", Category: timeline.CategoryEvent, Title: "Plenum"}}}
	router := NewRouter(RouterConfig{Timeline: NewTimelineHandler(svc, berlin, discardLogger()), Logger: discardLogger()})

	rec := serve(router, newRequest(http.MethodGet, "/timeline?from=2024-03-01&to=2024-04-01&show_absences=true&absence_scope=mine", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.params.From.Equal(time.Date(2024, time.March, 1, 0, 0, 0, 0, berlin)) {
		t.Fatalf("expected Berlin midnight, got %v", svc.params.From)
	}
	if !svc.params.Filter.ShowAbsences || svc.params.Filter.OnlyMyEvents || svc.params.Filter.AbsenceScope != "mine" {
		t.Fatalf("unexpected filter %+v", svc.params.Filter)
	}

	var resp timelineResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Category != "event" {
		t.Fatalf("unexpected items %+v", resp.Items)
	}

	bad := serve(router, newRequest(http.MethodGet, "/timeline?from=yesterday", ""))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed date, got %d", bad.Code)
	}
}

func TestEventHandler_ExportICS(t *testing.T) {
	t.Parallel()

	svc := &eventServiceStub{events: []application.Event{
		{ID: "evt-1", Title: "Plenum", Start: time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.March, 12, 11, 0, 0, 0, time.UTC)},
		{ID: "evt-2", Title: "Vorher", Start: time.Date(2024, time.February, 28, 9, 0, 0, 0, time.UTC), End: time.Date(2024, time.March, 2, 9, 0, 0, 0, time.UTC)},
	}}
	handler := NewEventHandler(svc, time.UTC, discardLogger())
	handler.now = func() time.Time { return time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC) }
	router := NewRouter(RouterConfig{Events: handler, Logger: discardLogger()})

	rec := serve(router, newRequest(http.MethodGet, "/events.ics?from=2024-03-01&to=2024-03-31", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "jvc-termine-2024-03-01-2024-03-31.ics") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "Plenum") {
		t.Fatalf("expected calendar with Plenum, got %s", body)
	}
	if strings.Contains(body, "Vorher") {
		t.Fatalf("events starting before the range must be excluded")
	}
	if svc.listParams.To == nil || !svc.listParams.To.Equal(time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected range end at the end of the last day, got %v", svc.listParams.To)
	}
}

func TestEventHandler_CreateAndRoutes(t *testing.T) {
	t.Parallel()

	svc := &eventServiceStub{}
	router := NewRouter(RouterConfig{Events: NewEventHandler(svc, time.UTC, discardLogger()), Logger: discardLogger()})

	rec := serve(router, newRequest(http.MethodPost, "/events", `{"title":"Plenum","start":"2024-03-12T09:00:00Z","end":"2024-03-12T11:00:00Z"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, newRequest(http.MethodPost, "/events", `{`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	svc.err = application.ErrUnauthorized
	rec = serve(router, newRequest(http.MethodDelete, "/events/evt-1", ""))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = serve(router, newRequest(http.MethodPatch, "/events/evt-1", ""))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestOrganizationUnitHandler_Delete(t *testing.T) {
	t.Parallel()

	svc := &unitServiceStub{detached: 3}
	router := NewRouter(RouterConfig{OrganizationUnits: NewOrganizationUnitHandler(svc, discardLogger()), Logger: discardLogger()})

	req := newRequest(http.MethodDelete, "/organization-units/unit-1", "")
	req.Header.Set(HeaderMemberRole, "admin")
	rec := serve(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp unitDeleteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DetachedMembers != 3 {
		t.Fatalf("expected 3 detached members, got %d", resp.DetachedMembers)
	}

	svc.err = application.ErrAlreadyExists
	rec = serve(router, newRequest(http.MethodPost, "/organization-units", `{"name":"Stadtwerke"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestExemptionHandlers(t *testing.T) {
	t.Parallel()

	doc := exemption.NewDocument([]exemption.Entry{{Name: "Anna", EventTitle: "Plenum", DateLabel: "12.03.2024, 09:00 - 12:00"}},
		"Stadtwerke", &exemption.Month{Year: 2024, Month: time.March}, time.Date(2024, time.March, 20, 13, 30, 0, 0, time.UTC), time.UTC)
	svc := &exemptionServiceStub{doc: doc}
	router := NewRouter(RouterConfig{Exemptions: NewExemptionHandler(svc, discardLogger()), Logger: discardLogger()})

	t.Run("report carries etag and honours if-none-match", func(t *testing.T) {
		rec := serve(router, newRequest(http.MethodGet, "/exemptions/report?unit=unit-1&month=2024-03", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if svc.params.Unit != "unit-1" || svc.params.Month != "2024-03" {
			t.Fatalf("unexpected params %+v", svc.params)
		}
		etag := rec.Header().Get("ETag")
		if etag != `"`+doc.Fingerprint()+`"` {
			t.Fatalf("unexpected etag %q", etag)
		}
		var got exemption.Document
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Title != doc.Title || len(got.Rows) != 1 {
			t.Fatalf("unexpected document %+v", got)
		}

		req := newRequest(http.MethodGet, "/exemptions/report?unit=unit-1&month=2024-03", "")
		req.Header.Set("If-None-Match", etag)
		if rec := serve(router, req); rec.Code != http.StatusNotModified {
			t.Fatalf("expected 304, got %d", rec.Code)
		}
	})

	t.Run("csv download", func(t *testing.T) {
		rec := serve(router, newRequest(http.MethodGet, "/exemptions/report.csv?unit=unit-1&month=2024-03", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Freistellungen_Stadtwerke_2024-03.csv") {
			t.Fatalf("unexpected disposition %q", cd)
		}
		if !strings.Contains(rec.Body.String(), "Anna;Plenum;12.03.2024, 09:00 - 12:00") {
			t.Fatalf("unexpected csv %q", rec.Body.String())
		}
	})

	t.Run("forbidden unit", func(t *testing.T) {
		denied := &exemptionServiceStub{err: application.ErrUnauthorized}
		router := NewRouter(RouterConfig{Exemptions: NewExemptionHandler(denied, discardLogger()), Logger: discardLogger()})
		if rec := serve(router, newRequest(http.MethodGet, "/exemptions?unit=unit-2", "")); rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})
}
