// Package http exposes the attendance and exemption services over JSON.
//
// Every route except /healthz requires the X-Member-ID header, and optionally
// X-Member-Role and X-Organization-Unit-ID, set by the authentication gate in
// front of the service. Routes:
//   - GET /timeline?from&to&only_my_events&show_absences&absence_scope,
//     GET /availability?from&to
//   - GET|POST /events, GET|PUT|DELETE /events/{eventID}, GET /events.ics?from&to
//   - PUT|DELETE /events/{eventID}/attendance, PUT /events/{eventID}/attendance/exemption,
//     GET /events/{eventID}/attendances
//   - GET|POST /members, PUT /members/{memberID}/role, PUT /members/{memberID}/unit
//   - GET|POST /organization-units, PUT|DELETE /organization-units/{unitID}
//   - GET|POST /vacations, DELETE /vacations/{id}, same for /unavailable-days
//   - GET /exemptions?unit&month, GET /exemptions/report (ETag),
//     GET /exemptions/report.csv
//
// Error bodies are {"error_code","message","errors"} with German messages.
// Request and response DTOs live next to their handlers.
package http
