package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

// paramError reports a malformed query or body parameter.
type paramError struct {
	name string
}

func (e paramError) Error() string {
	return fmt.Sprintf("Ungültiger Parameter: %s", e.name)
}

// queryTime reads an RFC 3339 timestamp or a YYYY-MM-DD date, the latter
// taken as midnight in loc. A missing parameter yields the zero time.
func queryTime(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, paramError{name: name}
	}
	return t, nil
}

func queryTimePtr(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	t, err := queryTime(r, name, loc)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, paramError{name: name}
	}
	return b, nil
}

func queryString(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

func pathParam(r *http.Request, name string) string {
	return strings.TrimSpace(chi.URLParam(r, name))
}

// parseDate reads a YYYY-MM-DD body value as midnight UTC.
func parseDate(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, paramError{name: name}
	}
	return t, nil
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errBadRequestBody
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadRequestBody
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}
