// Package textsanitize strips markup from user supplied free text.
package textsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Plain removes every HTML element from s and returns the remaining text,
// unescaped and trimmed. Script and style contents are dropped entirely.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// PlainPtr applies Plain to an optional value. Empty results become nil.
func PlainPtr(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := Plain(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
