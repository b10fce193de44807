package exemption

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Row is one line of the report.
type Row struct {
	Name       string `json:"name"`
	EventTitle string `json:"event_title"`
	DateLabel  string `json:"date_label"`
}

// Document is the report model handed to renderers. Renderers must keep the
// row order.
type Document struct {
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle,omitempty"`
	UnitName       string    `json:"unit_name"`
	Month          string    `json:"month,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
	GeneratedLabel string    `json:"generated_label"`
	Rows           []Row     `json:"rows"`
	TotalCount     int       `json:"total_count"`
	TotalLabel     string    `json:"total_label"`
	Filename       string    `json:"filename"`
}

// NewDocument assembles the report for entries, which must already be sorted.
func NewDocument(entries []Entry, unitName string, month *Month, generatedAt time.Time, loc *time.Location) Document {
	loc = orUTC(loc)

	doc := Document{
		Title:          "Freistellungen - " + unitName,
		UnitName:       unitName,
		GeneratedAt:    generatedAt,
		GeneratedLabel: "Erstellt: " + generatedAt.In(loc).Format("02.01.2006, 15:04"),
		Rows:           make([]Row, 0, len(entries)),
		TotalCount:     len(entries),
		TotalLabel:     TotalLabel(len(entries)),
	}

	suffix := generatedAt.UTC().Format("2006-01-02")
	if month != nil {
		doc.Title += " - " + month.Label()
		doc.Subtitle = month.Label()
		doc.Month = month.String()
		suffix = month.String()
	}
	doc.Filename = fmt.Sprintf("Freistellungen_%s_%s.pdf", sanitizeFilename(unitName), suffix)

	for _, e := range entries {
		doc.Rows = append(doc.Rows, Row{Name: e.Name, EventTitle: e.EventTitle, DateLabel: e.DateLabel})
	}
	return doc
}

// IsEmpty reports whether the report has no rows.
func (d Document) IsEmpty() bool {
	return d.TotalCount == 0
}

// Fingerprint returns a BLAKE2b-256 digest over the title, subtitle, rows and
// total. The generation time is excluded so equal reports share a fingerprint.
func (d Document) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	write := func(s string) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(s)))
		h.Write(length[:])
		h.Write([]byte(s))
	}

	write(d.Title)
	write(d.Subtitle)
	write(d.UnitName)
	for _, row := range d.Rows {
		write(row.Name)
		write(row.EventTitle)
		write(row.DateLabel)
	}
	write(fmt.Sprint(d.TotalCount))
	return hex.EncodeToString(h.Sum(nil))
}

// TotalLabel renders the footer count with singular or plural wording.
func TotalLabel(n int) string {
	if n == 1 {
		return "Gesamt: 1 Freistellung"
	}
	return fmt.Sprintf("Gesamt: %d Freistellungen", n)
}

// sanitizeFilename replaces every character outside [A-Za-z0-9] with '_'.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
