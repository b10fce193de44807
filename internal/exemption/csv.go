package exemption

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{"Name", "Termin", "Datum"}

// WriteCSV writes the report rows with a UTF-8 BOM and a header row, using
// ';' as separator so spreadsheet tools with German locale split columns.
func WriteCSV(w io.Writer, doc Document) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range doc.Rows {
		if err := cw.Write([]string{row.Name, row.EventTitle, row.DateLabel}); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSVFilename returns the report filename with a .csv extension.
func (d Document) CSVFilename() string {
	return strings.TrimSuffix(d.Filename, ".pdf") + ".csv"
}
