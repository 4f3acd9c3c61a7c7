package service

import (
	"encoding/csv"
	"io"
	"strings"

	"customer-web/internal/models"
)

// CsvWriter encodes records through a schema. Columns are emitted in
// schema order, fixed columns first and one column per dynamic property
// after them, so output files round-trip through CsvReader.
type CsvWriter[T any] struct {
	cw     *csv.Writer
	schema *Schema[T]

	wroteHeader bool
	rows        int
}

func NewCsvWriter[T any](w io.Writer, schema *Schema[T], delimiter rune) *CsvWriter[T] {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter
	return &CsvWriter[T]{cw: cw, schema: schema}
}

func (w *CsvWriter[T]) WriteHeader() error {
	w.wroteHeader = true
	return w.cw.Write(w.schema.ColumnNames())
}

// Write emits one record, writing the header first if needed.
func (w *CsvWriter[T]) Write(r T) error {
	if !w.wroteHeader {
		if err := w.WriteHeader(); err != nil {
			return err
		}
	}
	record := make([]string, 0, len(w.schema.Columns)+len(w.schema.Dynamic))
	for _, c := range w.schema.Columns {
		record = append(record, c.Get(r))
	}
	values := w.schema.DynamicValues(r)
	for _, p := range w.schema.Dynamic {
		record = append(record, dynamicCell(&p, values))
	}
	w.rows++
	return w.cw.Write(record)
}

// Rows returns the number of data records written so far.
func (w *CsvWriter[T]) Rows() int { return w.rows }

func (w *CsvWriter[T]) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// dynamicCell renders a property value as comma-joined text. Dictionary
// item ids are deduplicated since several values may resolve to one item.
func dynamicCell(prop *models.DynamicProperty, values []models.DynamicPropertyValue) string {
	for _, v := range values {
		if !strings.EqualFold(v.PropertyName, prop.Name) {
			continue
		}
		vals := v.Values
		if prop.IsDictionary {
			vals = dedupe(vals)
		}
		return strings.Join(vals, ",")
	}
	return ""
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, v)
		}
	}
	return out
}
