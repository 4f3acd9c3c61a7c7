package service

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"customer-web/internal/models"
)

// Row-level diagnostic codes produced while decoding.
const (
	DiagMissingColumns        = "missing-columns"
	DiagNotClosedQuote        = "not-closed-quote"
	DiagMissingRequiredValues = "missing-required-values"
	DiagInvalidValue          = "invalid-value"
	DiagLostData              = "lost-data"
)

// RowDiagnostic describes why a raw row could not be decoded into a
// well-formed record.
type RowDiagnostic struct {
	Code    string
	Message string
}

// Row is one decoded logical record. Number is 1-based over data rows,
// the header excluded. Raw keeps the original text for error reporting.
// Diag is nil for well-formed rows; for malformed rows Value carries
// whatever fields were recoverable.
type Row[T any] struct {
	Number int
	Raw    string
	Value  T
	Diag   *RowDiagnostic
}

// lineReader assembles logical CSV records from physical lines. A record
// whose accumulated double-quote count is odd continues on the next
// physical line, so quoted cells may contain newlines.
type lineReader struct {
	br *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReader(r)}
}

func (r *lineReader) ReadLogical() (string, error) {
	var sb strings.Builder
	quotes := 0
	for {
		line, err := r.br.ReadString('\n')
		if line != "" {
			sb.WriteString(line)
			quotes += strings.Count(line, `"`)
			if quotes%2 == 0 {
				return strings.TrimRight(sb.String(), "\r\n"), nil
			}
		}
		if err != nil {
			if sb.Len() > 0 {
				return strings.TrimRight(sb.String(), "\r\n"), nil
			}
			return "", err
		}
	}
}

// CsvReader decodes a delimited stream against a schema. The header is
// read on construction; its columns are matched case-insensitively and
// may appear in any order. Header columns matching no schema column and
// no dynamic property are ignored.
type CsvReader[T any] struct {
	lr        *lineReader
	schema    *Schema[T]
	delimiter rune

	header     []string
	headerLine string
	rowNumber  int
}

// NewCsvReader reads the header record and binds it to the schema.
func NewCsvReader[T any](r io.Reader, schema *Schema[T], delimiter rune) (*CsvReader[T], error) {
	cr := &CsvReader[T]{lr: newLineReader(r), schema: schema, delimiter: delimiter}
	line, err := cr.lr.ReadLogical()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	fields, err := parseRecord(line, delimiter)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	cr.header = fields
	cr.headerLine = line
	return cr, nil
}

// HeaderLine returns the raw header record as read from the stream.
func (r *CsvReader[T]) HeaderLine() string { return r.headerLine }

// Header returns the trimmed header column names.
func (r *CsvReader[T]) Header() []string { return r.header }

// Read returns the next logical record. Rows that are empty after
// trimming are skipped and do not consume a row number. io.EOF signals
// the end of the stream.
func (r *CsvReader[T]) Read() (*Row[T], error) {
	for {
		line, err := r.lr.ReadLogical()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		r.rowNumber++
		return r.decode(line), nil
	}
}

// decode applies the diagnostics in precedence order: shape mismatches
// first, then structural quote errors, then missing required values,
// then per-field parse failures.
func (r *CsvReader[T]) decode(line string) *Row[T] {
	row := &Row[T]{Number: r.rowNumber, Raw: line, Value: r.schema.New()}

	fields, err := parseRecord(line, r.delimiter)
	if err != nil {
		r.bind(row, fields)
		if errors.Is(err, csv.ErrBareQuote) {
			row.Diag = &RowDiagnostic{Code: DiagLostData, Message: "This row had data after an unescaped quote that was lost"}
		} else {
			row.Diag = &RowDiagnostic{Code: DiagNotClosedQuote, Message: "This row has invalid data. The data after an unescaped quote was not closed"}
		}
		return row
	}

	switch {
	case len(fields) < len(r.header):
		missing := r.header[len(fields):]
		r.bind(row, fields)
		row.Diag = &RowDiagnostic{
			Code:    DiagMissingColumns,
			Message: fmt.Sprintf("The required columns were missing in this row: %s", strings.Join(missing, ", ")),
		}
		return row
	case len(fields) > len(r.header):
		r.bind(row, fields[:len(r.header)])
		row.Diag = &RowDiagnostic{Code: DiagNotClosedQuote, Message: "This row has invalid data. A quote was probably not closed"}
		return row
	}

	if missing := r.missingRequired(fields); len(missing) > 0 {
		r.bind(row, fields)
		row.Diag = &RowDiagnostic{
			Code:    DiagMissingRequiredValues,
			Message: fmt.Sprintf("The required values were missing in this row: %s", strings.Join(missing, ", ")),
		}
		return row
	}

	if badColumn := r.bind(row, fields); badColumn != "" {
		row.Diag = &RowDiagnostic{
			Code:    DiagInvalidValue,
			Message: fmt.Sprintf("This row has an invalid value in the column %s", badColumn),
		}
	}
	return row
}

func (r *CsvReader[T]) missingRequired(fields []string) []string {
	var missing []string
	for i, name := range r.header {
		col := r.schema.column(name)
		if col == nil || !col.Required {
			continue
		}
		if strings.TrimSpace(fields[i]) == "" {
			missing = append(missing, col.Name)
		}
	}
	return missing
}

// bind assigns cell values to the record by header position. It returns
// the name of the first column whose value failed to parse, or "".
func (r *CsvReader[T]) bind(row *Row[T], fields []string) string {
	badColumn := ""
	for i, value := range fields {
		if i >= len(r.header) {
			break
		}
		name := r.header[i]
		if col := r.schema.column(name); col != nil {
			if err := col.Set(row.Value, value); err != nil && badColumn == "" {
				badColumn = col.Name
			}
			continue
		}
		if prop := r.schema.dynamicProperty(name); prop != nil && strings.TrimSpace(value) != "" {
			r.schema.AddDynamic(row.Value, propertyValue(prop, value))
		}
	}
	return badColumn
}

// propertyValue splits a raw cell into a dynamic property value. Array
// properties carry comma-separated values in a single cell.
func propertyValue(prop *models.DynamicProperty, raw string) models.DynamicPropertyValue {
	var values []string
	if prop.IsArray {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	} else {
		values = []string{strings.TrimSpace(raw)}
	}
	return models.DynamicPropertyValue{
		PropertyName: prop.Name,
		ValueType:    prop.ValueType,
		IsArray:      prop.IsArray,
		IsDictionary: prop.IsDictionary,
		Values:       values,
	}
}

// parseRecord parses a single logical record with the standard CSV
// grammar. FieldsPerRecord is disabled so shape checks stay with the
// caller; LazyQuotes is off so malformed quoting surfaces as errors.
func parseRecord(line string, delimiter rune) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.Comma = delimiter
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	return fields, err
}
