package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ImportSource is a paged reader over an uploaded file. Each Fetch
// consumes up to PageSize logical rows, splitting them into well-formed
// records and codec casualties. TotalCount and HeaderLine reopen the
// file with a fresh reader so they never disturb paging state.
type ImportSource[T any] struct {
	path      string
	schema    *Schema[T]
	delimiter rune
	pageSize  int

	file   *os.File
	reader *CsvReader[T]

	pageNumber int
	page       []*Row[T]
	badRows    []*Row[T]

	total      int
	totalKnown bool
	headerLine string
}

func NewImportSource[T any](path string, schema *Schema[T], delimiter rune, pageSize int) *ImportSource[T] {
	return &ImportSource[T]{path: path, schema: schema, delimiter: delimiter, pageSize: pageSize}
}

func (s *ImportSource[T]) ensureReader() error {
	if s.reader != nil {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	r, err := NewCsvReader(f, s.schema, s.delimiter)
	if err != nil {
		f.Close()
		return err
	}
	s.file = f
	s.reader = r
	return nil
}

// Fetch advances to the next page. It returns false once the stream is
// exhausted. After a true return, Page holds the well-formed rows and
// BadRows the rows that failed decoding.
func (s *ImportSource[T]) Fetch() (bool, error) {
	if err := s.ensureReader(); err != nil {
		return false, err
	}
	s.page = s.page[:0]
	s.badRows = s.badRows[:0]

	read := 0
	for read < s.pageSize {
		row, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return false, fmt.Errorf("read row: %w", err)
		}
		read++
		if row.Diag != nil {
			s.badRows = append(s.badRows, row)
		} else {
			s.page = append(s.page, row)
		}
	}
	if read == 0 {
		return false, nil
	}
	s.pageNumber++
	return true, nil
}

// Page returns the well-formed rows of the current page.
func (s *ImportSource[T]) Page() []*Row[T] { return s.page }

// BadRows returns the current page's rows that failed decoding.
func (s *ImportSource[T]) BadRows() []*Row[T] { return s.badRows }

func (s *ImportSource[T]) CurrentPageNumber() int { return s.pageNumber }

func (s *ImportSource[T]) PageSize() int { return s.pageSize }

// TotalCount counts the data rows in the file. The first call scans the
// whole file with a throwaway reader; the result is memoized.
func (s *ImportSource[T]) TotalCount() (int, error) {
	if s.totalKnown {
		return s.total, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	lr := newLineReader(f)
	if _, err := lr.ReadLogical(); err != nil {
		if errors.Is(err, io.EOF) {
			s.total, s.totalKnown = 0, true
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for {
		line, err := lr.ReadLogical()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	s.total, s.totalKnown = count, true
	return count, nil
}

// HeaderLine returns the raw header record of the file.
func (s *ImportSource[T]) HeaderLine() (string, error) {
	if s.headerLine != "" {
		return s.headerLine, nil
	}
	if s.reader != nil {
		s.headerLine = s.reader.HeaderLine()
		return s.headerLine, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	line, err := newLineReader(f).ReadLogical()
	if err != nil {
		return "", fmt.Errorf("read header: %w", err)
	}
	s.headerLine = line
	return line, nil
}

func (s *ImportSource[T]) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}
