package service

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ReportWriter streams human-readable error lines to a side-channel
// report file next to the import source. The file is created lazily on
// the first write and removed on Close when nothing was written, so a
// clean run leaves no artifact behind.
type ReportWriter struct {
	path      string
	delimiter rune
	header    string

	mu    sync.Mutex
	file  *os.File
	lines int
}

// ReportPath derives the report file path from the source path: percent
// encoded spaces are decoded and a _report suffix is inserted before
// the extension.
func ReportPath(sourcePath string) string {
	if decoded, err := url.PathUnescape(sourcePath); err == nil {
		sourcePath = decoded
	}
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + "_report" + ext
}

// NewReportWriter prepares a writer for the given source file. The
// header argument is the source file's raw header line; the report's own
// header prepends an error description column to it.
func NewReportWriter(sourcePath string, delimiter rune, header string) *ReportWriter {
	return &ReportWriter{
		path:      ReportPath(sourcePath),
		delimiter: delimiter,
		header:    header,
	}
}

// Path returns the report file path.
func (w *ReportWriter) Path() string { return w.path }

// Lines returns the number of error lines written so far.
func (w *ReportWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// WriteRow appends one error line: the message, the delimiter and the
// right-trimmed original row text.
func (w *ReportWriter) WriteRow(message, rawRow string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		f, err := os.Create(w.path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		w.file = f
		if _, err := fmt.Fprintf(f, "Error description%c%s\n", w.delimiter, w.header); err != nil {
			return fmt.Errorf("write report header: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w.file, "%s%c%s\n", message, w.delimiter, strings.TrimRight(rawRow, " \t\r\n")); err != nil {
		return fmt.Errorf("write report line: %w", err)
	}
	w.lines++
	return nil
}

// Close finalizes the report. It returns the report path when any error
// line was written; an untouched report is deleted and "" is returned.
func (w *ReportWriter) Close() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return "", nil
	}
	if err := w.file.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}
	w.file = nil
	if w.lines == 0 {
		if err := os.Remove(w.path); err != nil {
			return "", fmt.Errorf("remove empty report: %w", err)
		}
		return "", nil
	}
	return w.path, nil
}
