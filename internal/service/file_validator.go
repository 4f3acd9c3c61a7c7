package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"customer-web/internal/config"
	"customer-web/internal/models"
)

// Input-level error codes surfaced before a run is allowed to start.
const (
	FileErrorNotFound         = "file-not-found"
	FileErrorExceedsMaxSize   = "exceeding-file-max-size"
	FileErrorNoData           = "no-data"
	FileErrorWrongDelimiter   = "wrong-delimiter"
	FileErrorMissingColumns   = "missing-required-columns"
	FileErrorLineLimitReached = "exceeding-line-limits"
)

// ErrUnknownMemberType is returned for member-type selectors outside
// Contact and Organization. Unlike file errors it is a contract
// violation and fails fast.
var ErrUnknownMemberType = errors.New("unknown member type")

var candidateDelimiters = []rune{';', ',', '\t', '|'}

// FileValidator runs the pre-flight checks on an uploaded file:
// existence, size, delimiter, required columns and line count. It
// returns a list of coded errors; an empty list clears the file for
// import.
type FileValidator struct {
	cfg *config.Config
}

func NewFileValidator(cfg *config.Config) *FileValidator {
	return &FileValidator{cfg: cfg}
}

func (v *FileValidator) Validate(path, memberType string) ([]models.FileError, error) {
	requiredColumns, err := requiredColumnsFor(memberType)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.FileError{{Code: FileErrorNotFound, Params: map[string]string{"path": path}}}, nil
		}
		return nil, fmt.Errorf("stat import file: %w", err)
	}
	if info.Size() > v.cfg.UploadMaxSizeBytes() {
		return []models.FileError{{Code: FileErrorExceedsMaxSize, Params: map[string]string{
			"size":    strconv.FormatInt(info.Size(), 10),
			"maxSize": strconv.FormatInt(v.cfg.UploadMaxSizeBytes(), 10),
		}}}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	lr := newLineReader(f)
	header, err := lr.ReadLogical()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.FileError{{Code: FileErrorNoData}}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.TrimSpace(header) == "" {
		return []models.FileError{{Code: FileErrorNoData}}, nil
	}

	delimiter := v.cfg.DelimiterRune()
	if errs := checkDelimiter(header, delimiter); errs != nil {
		return errs, nil
	}
	if errs := checkRequiredColumns(header, delimiter, requiredColumns); errs != nil {
		return errs, nil
	}

	lines := 0
	for {
		line, err := lr.ReadLogical()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("scan import file: %w", err)
		}
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	switch {
	case lines == 0:
		return []models.FileError{{Code: FileErrorNoData}}, nil
	case lines > v.cfg.ImportLimitOfLines:
		return []models.FileError{{Code: FileErrorLineLimitReached, Params: map[string]string{
			"lines":    strconv.Itoa(lines),
			"maxLines": strconv.Itoa(v.cfg.ImportLimitOfLines),
		}}}, nil
	}
	return nil, nil
}

func requiredColumnsFor(memberType string) ([]string, error) {
	switch memberType {
	case models.MemberTypeContact:
		return ContactSchema(nil).RequiredNames(), nil
	case models.MemberTypeOrganization:
		return OrganizationSchema(nil).RequiredNames(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMemberType, memberType)
	}
}

// checkDelimiter flags a header that does not split on the configured
// delimiter but clearly splits on another common one.
func checkDelimiter(header string, delimiter rune) []models.FileError {
	fields, err := parseRecord(header, delimiter)
	if err == nil && len(fields) > 1 {
		return nil
	}
	for _, candidate := range candidateDelimiters {
		if candidate == delimiter {
			continue
		}
		if fields, err := parseRecord(header, candidate); err == nil && len(fields) > 1 {
			return []models.FileError{{Code: FileErrorWrongDelimiter, Params: map[string]string{
				"expected": string(delimiter),
				"found":    string(candidate),
			}}}
		}
	}
	return []models.FileError{{Code: FileErrorWrongDelimiter, Params: map[string]string{
		"expected": string(delimiter),
	}}}
}

func checkRequiredColumns(header string, delimiter rune, required []string) []models.FileError {
	fields, err := parseRecord(header, delimiter)
	if err != nil {
		return []models.FileError{{Code: FileErrorMissingColumns, Params: map[string]string{
			"columns": strings.Join(required, ", "),
		}}}
	}
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[strings.ToLower(strings.TrimSpace(f))] = true
	}
	var missing []string
	for _, name := range required {
		if !present[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return []models.FileError{{Code: FileErrorMissingColumns, Params: map[string]string{
			"columns": strings.Join(missing, ", "),
		}}}
	}
	return nil
}
