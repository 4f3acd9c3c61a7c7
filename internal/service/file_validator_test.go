package service

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

func validateFile(t *testing.T, content, memberType string) []models.FileError {
	t.Helper()
	v := NewFileValidator(testConfig())
	errs, err := v.Validate(writeImportFile(t, content), memberType)
	require.NoError(t, err)
	return errs
}

func TestFileValidatorAcceptsWellFormedFile(t *testing.T) {
	errs := validateFile(t,
		"Contact First Name;Contact Last Name;Contact Full Name\n"+
			"John;Doe;John Doe\n",
		models.MemberTypeContact)
	assert.Empty(t, errs)
}

func TestFileValidatorMissingFile(t *testing.T) {
	v := NewFileValidator(testConfig())
	errs, err := v.Validate(filepath.Join(t.TempDir(), "nope.csv"), models.MemberTypeContact)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorNotFound, errs[0].Code)
}

func TestFileValidatorFileTooLarge(t *testing.T) {
	cfg := testConfig()
	content := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		strings.Repeat("John;Doe;John Doe\n", 1+int(cfg.UploadMaxSizeBytes())/len("John;Doe;John Doe\n"))

	errs := validateFile(t, content, models.MemberTypeContact)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorExceedsMaxSize, errs[0].Code)
	assert.NotEmpty(t, errs[0].Params["maxSize"])
}

func TestFileValidatorEmptyFile(t *testing.T) {
	errs := validateFile(t, "", models.MemberTypeContact)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorNoData, errs[0].Code)
}

func TestFileValidatorHeaderOnlyFile(t *testing.T) {
	errs := validateFile(t,
		"Contact First Name;Contact Last Name;Contact Full Name\n",
		models.MemberTypeContact)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorNoData, errs[0].Code)
}

func TestFileValidatorDetectsWrongDelimiter(t *testing.T) {
	errs := validateFile(t,
		"Contact First Name,Contact Last Name,Contact Full Name\n"+
			"John,Doe,John Doe\n",
		models.MemberTypeContact)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorWrongDelimiter, errs[0].Code)
	assert.Equal(t, ";", errs[0].Params["expected"])
	assert.Equal(t, ",", errs[0].Params["found"])
}

func TestFileValidatorNamesMissingRequiredColumns(t *testing.T) {
	errs := validateFile(t,
		"Contact First Name;Contact Middle Name\n"+
			"John;Quincy\n",
		models.MemberTypeContact)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorMissingColumns, errs[0].Code)
	assert.Equal(t, "Contact Last Name, Contact Full Name", errs[0].Params["columns"])
}

func TestFileValidatorLineLimit(t *testing.T) {
	cfg := testConfig()
	cfg.ImportLimitOfLines = 2
	content := "Organization Name\nAcme\nGlobex\nInitech\n"

	v := NewFileValidator(cfg)
	errs, err := v.Validate(writeImportFile(t, content), models.MemberTypeOrganization)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, FileErrorLineLimitReached, errs[0].Code)
	assert.Equal(t, "3", errs[0].Params["lines"])
	assert.Equal(t, "2", errs[0].Params["maxLines"])
}

func TestFileValidatorRejectsUnknownMemberType(t *testing.T) {
	v := NewFileValidator(testConfig())
	_, err := v.Validate(writeImportFile(t, "Organization Name\nAcme\n"), "Robot")
	assert.ErrorIs(t, err, ErrUnknownMemberType)
}
