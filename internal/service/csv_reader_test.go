package service

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

func readAll[T any](t *testing.T, input string, schema *Schema[T]) []*Row[T] {
	t.Helper()
	r, err := NewCsvReader(strings.NewReader(input), schema, ';')
	require.NoError(t, err)
	var rows []*Row[T]
	for {
		row, err := r.Read()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCsvReaderDecodesColumnsByHeader(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name;Contact Id\n" +
		"John;Doe;John Doe;c-1\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Diag)
	r := rows[0].Value
	assert.Equal(t, "John", r.FirstName)
	assert.Equal(t, "Doe", r.LastName)
	assert.Equal(t, "John Doe", r.FullName)
	assert.Equal(t, "c-1", r.ID)
}

func TestCsvReaderHeaderIsCaseInsensitive(t *testing.T) {
	input := "CONTACT FIRST NAME;contact last name;Contact Full Name\n" +
		"Jane;Roe;Jane Roe\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Diag)
	assert.Equal(t, "Jane", rows[0].Value.FirstName)
	assert.Equal(t, "Roe", rows[0].Value.LastName)
}

func TestCsvReaderIgnoresUnknownColumns(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name;Shoe Size\n" +
		"John;Doe;John Doe;46\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Diag)
	assert.Empty(t, rows[0].Value.DynamicProperties)
}

func TestCsvReaderSkipsBlankLinesWithoutConsumingNumbers(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		"John;Doe;John Doe\n" +
		"\n" +
		"   \n" +
		"Jane;Roe;Jane Roe\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, 2, rows[1].Number)
}

func TestCsvReaderQuotedNewline(t *testing.T) {
	input := "Organization Id;Organization Name;Description\n" +
		"o-1;Acme;\"line one\nline two\"\n"
	rows := readAll(t, input, OrganizationSchema(nil))

	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Diag)
	assert.Equal(t, "line one\nline two", rows[0].Value.Description)
}

func TestCsvReaderMissingColumnsDiagnostic(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		"John;Doe\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Diag)
	assert.Equal(t, DiagMissingColumns, rows[0].Diag.Code)
	assert.Contains(t, rows[0].Diag.Message, "Contact Full Name")
	// Recoverable fields are still bound.
	assert.Equal(t, "John", rows[0].Value.FirstName)
}

func TestCsvReaderExtraColumnsDiagnostic(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		"John;Doe;John Doe;extra\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Diag)
	assert.Equal(t, DiagNotClosedQuote, rows[0].Diag.Code)
}

func TestCsvReaderBareQuoteDiagnostic(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		"John \"lost\";Doe;John Doe\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Diag)
	assert.Equal(t, DiagLostData, rows[0].Diag.Code)
}

func TestCsvReaderMissingRequiredValuesNamesAll(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name\n" +
		";;\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Diag)
	assert.Equal(t, DiagMissingRequiredValues, rows[0].Diag.Code)
	assert.Contains(t, rows[0].Diag.Message, "Contact First Name")
	assert.Contains(t, rows[0].Diag.Message, "Contact Last Name")
	assert.Contains(t, rows[0].Diag.Message, "Contact Full Name")
}

func TestCsvReaderInvalidValueDiagnostic(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name;Email Verified\n" +
		"John;Doe;John Doe;maybe\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Diag)
	assert.Equal(t, DiagInvalidValue, rows[0].Diag.Code)
	assert.Contains(t, rows[0].Diag.Message, "Email Verified")
}

func TestCsvReaderBooleanLiterals(t *testing.T) {
	input := "Contact First Name;Contact Last Name;Contact Full Name;Email Verified;Additional Line\n" +
		"John;Doe;John Doe;Yes;no\n"
	rows := readAll(t, input, ContactSchema(nil))

	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Diag)
	assert.True(t, rows[0].Value.EmailVerified)
	assert.False(t, rows[0].Value.AdditionalLine)
}

func TestCsvReaderDynamicPropertyColumns(t *testing.T) {
	properties := []models.DynamicProperty{
		{ID: 1, ObjectType: models.MemberTypeContact, Name: "Favorite Color", ValueType: models.PropertyShortText},
		{ID: 2, ObjectType: models.MemberTypeContact, Name: "Interests", ValueType: models.PropertyShortText, IsArray: true},
	}
	input := "Contact First Name;Contact Last Name;Contact Full Name;Favorite Color;Interests\n" +
		"John;Doe;John Doe;blue;hiking, chess\n"
	rows := readAll(t, input, ContactSchema(properties))

	require.Len(t, rows, 1)
	require.Nil(t, rows[0].Diag)
	values := rows[0].Value.DynamicProperties
	require.Len(t, values, 2)
	assert.Equal(t, "Favorite Color", values[0].PropertyName)
	assert.Equal(t, []string{"blue"}, values[0].Values)
	assert.Equal(t, []string{"hiking", "chess"}, values[1].Values)
}

func TestCsvReaderEmptyStream(t *testing.T) {
	_, err := NewCsvReader(strings.NewReader(""), ContactSchema(nil), ';')
	require.Error(t, err)
}
