package service

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

func TestCsvWriterEmitsColumnsInSchemaOrder(t *testing.T) {
	schema := OrganizationSchema(nil)
	var buf bytes.Buffer
	w := NewCsvWriter(&buf, schema, ';')

	require.NoError(t, w.Write(&models.OrganizationRecord{Name: "Acme Corp", BusinessCategory: "Manufacturing"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, 1, w.Rows())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(schema.ColumnNames(), ";"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], ";;Acme Corp;;Manufacturing;"))
}

func TestCsvWriterAppendsDynamicPropertyColumns(t *testing.T) {
	props := []models.DynamicProperty{
		{ID: 1, Name: "Loyalty Tier", ObjectType: models.MemberTypeContact},
	}
	var buf bytes.Buffer
	w := NewCsvWriter(&buf, ContactSchema(props), ';')

	r := &models.ContactRecord{FirstName: "John", LastName: "Doe", FullName: "John Doe"}
	r.DynamicProperties = []models.DynamicPropertyValue{
		{PropertyName: "Loyalty Tier", Values: []string{"Gold"}},
	}
	require.NoError(t, w.Write(r))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], ";Loyalty Tier"))
	assert.True(t, strings.HasSuffix(lines[1], ";Gold"))
}

func TestCsvWriterDeduplicatesDictionaryValues(t *testing.T) {
	props := []models.DynamicProperty{
		{ID: 2, Name: "Interests", ObjectType: models.MemberTypeContact, IsDictionary: true, IsArray: true},
	}
	var buf bytes.Buffer
	w := NewCsvWriter(&buf, ContactSchema(props), ';')

	r := &models.ContactRecord{FirstName: "John", LastName: "Doe", FullName: "John Doe"}
	r.DynamicProperties = []models.DynamicPropertyValue{
		{PropertyName: "Interests", Values: []string{"Sports", "sports", "Music"}},
	}
	require.NoError(t, w.Write(r))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], ";Sports,Music"))
}
