package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

const importHeader = "Contact First Name;Contact Last Name;Contact Full Name\n"

func contactSource(t *testing.T, content string, pageSize int) *ImportSource[*models.ContactRecord] {
	t.Helper()
	path := writeImportFile(t, content)
	source := NewImportSource(path, ContactSchema(nil), ';', pageSize)
	t.Cleanup(func() { source.Close() })
	return source
}

func TestImportSourcePagesThroughFile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(importHeader)
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&sb, "First%d;Last%d;First%d Last%d\n", i, i, i, i)
	}
	source := contactSource(t, sb.String(), 2)

	sizes := []int{}
	for {
		ok, err := source.Fetch()
		require.NoError(t, err)
		if !ok {
			break
		}
		sizes = append(sizes, len(source.Page())+len(source.BadRows()))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, 3, source.CurrentPageNumber())
}

func TestImportSourceSplitsBadRowsFromPage(t *testing.T) {
	source := contactSource(t,
		importHeader+
			"John;Doe;John Doe\n"+
			"Jane;Roe\n"+
			"Jim;Poe;Jim Poe\n", 10)

	ok, err := source.Fetch()
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, source.Page(), 2)
	assert.Equal(t, "John", source.Page()[0].Value.FirstName)
	assert.Equal(t, "Jim", source.Page()[1].Value.FirstName)

	require.Len(t, source.BadRows(), 1)
	bad := source.BadRows()[0]
	assert.Equal(t, 2, bad.Number)
	require.NotNil(t, bad.Diag)
}

func TestImportSourceTotalCountSkipsBlankLines(t *testing.T) {
	source := contactSource(t,
		importHeader+
			"John;Doe;John Doe\n"+
			"\n"+
			"Jane;Roe;Jane Roe\n"+
			"\n", 10)

	total, err := source.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Counting uses its own reader, so paging starts from the top.
	ok, err := source.Fetch()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, source.Page(), 2)

	again, err := source.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, 2, again)
}

func TestImportSourceHeaderLineIsRaw(t *testing.T) {
	source := contactSource(t, importHeader+"John;Doe;John Doe\n", 10)

	header, err := source.HeaderLine()
	require.NoError(t, err)
	assert.Equal(t, "Contact First Name;Contact Last Name;Contact Full Name", header)
}

func TestImportSourceHeaderOnlyFile(t *testing.T) {
	source := contactSource(t, importHeader, 10)

	total, err := source.TotalCount()
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	ok, err := source.Fetch()
	require.NoError(t, err)
	assert.False(t, ok)
}
