package service

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

func runOrganizationImport(t *testing.T, store *fakeStore, parentOrgID, content string) *models.ProgressInfo {
	t.Helper()
	path := writeImportFile(t, content)
	source := NewImportSource(path, OrganizationSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	validator := NewOrganizationValidator(defaultRefs(), &fakeProps{}, testConfig())
	importer := NewOrganizationImporter(store, validator, testLogger())
	info, err := importer.Import(context.Background(), source, reporter, parentOrgID, func(*models.ProgressInfo) {})
	require.NoError(t, err)
	return info
}

func TestOrganizationImportCreatesMember(t *testing.T) {
	store := newFakeStore()
	info := runOrganizationImport(t, store, "",
		"Organization Name;Business Category\n"+
			"Acme Corp;Manufacturing\n")

	assert.Equal(t, 1, info.TotalCount)
	assert.Equal(t, 1, info.CreatedCount)
	assert.Equal(t, 0, info.ErrorCount)
	assert.Equal(t, "Import completed", info.Description)

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		assert.Equal(t, models.MemberTypeOrganization, m.MemberType)
		assert.Equal(t, "Acme Corp", m.Name)
		assert.Equal(t, "Manufacturing", m.BusinessCategory)
		assert.NotEmpty(t, m.ID)
	}
}

func TestOrganizationImportIsIdempotentByOuterId(t *testing.T) {
	content := "Organization Outer Id;Organization Name\n" +
		"org-ext-1;Acme Corp\n" +
		"org-ext-2;Globex\n"

	store := newFakeStore()
	first := runOrganizationImport(t, store, "", content)
	assert.Equal(t, 2, first.CreatedCount)
	assert.Equal(t, 0, first.UpdatedCount)
	require.Len(t, store.members, 2)

	second := runOrganizationImport(t, store, "", content)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Equal(t, 2, second.UpdatedCount)
	assert.Len(t, store.members, 2)
}

func TestOrganizationImportReportsRowMissingName(t *testing.T) {
	path := writeImportFile(t,
		"Organization Name;Description\n"+
			"Acme Corp;Anvils and rockets\n"+
			";No name here\n")
	source := NewImportSource(path, OrganizationSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	store := newFakeStore()
	validator := NewOrganizationValidator(defaultRefs(), &fakeProps{}, testConfig())
	importer := NewOrganizationImporter(store, validator, testLogger())
	info, err := importer.Import(context.Background(), source, reporter, "", func(*models.ProgressInfo) {})
	require.NoError(t, err)

	assert.Equal(t, 1, info.CreatedCount)
	assert.Equal(t, 1, info.ErrorCount)
	assert.Equal(t, "Import completed with errors", info.Description)
	require.NotEmpty(t, info.ReportURL)

	data, err := os.ReadFile(info.ReportURL)
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "Error description;Organization Name;Description")
	assert.Contains(t, report, "No name here")
	assert.NotContains(t, report, "Acme Corp")
}

func TestOrganizationImportLinksParentById(t *testing.T) {
	parent := &models.Member{ID: "p-1", MemberType: models.MemberTypeOrganization, Name: "Holding"}
	store := newFakeStore(parent)
	runOrganizationImport(t, store, "",
		"Organization Name;Parent Organization Id\n"+
			"Subsidiary;p-1\n")

	require.Len(t, store.members, 2)
	for id, m := range store.members {
		if id == "p-1" {
			continue
		}
		assert.Equal(t, "p-1", m.ParentOrganizationID)
	}
}

func TestOrganizationImportLinksParentByOuterId(t *testing.T) {
	parent := &models.Member{ID: "p-1", OuterID: "hold-ext", MemberType: models.MemberTypeOrganization, Name: "Holding"}
	store := newFakeStore(parent)
	runOrganizationImport(t, store, "",
		"Organization Name;Parent Organization Outer Id\n"+
			"Subsidiary;HOLD-EXT\n")

	require.Len(t, store.members, 2)
	for id, m := range store.members {
		if id == "p-1" {
			continue
		}
		// Parent resolution stores the internal id, never the outer one.
		assert.Equal(t, "p-1", m.ParentOrganizationID)
	}
}

func TestOrganizationImportFallsBackToAmbientParent(t *testing.T) {
	store := newFakeStore()
	runOrganizationImport(t, store, "p-99",
		"Organization Name\n"+
			"Acme Corp\n")

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		assert.Equal(t, "p-99", m.ParentOrganizationID)
	}
}

func TestOrganizationImportExplicitParentBeatsAmbient(t *testing.T) {
	parent := &models.Member{ID: "p-1", MemberType: models.MemberTypeOrganization, Name: "Holding"}
	store := newFakeStore(parent)
	runOrganizationImport(t, store, "p-99",
		"Organization Name;Parent Organization Id\n"+
			"Subsidiary;p-1\n")

	for id, m := range store.members {
		if id == "p-1" {
			continue
		}
		assert.Equal(t, "p-1", m.ParentOrganizationID)
	}
}
