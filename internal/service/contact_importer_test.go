package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/models"
)

func writeImportFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func runContactImport(t *testing.T, store *fakeStore, content string) *models.ProgressInfo {
	t.Helper()
	path := writeImportFile(t, content)
	source := NewImportSource(path, ContactSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	validator := NewContactValidator(store, defaultRefs(), &fakeProps{}, testConfig())
	importer := NewContactImporter(store, validator, testLogger())
	info, err := importer.Import(context.Background(), source, reporter, "", func(*models.ProgressInfo) {})
	require.NoError(t, err)
	return info
}

func TestContactImportCreatesMember(t *testing.T) {
	store := newFakeStore()
	info := runContactImport(t, store,
		"Contact First Name;Contact Last Name;Contact Full Name\n"+
			"John;Doe;John Doe\n")

	assert.Equal(t, 1, info.TotalCount)
	assert.Equal(t, 1, info.CreatedCount)
	assert.Equal(t, 0, info.UpdatedCount)
	assert.Equal(t, 0, info.ErrorCount)
	assert.Equal(t, "Import completed", info.Description)
	assert.Empty(t, info.ReportURL)
	require.NotNil(t, info.Finished)

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		assert.Equal(t, models.MemberTypeContact, m.MemberType)
		assert.Equal(t, "John", m.FirstName)
		assert.Equal(t, "John Doe", m.FullName)
		assert.Equal(t, "John Doe", m.Name)
		assert.NotEmpty(t, m.ID)
	}
}

func TestContactImportIsIdempotentByOuterId(t *testing.T) {
	content := "Contact Outer Id;Contact First Name;Contact Last Name;Contact Full Name\n" +
		"ext-1;John;Doe;John Doe\n" +
		"ext-2;Jane;Roe;Jane Roe\n"

	store := newFakeStore()
	first := runContactImport(t, store, content)
	assert.Equal(t, 2, first.CreatedCount)
	assert.Equal(t, 0, first.UpdatedCount)
	require.Len(t, store.members, 2)

	second := runContactImport(t, store, content)
	assert.Equal(t, 0, second.CreatedCount)
	assert.Equal(t, 2, second.UpdatedCount)
	assert.Len(t, store.members, 2)
}

func TestContactImportDropsUnmatchedIds(t *testing.T) {
	store := newFakeStore()
	runContactImport(t, store,
		"Contact Id;Contact First Name;Contact Last Name;Contact Full Name\n"+
			"ghost-1;John;Doe;John Doe\n")

	require.Len(t, store.members, 1)
	// The supplied id matched nothing, so a fresh id was assigned.
	assert.Nil(t, store.get("ghost-1"))
}

func TestContactImportUpdatesExistingById(t *testing.T) {
	existing := &models.Member{
		ID: "c-1", MemberType: models.MemberTypeContact,
		FirstName: "John", LastName: "Doe", FullName: "John Doe", Name: "John Doe",
		Phones: models.StringList{"555-0100"},
	}
	store := newFakeStore(existing)
	info := runContactImport(t, store,
		"Contact Id;Contact First Name;Contact Last Name;Contact Full Name;Phones\n"+
			"c-1;Johnny;Doe;Johnny Doe;555-0199\n")

	assert.Equal(t, 0, info.CreatedCount)
	assert.Equal(t, 1, info.UpdatedCount)

	m := store.get("c-1")
	require.NotNil(t, m)
	assert.Equal(t, "Johnny", m.FirstName)
	assert.Equal(t, "Johnny Doe", m.FullName)
	// Phones append with dedupe, they are never overwritten.
	assert.ElementsMatch(t, []string{"555-0100", "555-0199"}, []string(m.Phones))
}

func TestContactImportReportsBadRows(t *testing.T) {
	path := writeImportFile(t,
		"Contact First Name;Contact Last Name;Contact Full Name\n"+
			"John;Doe;John Doe\n"+
			"Jane;Roe\n")
	source := NewImportSource(path, ContactSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	store := newFakeStore()
	validator := NewContactValidator(store, defaultRefs(), &fakeProps{}, testConfig())
	importer := NewContactImporter(store, validator, testLogger())
	info, err := importer.Import(context.Background(), source, reporter, "", func(*models.ProgressInfo) {})
	require.NoError(t, err)

	assert.Equal(t, 1, info.CreatedCount)
	assert.Equal(t, 1, info.ErrorCount)
	assert.Equal(t, "Import completed with errors", info.Description)
	require.NotEmpty(t, info.ReportURL)

	data, err := os.ReadFile(info.ReportURL)
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "Error description;Contact First Name;Contact Last Name;Contact Full Name")
	assert.Contains(t, report, "Jane;Roe")
	assert.NotContains(t, report, "John;Doe;John Doe")
}

func TestContactImportAdditionalLineAddsAddress(t *testing.T) {
	store := newFakeStore()
	runContactImport(t, store,
		"Contact Outer Id;Contact First Name;Contact Last Name;Contact Full Name;Additional Line;Address Type;Address Line1;Address City;Address Zip Code\n"+
			"ext-1;John;Doe;John Doe;;Billing;Main St 1;Springfield;12345\n"+
			"ext-1;John;Doe;John Doe;Yes;Shipping;Other St 2;Shelbyville;54321\n")

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		require.Len(t, m.Addresses, 2)
		assert.Equal(t, "Billing", m.Addresses[0].AddressType)
		assert.Equal(t, "Shipping", m.Addresses[1].AddressType)
	}
}

func TestContactImportLinksReferencedOrganization(t *testing.T) {
	org := &models.Member{ID: "o-1", MemberType: models.MemberTypeOrganization, Name: "Acme"}
	store := newFakeStore(org)
	runContactImport(t, store,
		"Contact First Name;Contact Last Name;Contact Full Name;Organization Id\n"+
			"John;Doe;John Doe;o-1\n")

	require.Len(t, store.members, 2)
	for id, m := range store.members {
		if id == "o-1" {
			continue
		}
		assert.Equal(t, models.StringList{"o-1"}, m.Organizations)
	}
}

func TestContactImportFallsBackToAmbientParent(t *testing.T) {
	path := writeImportFile(t,
		"Contact First Name;Contact Last Name;Contact Full Name\n"+
			"John;Doe;John Doe\n")
	source := NewImportSource(path, ContactSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	store := newFakeStore()
	validator := NewContactValidator(store, defaultRefs(), &fakeProps{}, testConfig())
	importer := NewContactImporter(store, validator, testLogger())
	_, err = importer.Import(context.Background(), source, reporter, "o-99", func(*models.ProgressInfo) {})
	require.NoError(t, err)

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		assert.Equal(t, models.StringList{"o-99"}, m.Organizations)
	}
}

func TestContactImportCreatesSecurityAccount(t *testing.T) {
	store := newFakeStore()
	runContactImport(t, store,
		"Contact First Name;Contact Last Name;Contact Full Name;Account Login;Account Email;Account Type;Password\n"+
			"John;Doe;John Doe;jdoe;jdoe@example.com;Customer;Sup3rSecret\n")

	require.Len(t, store.members, 1)
	for _, m := range store.members {
		require.Len(t, m.SecurityAccounts, 1)
		account := m.SecurityAccounts[0]
		assert.Equal(t, "jdoe", account.Login)
		assert.Equal(t, "jdoe@example.com", account.Email)
		assert.Equal(t, "Customer", account.AccountType)
		assert.NotEmpty(t, account.PasswordHash)
		assert.NotEqual(t, "Sup3rSecret", account.PasswordHash)
	}
}

func TestContactImportStopsOnCanceledContext(t *testing.T) {
	path := writeImportFile(t,
		"Contact First Name;Contact Last Name;Contact Full Name\n"+
			"John;Doe;John Doe\n")
	source := NewImportSource(path, ContactSchema(nil), ';', 50)
	defer source.Close()

	header, err := source.HeaderLine()
	require.NoError(t, err)
	reporter := NewReportWriter(path, ';', header)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newFakeStore()
	validator := NewContactValidator(store, defaultRefs(), &fakeProps{}, testConfig())
	importer := NewContactImporter(store, validator, testLogger())
	_, err = importer.Import(ctx, source, reporter, "", func(*models.ProgressInfo) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.members)
}
