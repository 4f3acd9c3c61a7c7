package worker

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-web/internal/config"
	"customer-web/internal/models"
)

type fakeRunStore struct {
	mu  sync.Mutex
	run *models.ImportRun
}

func newFakeRunStore(run *models.ImportRun) *fakeRunStore {
	c := *run
	return &fakeRunStore{run: &c}
}

func (s *fakeRunStore) CreateImportRun(run *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *run
	s.run = &c
	return nil
}

func (s *fakeRunStore) GetImportRun(id int) (*models.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *s.run
	return &c, nil
}

func (s *fakeRunStore) GetImportRunByCode(code string) (*models.ImportRun, error) {
	return s.GetImportRun(0)
}

func (s *fakeRunStore) UpdateImportRun(run *models.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *run
	s.run = &c
	return nil
}

func (s *fakeRunStore) ListImportRuns(offset, limit int) ([]models.ImportRun, int, error) {
	return nil, 0, nil
}

func (s *fakeRunStore) CreateExportRun(run *models.ExportRun) error { return nil }

func (s *fakeRunStore) GetExportRunByCode(code string) (*models.ExportRun, error) {
	return nil, nil
}

func (s *fakeRunStore) UpdateExportRun(run *models.ExportRun) error { return nil }

// markCanceled emulates the cancel endpoint writing over whatever status
// the worker last persisted.
func (s *fakeRunStore) markCanceled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.Status = models.RunStatusCanceled
}

func (s *fakeRunStore) current() models.ImportRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.run
}

type fakeMemberStore struct {
	mu     sync.Mutex
	saved  []*models.Member
	onSave func()
}

func (s *fakeMemberStore) SearchMembers(criteria models.MemberSearchCriteria) ([]*models.Member, int, error) {
	return nil, 0, nil
}

func (s *fakeMemberStore) BulkSaveMembers(members []*models.Member) error {
	s.mu.Lock()
	s.saved = append(s.saved, members...)
	s.mu.Unlock()
	if s.onSave != nil {
		s.onSave()
	}
	return nil
}

func (s *fakeMemberStore) FindAccountHolderByLogin(login string) (*models.Member, error) {
	return nil, nil
}

func (s *fakeMemberStore) FindAccountHolderByEmail(email string) (*models.Member, error) {
	return nil, nil
}

func (s *fakeMemberStore) savedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type fakeReferenceStore struct{}

func (fakeReferenceStore) GetCountries() ([]models.Country, error) { return nil, nil }

func (fakeReferenceStore) GetRegions(code string) ([]models.Region, error) { return nil, nil }

type fakePropertyStore struct{}

func (fakePropertyStore) GetProperties(objectType string) ([]models.DynamicProperty, error) {
	return nil, nil
}
func (fakePropertyStore) GetDictionaryItems(propertyID int) ([]models.DictionaryItem, error) {
	return nil, nil
}

func workerConfig() *config.Config {
	return &config.Config{
		AppURL:          "http://localhost:8080",
		ImportDelimiter: ";",
		ImportPageSize:  1,
	}
}

func newTestImportHandler(runs *fakeRunStore, members *fakeMemberStore) *ImportTaskHandler {
	return &ImportTaskHandler{
		// Unreachable address; publish failures are logged and ignored.
		redis:   redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}),
		cfg:     workerConfig(),
		runs:    runs,
		members: members,
		refs:    fakeReferenceStore{},
		props:   fakePropertyStore{},
	}
}

func writeContactFile(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.csv")
	content := "Contact First Name;Contact Last Name;Contact Full Name\n" + rows
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func importTask(t *testing.T, run *models.ImportRun) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(ImportTaskPayload{RunID: run.ID, RunCode: run.RunCode})
	require.NoError(t, err)
	return asynq.NewTask(TypeMemberImport, payload)
}

func TestImportTaskCompletesRun(t *testing.T) {
	run := &models.ImportRun{
		ID:         7,
		RunCode:    "IMPORT-done",
		MemberType: models.MemberTypeContact,
		FilePath:   writeContactFile(t, "John;Doe;John Doe\nJane;Roe;Jane Roe\n"),
		Status:     models.RunStatusUploaded,
	}
	runs := newFakeRunStore(run)
	members := &fakeMemberStore{}
	h := newTestImportHandler(runs, members)

	require.NoError(t, h.Handle(context.Background(), importTask(t, run)))

	final := runs.current()
	assert.Equal(t, models.RunStatusCompleted, final.Status)
	assert.Equal(t, 2, final.TotalRows)
	assert.Equal(t, 2, final.CreatedRows)
	assert.Equal(t, 0, final.ErrorRows)
	assert.Equal(t, 2, members.savedCount())
}

func TestImportTaskSkipsCanceledRun(t *testing.T) {
	run := &models.ImportRun{
		ID:         7,
		RunCode:    "IMPORT-skip",
		MemberType: models.MemberTypeContact,
		FilePath:   writeContactFile(t, "John;Doe;John Doe\n"),
		Status:     models.RunStatusCanceled,
	}
	runs := newFakeRunStore(run)
	members := &fakeMemberStore{}
	h := newTestImportHandler(runs, members)

	require.NoError(t, h.Handle(context.Background(), importTask(t, run)))

	assert.Equal(t, models.RunStatusCanceled, runs.current().Status)
	assert.Equal(t, 0, members.savedCount())
}

func TestImportTaskCancelStopsAtPageBoundary(t *testing.T) {
	run := &models.ImportRun{
		ID:         7,
		RunCode:    "IMPORT-cancel",
		MemberType: models.MemberTypeContact,
		FilePath:   writeContactFile(t, "John;Doe;John Doe\nJane;Roe;Jane Roe\nJim;Poe;Jim Poe\n"),
		Status:     models.RunStatusUploaded,
	}
	runs := newFakeRunStore(run)
	members := &fakeMemberStore{}
	// Cancel lands while the worker is processing, right after the first
	// page was persisted.
	members.onSave = func() { runs.markCanceled() }
	h := newTestImportHandler(runs, members)

	require.NoError(t, h.Handle(context.Background(), importTask(t, run)))

	final := runs.current()
	assert.Equal(t, models.RunStatusCanceled, final.Status)
	assert.Equal(t, 3, final.TotalRows)
	assert.Equal(t, 1, final.CreatedRows)
	assert.Equal(t, 1, members.savedCount())
}

func TestImportProgressSnapshotResolvesReportURL(t *testing.T) {
	h := &ImportTaskHandler{cfg: workerConfig()}
	run := &models.ImportRun{RunCode: "IMPORT-abc"}
	info := &models.ProgressInfo{ReportURL: "/data/uploads/IMPORT-abc_report.csv", ErrorCount: 2}

	snapshot := h.progressSnapshot(run, info)
	assert.Equal(t, "http://localhost:8080/api/v1/imports/IMPORT-abc/report", snapshot.ReportURL)
	assert.Equal(t, 2, snapshot.ErrorCount)
	// The persisted run keeps the filesystem path.
	assert.Equal(t, "/data/uploads/IMPORT-abc_report.csv", info.ReportURL)
}
