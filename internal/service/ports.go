package service

import "customer-web/internal/models"

// MemberStore is the persistence surface the import and export flows
// depend on.
type MemberStore interface {
	SearchMembers(criteria models.MemberSearchCriteria) ([]*models.Member, int, error)
	BulkSaveMembers(members []*models.Member) error

	// Account holder lookups return the owning member, or nil when the
	// login or email is unclaimed.
	FindAccountHolderByLogin(login string) (*models.Member, error)
	FindAccountHolderByEmail(email string) (*models.Member, error)
}

// ReferenceStore serves the country and region catalogs used by address
// validation.
type ReferenceStore interface {
	GetCountries() ([]models.Country, error)
	GetRegions(countryCode string) ([]models.Region, error)
}

// PropertyStore serves the dynamic property metadata for one object type
// and the dictionary items of dictionary-backed properties.
type PropertyStore interface {
	GetProperties(objectType string) ([]models.DynamicProperty, error)
	GetDictionaryItems(propertyID int) ([]models.DictionaryItem, error)
}

// RunStore persists import and export run state.
type RunStore interface {
	CreateImportRun(run *models.ImportRun) error
	GetImportRun(id int) (*models.ImportRun, error)
	GetImportRunByCode(code string) (*models.ImportRun, error)
	UpdateImportRun(run *models.ImportRun) error
	ListImportRuns(offset, limit int) ([]models.ImportRun, int, error)

	CreateExportRun(run *models.ExportRun) error
	GetExportRunByCode(code string) (*models.ExportRun, error)
	UpdateExportRun(run *models.ExportRun) error
}
