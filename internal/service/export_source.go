package service

import (
	"fmt"

	"customer-web/internal/models"
)

// ExportSource pages through stored members matching a search criteria.
// TotalCount is recomputed on every call since the store may change
// while an export runs.
type ExportSource struct {
	store    MemberStore
	criteria models.MemberSearchCriteria
	pageSize int

	pageNumber int
	page       []*models.Member

	// related holds referenced members fetched to resolve names of
	// organizations the page points at but does not contain.
	related map[string]*models.Member
}

func NewExportSource(store MemberStore, criteria models.MemberSearchCriteria, pageSize int) *ExportSource {
	return &ExportSource{store: store, criteria: criteria, pageSize: pageSize, related: make(map[string]*models.Member)}
}

// Fetch loads the next page and resolves the organizations it
// references. Returns false when no rows remain.
func (s *ExportSource) Fetch() (bool, error) {
	criteria := s.criteria
	criteria.Skip = s.pageNumber * s.pageSize
	criteria.Take = s.pageSize
	page, _, err := s.store.SearchMembers(criteria)
	if err != nil {
		return false, fmt.Errorf("search members: %w", err)
	}
	if len(page) == 0 {
		return false, nil
	}
	s.page = page
	s.pageNumber++
	if err := s.resolveReferences(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ExportSource) resolveReferences() error {
	inPage := make(map[string]bool, len(s.page))
	for _, m := range s.page {
		inPage[m.ID] = true
	}
	var missing []string
	for _, m := range s.page {
		for _, ref := range s.referencedIDs(m) {
			if ref != "" && !inPage[ref] && s.related[ref] == nil {
				missing = append(missing, ref)
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	found, _, err := s.store.SearchMembers(models.MemberSearchCriteria{ObjectIDs: missing, Take: len(missing)})
	if err != nil {
		return fmt.Errorf("resolve referenced members: %w", err)
	}
	for _, m := range found {
		s.related[m.ID] = m
	}
	return nil
}

func (s *ExportSource) referencedIDs(m *models.Member) []string {
	if m.MemberType == models.MemberTypeOrganization {
		return []string{m.ParentOrganizationID}
	}
	return m.Organizations
}

// Page returns the members of the current page.
func (s *ExportSource) Page() []*models.Member { return s.page }

// Resolve returns a referenced member by id, from the current page or
// the secondary fetches done so far.
func (s *ExportSource) Resolve(id string) *models.Member {
	if id == "" {
		return nil
	}
	for _, m := range s.page {
		if m.ID == id {
			return m
		}
	}
	return s.related[id]
}

func (s *ExportSource) CurrentPageNumber() int { return s.pageNumber }

func (s *ExportSource) PageSize() int { return s.pageSize }

func (s *ExportSource) TotalCount() (int, error) {
	criteria := s.criteria
	criteria.Skip = 0
	criteria.Take = 0
	_, total, err := s.store.SearchMembers(criteria)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return total, nil
}
