package service

import (
	"sort"
	"strings"

	"customer-web/internal/config"
	"customer-web/internal/models"
)

// fakeStore is an in-memory MemberStore keyed by lower-cased member id.
type fakeStore struct {
	members map[string]*models.Member
	saves   int
}

func newFakeStore(members ...*models.Member) *fakeStore {
	s := &fakeStore{members: make(map[string]*models.Member)}
	for _, m := range members {
		s.members[strings.ToLower(m.ID)] = m
	}
	return s
}

func (s *fakeStore) SearchMembers(criteria models.MemberSearchCriteria) ([]*models.Member, int, error) {
	var matched []*models.Member
	for _, m := range s.members {
		if criteria.MemberType != "" && m.MemberType != criteria.MemberType {
			continue
		}
		if criteria.Keyword != "" && !strings.Contains(strings.ToLower(m.Name), strings.ToLower(criteria.Keyword)) {
			continue
		}
		if len(criteria.ObjectIDs) > 0 || len(criteria.OuterIDs) > 0 {
			if !containsFold(criteria.ObjectIDs, m.ID) &&
				(m.OuterID == "" || !containsFold(criteria.OuterIDs, m.OuterID)) {
				continue
			}
		}
		if criteria.OrganizationID != "" {
			if m.ParentOrganizationID != criteria.OrganizationID && !m.HasOrganization(criteria.OrganizationID) {
				continue
			}
		}
		matched = append(matched, m)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	total := len(matched)
	if criteria.Take == 0 {
		return nil, total, nil
	}
	if criteria.Skip >= len(matched) {
		return nil, total, nil
	}
	matched = matched[criteria.Skip:]
	if criteria.Take < len(matched) {
		matched = matched[:criteria.Take]
	}
	return matched, total, nil
}

func (s *fakeStore) BulkSaveMembers(members []*models.Member) error {
	for _, m := range members {
		s.members[strings.ToLower(m.ID)] = m
	}
	s.saves++
	return nil
}

func (s *fakeStore) FindAccountHolderByLogin(login string) (*models.Member, error) {
	for _, m := range s.members {
		for _, a := range m.SecurityAccounts {
			if strings.EqualFold(a.Login, login) {
				return m, nil
			}
		}
	}
	return nil, nil
}

func (s *fakeStore) FindAccountHolderByEmail(email string) (*models.Member, error) {
	for _, m := range s.members {
		for _, a := range m.SecurityAccounts {
			if strings.EqualFold(a.Email, email) {
				return m, nil
			}
		}
	}
	return nil, nil
}

func (s *fakeStore) get(id string) *models.Member {
	return s.members[strings.ToLower(id)]
}

type fakeRefs struct {
	countries []models.Country
	regions   map[string][]models.Region
}

func (r *fakeRefs) GetCountries() ([]models.Country, error) { return r.countries, nil }

func (r *fakeRefs) GetRegions(countryCode string) ([]models.Region, error) {
	return r.regions[countryCode], nil
}

type fakeProps struct {
	properties []models.DynamicProperty
	items      map[int][]models.DictionaryItem
}

func (p *fakeProps) GetProperties(objectType string) ([]models.DynamicProperty, error) {
	var out []models.DynamicProperty
	for _, prop := range p.properties {
		if prop.ObjectType == objectType {
			out = append(out, prop)
		}
	}
	return out, nil
}

func (p *fakeProps) GetDictionaryItems(propertyID int) ([]models.DictionaryItem, error) {
	return p.items[propertyID], nil
}

func testConfig() *config.Config {
	return &config.Config{
		UploadMaxSizeMB:    1,
		ImportDelimiter:    ";",
		ImportPageSize:     50,
		ImportLimitOfLines: 10000,
		ExportLimitOfLines: 10000,

		AccountTypes:        []string{"Customer", "Manager", "Administrator"},
		AccountStatuses:     []string{"New", "Approved", "Rejected"},
		LoginAllowedSymbols: "@.-_",
		PasswordMinLength:   8,
	}
}

func defaultRefs() *fakeRefs {
	return &fakeRefs{
		countries: []models.Country{{Code: "US", Name: "United States"}, {Code: "DE", Name: "Germany"}},
		regions: map[string][]models.Region{
			"US": {
				{ID: "CA", CountryCode: "US", Name: "California"},
				{ID: "NY", CountryCode: "US", Name: "New York"},
			},
		},
	}
}
