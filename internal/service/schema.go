package service

import (
	"fmt"
	"strings"
	"time"

	"customer-web/internal/models"
)

// Column binds one CSV column to a field of the record type T. Set
// parses the raw cell value; Get renders it back for export.
type Column[T any] struct {
	Name     string
	Required bool
	Get      func(r T) string
	Set      func(r T, value string) error
}

// Schema is the ordered column descriptor for one entity kind. Fixed
// columns come first in declaration order, then one column per dynamic
// property in configured order. Dynamic property columns are appended at
// schema construction from the runtime-supplied property list.
type Schema[T any] struct {
	Columns []Column[T]
	Dynamic []models.DynamicProperty

	New           func() T
	DynamicValues func(r T) []models.DynamicPropertyValue
	AddDynamic    func(r T, value models.DynamicPropertyValue)
}

// ColumnNames returns all emitted column names, fixed then dynamic.
func (s *Schema[T]) ColumnNames() []string {
	names := make([]string, 0, len(s.Columns)+len(s.Dynamic))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	for _, p := range s.Dynamic {
		names = append(names, p.Name)
	}
	return names
}

// RequiredNames returns the names of required fixed columns.
func (s *Schema[T]) RequiredNames() []string {
	var names []string
	for _, c := range s.Columns {
		if c.Required {
			names = append(names, c.Name)
		}
	}
	return names
}

func (s *Schema[T]) column(name string) *Column[T] {
	for i := range s.Columns {
		if strings.EqualFold(s.Columns[i].Name, name) {
			return &s.Columns[i]
		}
	}
	return nil
}

func (s *Schema[T]) dynamicProperty(name string) *models.DynamicProperty {
	for i := range s.Dynamic {
		if strings.EqualFold(s.Dynamic[i].Name, name) {
			return &s.Dynamic[i]
		}
	}
	return nil
}

// Boolean literal spellings recognized by the codec.
func parseBoolLiteral(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "true":
		return true, nil
	case "no", "false":
		return false, nil
	default:
		return false, fmt.Errorf("unrecognized boolean %q", v)
	}
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// Invariant-culture date layouts accepted on import.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

func parseDateValue(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ContactSchema builds the contact column descriptor, appending one
// column per supplied dynamic property.
func ContactSchema(properties []models.DynamicProperty) *Schema[*models.ContactRecord] {
	s := &Schema[*models.ContactRecord]{
		Dynamic: properties,
		New:     func() *models.ContactRecord { return &models.ContactRecord{} },
		DynamicValues: func(r *models.ContactRecord) []models.DynamicPropertyValue {
			return r.DynamicProperties
		},
		AddDynamic: func(r *models.ContactRecord, v models.DynamicPropertyValue) {
			r.DynamicProperties = append(r.DynamicProperties, v)
		},
	}
	s.Columns = []Column[*models.ContactRecord]{
		str("Contact Id", false, func(r *models.ContactRecord) *string { return &r.ID }),
		str("Contact Outer Id", false, func(r *models.ContactRecord) *string { return &r.OuterID }),
		str("Contact First Name", true, func(r *models.ContactRecord) *string { return &r.FirstName }),
		str("Contact Last Name", true, func(r *models.ContactRecord) *string { return &r.LastName }),
		str("Contact Full Name", true, func(r *models.ContactRecord) *string { return &r.FullName }),
		str("Contact Middle Name", false, func(r *models.ContactRecord) *string { return &r.MiddleName }),
		str("Contact Salutation", false, func(r *models.ContactRecord) *string { return &r.Salutation }),
		str("Contact Status", false, func(r *models.ContactRecord) *string { return &r.Status }),
		{
			Name: "Contact Birthday",
			Get:  func(r *models.ContactRecord) string { return formatDate(r.Birthday) },
			Set: func(r *models.ContactRecord, v string) error {
				if strings.TrimSpace(v) == "" {
					return nil
				}
				t, err := parseDateValue(v)
				if err != nil {
					return err
				}
				r.Birthday = &t
				return nil
			},
		},
		str("Organization Id", false, func(r *models.ContactRecord) *string { return &r.OrganizationID }),
		str("Organization Outer Id", false, func(r *models.ContactRecord) *string { return &r.OrganizationOuterID }),
		str("Organization Name", false, func(r *models.ContactRecord) *string { return &r.OrganizationName }),
		str("Account Login", false, func(r *models.ContactRecord) *string { return &r.AccountLogin }),
		str("Account Email", false, func(r *models.ContactRecord) *string { return &r.AccountEmail }),
		str("Account Type", false, func(r *models.ContactRecord) *string { return &r.AccountType }),
		str("Account Status", false, func(r *models.ContactRecord) *string { return &r.AccountStatus }),
		boolean("Email Verified", func(r *models.ContactRecord) *bool { return &r.EmailVerified }),
		{
			Name: "Password",
			Get:  func(r *models.ContactRecord) string { return "" }, // never exported
			Set: func(r *models.ContactRecord, v string) error {
				r.Password = v
				return nil
			},
		},
		str("Store Id", false, func(r *models.ContactRecord) *string { return &r.StoreID }),
	}
	s.Columns = append(s.Columns, memberColumns[*models.ContactRecord]("User Groups", func(r *models.ContactRecord) *models.MemberRecord { return &r.MemberRecord })...)
	return s
}

// OrganizationSchema builds the organization column descriptor.
func OrganizationSchema(properties []models.DynamicProperty) *Schema[*models.OrganizationRecord] {
	s := &Schema[*models.OrganizationRecord]{
		Dynamic: properties,
		New:     func() *models.OrganizationRecord { return &models.OrganizationRecord{} },
		DynamicValues: func(r *models.OrganizationRecord) []models.DynamicPropertyValue {
			return r.DynamicProperties
		},
		AddDynamic: func(r *models.OrganizationRecord, v models.DynamicPropertyValue) {
			r.DynamicProperties = append(r.DynamicProperties, v)
		},
	}
	s.Columns = []Column[*models.OrganizationRecord]{
		str("Organization Id", false, func(r *models.OrganizationRecord) *string { return &r.ID }),
		str("Organization Outer Id", false, func(r *models.OrganizationRecord) *string { return &r.OuterID }),
		str("Organization Name", true, func(r *models.OrganizationRecord) *string { return &r.Name }),
		str("Organization Status", false, func(r *models.OrganizationRecord) *string { return &r.Status }),
		str("Business Category", false, func(r *models.OrganizationRecord) *string { return &r.BusinessCategory }),
		str("Description", false, func(r *models.OrganizationRecord) *string { return &r.Description }),
		str("Owner Id", false, func(r *models.OrganizationRecord) *string { return &r.OwnerID }),
		str("Parent Organization Id", false, func(r *models.OrganizationRecord) *string { return &r.ParentOrganizationID }),
		str("Parent Organization Outer Id", false, func(r *models.OrganizationRecord) *string { return &r.ParentOrganizationOuterID }),
		str("Parent Organization Name", false, func(r *models.OrganizationRecord) *string { return &r.ParentOrganizationName }),
	}
	s.Columns = append(s.Columns, memberColumns[*models.OrganizationRecord]("Organization Groups", func(r *models.OrganizationRecord) *models.MemberRecord { return &r.MemberRecord })...)
	return s
}

// memberColumns yields the columns shared by both entity kinds: phones,
// groups, preferences, the additional-line flag and the address block.
func memberColumns[T any](groupsName string, base func(r T) *models.MemberRecord) []Column[T] {
	return []Column[T]{
		str(groupsName, false, func(r T) *string { return &base(r).Groups }),
		str("Phones", false, func(r T) *string { return &base(r).Phones }),
		str("Default Language", false, func(r T) *string { return &base(r).DefaultLanguage }),
		str("Time Zone", false, func(r T) *string { return &base(r).TimeZone }),
		str("Communication Preference", false, func(r T) *string { return &base(r).CommunicationPreference }),
		boolean[T]("Additional Line", func(r T) *bool { return &base(r).AdditionalLine }),
		str("Address Type", false, func(r T) *string { return &base(r).AddressType }),
		str("Address First Name", false, func(r T) *string { return &base(r).AddressFirstName }),
		str("Address Last Name", false, func(r T) *string { return &base(r).AddressLastName }),
		str("Address Country Code", false, func(r T) *string { return &base(r).AddressCountryCode }),
		str("Address Country", false, func(r T) *string { return &base(r).AddressCountry }),
		str("Address Region Code", false, func(r T) *string { return &base(r).AddressRegionCode }),
		str("Address Region", false, func(r T) *string { return &base(r).AddressRegion }),
		str("Address City", false, func(r T) *string { return &base(r).AddressCity }),
		str("Address Line1", false, func(r T) *string { return &base(r).AddressLine1 }),
		str("Address Line2", false, func(r T) *string { return &base(r).AddressLine2 }),
		str("Address Zip Code", false, func(r T) *string { return &base(r).AddressZipCode }),
		str("Address Email", false, func(r T) *string { return &base(r).AddressEmail }),
		str("Address Phone", false, func(r T) *string { return &base(r).AddressPhone }),
	}
}

func str[T any](name string, required bool, field func(r T) *string) Column[T] {
	return Column[T]{
		Name:     name,
		Required: required,
		Get:      func(r T) string { return *field(r) },
		Set: func(r T, v string) error {
			*field(r) = strings.TrimSpace(v)
			return nil
		},
	}
}

func boolean[T any](name string, field func(r T) *bool) Column[T] {
	return Column[T]{
		Name: name,
		Get:  func(r T) string { return formatBool(*field(r)) },
		Set: func(r T, v string) error {
			if strings.TrimSpace(v) == "" {
				return nil
			}
			b, err := parseBoolLiteral(v)
			if err != nil {
				return err
			}
			*field(r) = b
			return nil
		},
	}
}
