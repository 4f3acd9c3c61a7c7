package models

import (
	"strings"
	"time"
)

// MemberRecord is the flat CSV-facing shape shared by contact and
// organization rows. One record maps to one physical row; a row flagged
// AdditionalLine extends a preceding main row with a secondary address
// or extra phones instead of declaring a new entity.
type MemberRecord struct {
	ID             string
	OuterID        string
	AdditionalLine bool

	Phones string // comma-joined
	Groups string // comma-joined

	DefaultLanguage         string
	TimeZone                string
	CommunicationPreference string

	AddressType        string
	AddressFirstName   string
	AddressLastName    string
	AddressCountryCode string
	AddressCountry     string
	AddressRegionCode  string
	AddressRegion      string
	AddressCity        string
	AddressLine1       string
	AddressLine2       string
	AddressZipCode     string
	AddressEmail       string
	AddressPhone       string

	DynamicProperties []DynamicPropertyValue
}

// HasAddress reports whether any address column carries a value.
func (r *MemberRecord) HasAddress() bool {
	return r.AddressType != "" || r.AddressFirstName != "" || r.AddressLastName != "" ||
		r.AddressCountryCode != "" || r.AddressCountry != "" ||
		r.AddressRegionCode != "" || r.AddressRegion != "" ||
		r.AddressCity != "" || r.AddressLine1 != "" || r.AddressLine2 != "" ||
		r.AddressZipCode != "" || r.AddressEmail != "" || r.AddressPhone != ""
}

// Address builds the address sub-object declared by the row.
func (r *MemberRecord) Address() Address {
	return Address{
		AddressType: r.AddressType,
		FirstName:   r.AddressFirstName,
		LastName:    r.AddressLastName,
		CountryCode: r.AddressCountryCode,
		CountryName: r.AddressCountry,
		RegionID:    r.AddressRegionCode,
		RegionName:  r.AddressRegion,
		City:        r.AddressCity,
		Line1:       r.AddressLine1,
		Line2:       r.AddressLine2,
		ZipCode:     r.AddressZipCode,
		Email:       r.AddressEmail,
		Phone:       r.AddressPhone,
	}
}

// PhoneList splits the comma-joined phones column.
func (r *MemberRecord) PhoneList() []string {
	return splitList(r.Phones)
}

// GroupList splits the comma-joined groups column.
func (r *MemberRecord) GroupList() []string {
	return splitList(r.Groups)
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// MemberRow is the view of a parsed row the batch-level validation rules
// need: identity, display name and the additional-line flag.
type MemberRow interface {
	GetID() string
	SetID(id string)
	GetOuterID() string
	DisplayName() string
	IsAdditionalLine() bool
}

// ContactRecord is one contact row of an import/export file.
type ContactRecord struct {
	MemberRecord

	FirstName  string
	LastName   string
	MiddleName string
	FullName   string
	Salutation string
	Status     string
	Birthday   *time.Time

	OrganizationID      string
	OrganizationOuterID string
	OrganizationName    string

	AccountLogin  string
	AccountEmail  string
	AccountType   string
	AccountStatus string
	EmailVerified bool
	StoreID       string
	Password      string
}

func (r *ContactRecord) GetID() string          { return r.ID }
func (r *ContactRecord) SetID(id string)        { r.ID = id }
func (r *ContactRecord) GetOuterID() string     { return r.OuterID }
func (r *ContactRecord) DisplayName() string    { return r.FullName }
func (r *ContactRecord) IsAdditionalLine() bool { return r.AdditionalLine }

// HasAccount reports whether any account column carries a value.
func (r *ContactRecord) HasAccount() bool {
	return r.AccountLogin != "" || r.AccountEmail != "" || r.AccountType != "" ||
		r.AccountStatus != "" || r.StoreID != "" || r.Password != ""
}

// EmailList splits the comma-joined account email column. A contact row
// carries a single account email, but validation treats it as an array
// field so each element gets its own length check.
func (r *ContactRecord) EmailList() []string {
	return splitList(r.AccountEmail)
}

// OrganizationRecord is one organization row of an import/export file.
type OrganizationRecord struct {
	MemberRecord

	Name             string
	Description      string
	BusinessCategory string
	OwnerID          string
	Status           string

	ParentOrganizationID      string
	ParentOrganizationOuterID string
	ParentOrganizationName    string
}

func (r *OrganizationRecord) GetID() string          { return r.ID }
func (r *OrganizationRecord) SetID(id string)        { r.ID = id }
func (r *OrganizationRecord) GetOuterID() string     { return r.OuterID }
func (r *OrganizationRecord) DisplayName() string    { return r.Name }
func (r *OrganizationRecord) IsAdditionalLine() bool { return r.AdditionalLine }
