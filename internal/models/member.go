package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Member types recognized by the import/export pipeline.
const (
	MemberTypeContact      = "Contact"
	MemberTypeOrganization = "Organization"
)

// StringList is a JSON-encoded list column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// AddressList is a JSON-encoded list of addresses.
type AddressList []Address

func (l AddressList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *AddressList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// PropertyValueList is a JSON-encoded list of dynamic property values.
type PropertyValueList []DynamicPropertyValue

func (l PropertyValueList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *PropertyValueList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// Address is a postal address attached to a member.
type Address struct {
	AddressType string `json:"address_type"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name,omitempty"`
	RegionID    string `json:"region_id,omitempty"`
	RegionName  string `json:"region_name,omitempty"`
	City        string `json:"city"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	ZipCode     string `json:"zip_code"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// IsEmpty reports whether no address field carries a value.
func (a Address) IsEmpty() bool {
	return a.AddressType == "" && a.CountryCode == "" && a.CountryName == "" &&
		a.RegionID == "" && a.RegionName == "" && a.City == "" &&
		a.Line1 == "" && a.Line2 == "" && a.ZipCode == "" &&
		a.Email == "" && a.Phone == ""
}

// SecurityAccount is the login/email credential pair owned by a contact.
type SecurityAccount struct {
	ID            int    `db:"id" json:"id"`
	MemberID      string `db:"member_id" json:"member_id"`
	Login         string `db:"login" json:"login"`
	Email         string `db:"email" json:"email"`
	AccountType   string `db:"account_type" json:"account_type"`
	Status        string `db:"status" json:"status"`
	EmailVerified bool   `db:"email_verified" json:"email_verified"`
	StoreID       string `db:"store_id" json:"store_id"`
	PasswordHash  string `db:"password_hash" json:"-"`
}

// Member is the persisted entity shared by contacts and organizations.
// Contacts and organizations live in one members table discriminated by
// MemberType; kind-specific columns stay empty for the other kind.
type Member struct {
	ID         string `db:"id" json:"id"`
	OuterID    string `db:"outer_id" json:"outer_id"`
	MemberType string `db:"member_type" json:"member_type"`
	Name       string `db:"name" json:"name"`
	Status     string `db:"status" json:"status"`

	// Contact fields
	FirstName  string     `db:"first_name" json:"first_name"`
	LastName   string     `db:"last_name" json:"last_name"`
	MiddleName string     `db:"middle_name" json:"middle_name"`
	FullName   string     `db:"full_name" json:"full_name"`
	Salutation string     `db:"salutation" json:"salutation"`
	Birthday   *time.Time `db:"birthday" json:"birthday"`

	DefaultLanguage         string `db:"default_language" json:"default_language"`
	TimeZone                string `db:"time_zone" json:"time_zone"`
	CommunicationPreference string `db:"communication_preference" json:"communication_preference"`

	// Organization fields
	BusinessCategory     string `db:"business_category" json:"business_category"`
	Description          string `db:"description" json:"description"`
	OwnerID              string `db:"owner_id" json:"owner_id"`
	ParentOrganizationID string `db:"parent_organization_id" json:"parent_organization_id"`

	// Organization linkage for contacts (organization ids).
	Organizations StringList `db:"organizations" json:"organizations"`

	Phones                StringList        `db:"phones" json:"phones"`
	Groups                StringList        `db:"groups" json:"groups"`
	Addresses             AddressList       `db:"addresses" json:"addresses"`
	DynamicPropertyValues PropertyValueList `db:"dynamic_properties" json:"dynamic_properties"`

	// Loaded from the security_accounts table, not a members column.
	SecurityAccounts []SecurityAccount `db:"-" json:"security_accounts,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasOrganization reports whether the contact is already linked to orgID.
func (m *Member) HasOrganization(orgID string) bool {
	for _, id := range m.Organizations {
		if id == orgID {
			return true
		}
	}
	return false
}

// AccountByLogin returns the member's account with the given login, if any.
func (m *Member) AccountByLogin(login string) *SecurityAccount {
	for i := range m.SecurityAccounts {
		if m.SecurityAccounts[i].Login == login {
			return &m.SecurityAccounts[i]
		}
	}
	return nil
}

// Country is a reference-list entry used for address validation.
type Country struct {
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Region is a country subdivision used for strong region validation.
type Region struct {
	ID          string `db:"id" json:"id"`
	CountryCode string `db:"country_code" json:"country_code"`
	Name        string `db:"name" json:"name"`
}
