package service

import (
	"strings"

	"customer-web/internal/models"
)

// identityKey builds the (id, outer id, name) tuple that ties additional
// lines to their main row.
func identityKey(id, outerID, name string) string {
	return strings.ToLower(strings.TrimSpace(id)) + "|" +
		strings.ToLower(strings.TrimSpace(outerID)) + "|" +
		strings.ToLower(strings.TrimSpace(name))
}

// matchMember finds the member matching an id or outer id. Id matching
// is case-insensitive; the outer id only matches when non-empty on both
// sides.
func matchMember(members []*models.Member, id, outerID string) *models.Member {
	id = strings.TrimSpace(id)
	outerID = strings.TrimSpace(outerID)
	for _, m := range members {
		if id != "" && strings.EqualFold(m.ID, id) {
			return m
		}
		if outerID != "" && m.OuterID != "" && strings.EqualFold(m.OuterID, outerID) {
			return m
		}
	}
	return nil
}

func appendUnique(list models.StringList, values []string) models.StringList {
	for _, v := range values {
		exists := false
		for _, have := range list {
			if strings.EqualFold(have, v) {
				exists = true
				break
			}
		}
		if !exists {
			list = append(list, v)
		}
	}
	return list
}

// patchBase applies the columns shared by both entity kinds. Lists and
// addresses are appended, never replaced, so repeated imports and
// additional lines accumulate rather than clobber.
func patchBase(target *models.Member, r *models.MemberRecord) {
	if outerID := strings.TrimSpace(r.OuterID); outerID != "" {
		target.OuterID = outerID
	}
	if r.DefaultLanguage != "" {
		target.DefaultLanguage = r.DefaultLanguage
	}
	if r.TimeZone != "" {
		target.TimeZone = r.TimeZone
	}
	if r.CommunicationPreference != "" {
		target.CommunicationPreference = r.CommunicationPreference
	}
	target.Phones = appendUnique(target.Phones, r.PhoneList())
	target.Groups = appendUnique(target.Groups, r.GroupList())
	if r.HasAddress() {
		target.Addresses = append(target.Addresses, r.Address())
	}
	mergeDynamicProperties(target, r.DynamicProperties)
}

// mergeDynamicProperties keeps the entity's existing property entries
// but overwrites their values when the row specifies the same property,
// appending entries for properties the entity did not carry yet.
func mergeDynamicProperties(target *models.Member, values []models.DynamicPropertyValue) {
	for _, value := range values {
		merged := false
		for i := range target.DynamicPropertyValues {
			if strings.EqualFold(target.DynamicPropertyValues[i].PropertyName, value.PropertyName) {
				target.DynamicPropertyValues[i].Values = value.Values
				merged = true
				break
			}
		}
		if !merged {
			target.DynamicPropertyValues = append(target.DynamicPropertyValues, value)
		}
	}
}

// patchContact maps a contact row onto a persisted member.
func patchContact(target *models.Member, r *models.ContactRecord) {
	target.MemberType = models.MemberTypeContact
	target.FirstName = r.FirstName
	target.LastName = r.LastName
	if r.MiddleName != "" {
		target.MiddleName = r.MiddleName
	}
	target.FullName = r.FullName
	target.Name = r.FullName
	if r.Salutation != "" {
		target.Salutation = r.Salutation
	}
	if r.Status != "" {
		target.Status = r.Status
	}
	if r.Birthday != nil {
		target.Birthday = r.Birthday
	}
	patchBase(target, &r.MemberRecord)
}

// patchOrganization maps an organization row onto a persisted member.
func patchOrganization(target *models.Member, r *models.OrganizationRecord) {
	target.MemberType = models.MemberTypeOrganization
	target.Name = r.Name
	if r.Status != "" {
		target.Status = r.Status
	}
	if r.Description != "" {
		target.Description = r.Description
	}
	if r.BusinessCategory != "" {
		target.BusinessCategory = r.BusinessCategory
	}
	if r.OwnerID != "" {
		target.OwnerID = r.OwnerID
	}
	patchBase(target, &r.MemberRecord)
}

// patchAccount appends the row's security account to the contact, or
// updates the contact's account with the same login.
func patchAccount(target *models.Member, r *models.ContactRecord, passwords *PasswordPolicy) error {
	if !r.HasAccount() || r.AdditionalLine {
		return nil
	}
	login := strings.TrimSpace(r.AccountLogin)
	account := target.AccountByLogin(login)
	if account == nil {
		target.SecurityAccounts = append(target.SecurityAccounts, models.SecurityAccount{MemberID: target.ID, Login: login})
		account = &target.SecurityAccounts[len(target.SecurityAccounts)-1]
	}
	account.Email = strings.TrimSpace(r.AccountEmail)
	if r.AccountType != "" {
		account.AccountType = r.AccountType
	}
	if r.AccountStatus != "" {
		account.Status = r.AccountStatus
	}
	account.EmailVerified = r.EmailVerified
	if r.StoreID != "" {
		account.StoreID = r.StoreID
	}
	if r.Password != "" {
		hash, err := passwords.Hash(r.Password)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
	}
	return nil
}
