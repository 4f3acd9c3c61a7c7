package service

import (
	"strings"

	"customer-web/internal/config"
	"customer-web/internal/models"
)

// ContactValidator runs the two-phase validation over a page of contact
// rows: a batch phase building the shared context, then pure per-row
// rules consulting it.
type ContactValidator struct {
	store     MemberStore
	refs      ReferenceStore
	props     PropertyStore
	cfg       *config.Config
	passwords *PasswordPolicy
}

func NewContactValidator(store MemberStore, refs ReferenceStore, props PropertyStore, cfg *config.Config) *ContactValidator {
	return &ContactValidator{
		store:     store,
		refs:      refs,
		props:     props,
		cfg:       cfg,
		passwords: NewPasswordPolicy(cfg.PasswordMinLength),
	}
}

func (v *ContactValidator) Validate(rows []*Row[*models.ContactRecord]) ([]Violation, error) {
	ctx, err := v.buildContext(rows)
	if err != nil {
		return nil, err
	}
	var out []Violation
	for _, row := range rows {
		out = append(out, v.validateRow(row, ctx)...)
	}
	return out, nil
}

func (v *ContactValidator) buildContext(rows []*Row[*models.ContactRecord]) (*BatchContext, error) {
	ctx := &BatchContext{
		Duplicates:         duplicateRows(rows),
		OrphanedAdditional: orphanedAdditionalRows(rows),
		LoginLastRow:       make(map[string]int),
		EmailLastRow:       make(map[string]int),
		LoginHolders:       make(map[string]*models.Member),
		EmailHolders:       make(map[string]*models.Member),
	}

	var countryCodes []string
	for _, row := range rows {
		if code := row.Value.AddressCountryCode; code != "" {
			countryCodes = append(countryCodes, code)
		}
	}
	if err := loadReferenceData(v.refs, ctx, countryCodes); err != nil {
		return nil, err
	}
	if err := loadProperties(v.props, ctx, models.MemberTypeContact); err != nil {
		return nil, err
	}

	// Rows are in file order, so the map ends up holding the last row
	// number using each login and email.
	for _, row := range rows {
		r := row.Value
		if r.AdditionalLine || !r.HasAccount() {
			continue
		}
		if login := strings.ToLower(strings.TrimSpace(r.AccountLogin)); login != "" {
			ctx.LoginLastRow[login] = row.Number
		}
		if email := strings.ToLower(strings.TrimSpace(r.AccountEmail)); email != "" {
			ctx.EmailLastRow[email] = row.Number
		}
	}
	for login := range ctx.LoginLastRow {
		holder, err := v.store.FindAccountHolderByLogin(login)
		if err != nil {
			return nil, err
		}
		if holder != nil {
			ctx.LoginHolders[login] = holder
		}
	}
	for email := range ctx.EmailLastRow {
		holder, err := v.store.FindAccountHolderByEmail(email)
		if err != nil {
			return nil, err
		}
		if holder != nil {
			ctx.EmailHolders[email] = holder
		}
	}
	return ctx, nil
}

func (v *ContactValidator) validateRow(row *Row[*models.ContactRecord], ctx *BatchContext) []Violation {
	r := row.Value
	var out []Violation

	if ctx.Duplicates[row.Number] {
		out = append(out, violation(CodeDuplicate, row.Number, map[string]string{"name": r.FullName}))
	}
	if ctx.OrphanedAdditional[row.Number] {
		out = append(out, violation(CodeWrongAdditionalLine, row.Number, map[string]string{"name": r.FullName}))
	}

	out = checkLength(out, row.Number, "Contact First Name", r.FirstName, MaxNameLength)
	out = checkLength(out, row.Number, "Contact Last Name", r.LastName, MaxNameLength)
	out = checkLength(out, row.Number, "Contact Middle Name", r.MiddleName, MaxNameLength)
	out = checkLength(out, row.Number, "Contact Full Name", r.FullName, MaxFullNameLength)
	out = checkLength(out, row.Number, "Contact Salutation", r.Salutation, MaxNameLength)
	out = checkLength(out, row.Number, "Organization Name", r.OrganizationName, MaxNameLength)
	out = checkListLength(out, row.Number, "Phones", r.PhoneList(), MaxShortCodeLength)
	out = checkListLength(out, row.Number, "Account Email", r.EmailList(), MaxEmailLength)

	out = append(out, validateAddress(&r.MemberRecord, row.Number, ctx, v.cfg.StrongRegionValidation)...)
	out = append(out, v.validateAccount(row, ctx)...)
	out = append(out, validateDynamicProperties(r.DynamicProperties, row.Number, ctx)...)
	return out
}
