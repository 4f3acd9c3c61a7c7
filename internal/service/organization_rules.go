package service

import (
	"customer-web/internal/config"
	"customer-web/internal/models"
)

// OrganizationValidator is the organization counterpart of
// ContactValidator. Organizations carry no security account, so the
// batch phase only needs reference data and property metadata.
type OrganizationValidator struct {
	refs  ReferenceStore
	props PropertyStore
	cfg   *config.Config
}

func NewOrganizationValidator(refs ReferenceStore, props PropertyStore, cfg *config.Config) *OrganizationValidator {
	return &OrganizationValidator{refs: refs, props: props, cfg: cfg}
}

func (v *OrganizationValidator) Validate(rows []*Row[*models.OrganizationRecord]) ([]Violation, error) {
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

func (v *OrganizationValidator) buildContext(rows []*Row[*models.OrganizationRecord]) (*BatchContext, error) {
	ctx := &BatchContext{
		Duplicates:         duplicateRows(rows),
		OrphanedAdditional: orphanedAdditionalRows(rows),
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
	if err := loadProperties(v.props, ctx, models.MemberTypeOrganization); err != nil {
		return nil, err
	}
	return ctx, nil
}

func (v *OrganizationValidator) validateRow(row *Row[*models.OrganizationRecord], ctx *BatchContext) []Violation {
	r := row.Value
	var out []Violation

	if ctx.Duplicates[row.Number] {
		out = append(out, violation(CodeDuplicate, row.Number, map[string]string{"name": r.Name}))
	}
	if ctx.OrphanedAdditional[row.Number] {
		out = append(out, violation(CodeWrongAdditionalLine, row.Number, map[string]string{"name": r.Name}))
	}

	out = checkLength(out, row.Number, "Organization Name", r.Name, MaxNameLength)
	out = checkLength(out, row.Number, "Business Category", r.BusinessCategory, MaxNameLength)
	out = checkLength(out, row.Number, "Owner Id", r.OwnerID, MaxShortCodeLength)
	out = checkLength(out, row.Number, "Parent Organization Name", r.ParentOrganizationName, MaxNameLength)
	out = checkListLength(out, row.Number, "Phones", r.PhoneList(), MaxShortCodeLength)

	out = append(out, validateAddress(&r.MemberRecord, row.Number, ctx, v.cfg.StrongRegionValidation)...)
	out = append(out, validateDynamicProperties(r.DynamicProperties, row.Number, ctx)...)
	return out
}
