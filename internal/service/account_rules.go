package service

import (
	"net/mail"
	"strings"
	"unicode"

	"customer-web/internal/models"
)

// validateAccount checks the security-account block of a contact row.
// It only fires when an account column carries a value and the row is
// not an additional line.
func (v *ContactValidator) validateAccount(row *Row[*models.ContactRecord], ctx *BatchContext) []Violation {
	r := row.Value
	if !r.HasAccount() || r.AdditionalLine {
		return nil
	}
	var out []Violation

	var missing []string
	if strings.TrimSpace(r.AccountLogin) == "" {
		missing = append(missing, "Account Login")
	}
	if strings.TrimSpace(r.AccountEmail) == "" {
		missing = append(missing, "Account Email")
	}
	if len(missing) > 0 {
		out = append(out, violation(CodeMissingRequiredValues, row.Number, map[string]string{
			"columns": strings.Join(missing, ", "),
		}))
		return out
	}

	login := strings.TrimSpace(r.AccountLogin)
	email := strings.TrimSpace(r.AccountEmail)

	if _, err := mail.ParseAddress(email); err != nil {
		out = append(out, violation(CodeInvalidEmail, row.Number, map[string]string{"value": email}))
	}
	if !loginAllowed(login, v.cfg.LoginAllowedSymbols) {
		out = append(out, violation(CodeInvalidLogin, row.Number, map[string]string{"value": login}))
	}

	if r.AccountType != "" && !containsFold(v.cfg.AccountTypes, r.AccountType) {
		out = append(out, violation(CodeInvalidValue, row.Number, map[string]string{"column": "Account Type"}))
	}
	if r.AccountStatus != "" && !containsFold(v.cfg.AccountStatuses, r.AccountStatus) {
		out = append(out, violation(CodeInvalidValue, row.Number, map[string]string{"column": "Account Status"}))
	}

	// Within the batch the last row using a login or email wins; every
	// earlier row using it is the duplicate.
	if last, ok := ctx.LoginLastRow[strings.ToLower(login)]; ok && last != row.Number {
		out = append(out, violation(CodeLoginNotUnique, row.Number, map[string]string{"value": login}))
	}
	if last, ok := ctx.EmailLastRow[strings.ToLower(email)]; ok && last != row.Number {
		out = append(out, violation(CodeEmailNotUnique, row.Number, map[string]string{"value": email}))
	}

	// Against the store a collision is allowed only when the holder is
	// the same contact as the row declares.
	if holder := ctx.LoginHolders[strings.ToLower(login)]; holder != nil && !sameContact(holder, r) {
		out = append(out, violation(CodeLoginNotUnique, row.Number, map[string]string{"value": login}))
	}
	if holder := ctx.EmailHolders[strings.ToLower(email)]; holder != nil && !sameContact(holder, r) {
		out = append(out, violation(CodeEmailNotUnique, row.Number, map[string]string{"value": email}))
	}

	if r.Password != "" {
		if err := v.passwords.Check(r.Password); err != nil {
			out = append(out, violation(CodeInvalidPassword, row.Number, nil))
		}
	}
	return out
}

// sameContact reports whether the persisted account holder and the row
// describe the same contact: matching full name plus a matching id or
// outer id.
func sameContact(holder *models.Member, r *models.ContactRecord) bool {
	if !strings.EqualFold(holder.FullName, r.FullName) {
		return false
	}
	if r.ID != "" && strings.EqualFold(holder.ID, r.ID) {
		return true
	}
	return r.OuterID != "" && strings.EqualFold(holder.OuterID, r.OuterID)
}

// loginAllowed accepts letters, digits and the configured symbol set.
func loginAllowed(login, symbols string) bool {
	for _, c := range login {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			continue
		}
		if !strings.ContainsRune(symbols, c) {
			return false
		}
	}
	return true
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
