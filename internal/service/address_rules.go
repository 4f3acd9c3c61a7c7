package service

import (
	"strings"

	"customer-web/internal/models"
)

var addressTypes = map[string]bool{
	"billing":            true,
	"shipping":           true,
	"billingandshipping": true,
	"pickup":             true,
}

// validateAddress checks the address block of one row. It only fires
// when at least one address column carries a value.
func validateAddress(r *models.MemberRecord, row int, ctx *BatchContext, strongRegion bool) []Violation {
	if !r.HasAddress() {
		return nil
	}
	var out []Violation

	var missing []string
	if strings.TrimSpace(r.AddressLine1) == "" {
		missing = append(missing, "Address Line1")
	}
	if strings.TrimSpace(r.AddressCity) == "" {
		missing = append(missing, "Address City")
	}
	if strings.TrimSpace(r.AddressZipCode) == "" {
		missing = append(missing, "Address Zip Code")
	}
	if len(missing) > 0 {
		out = append(out, violation(CodeMissingRequiredValues, row, map[string]string{
			"columns": strings.Join(missing, ", "),
		}))
	}

	if r.AddressType != "" && !addressTypes[strings.ToLower(r.AddressType)] {
		out = append(out, violation(CodeInvalidValue, row, map[string]string{"column": "Address Type"}))
	}

	out = checkLength(out, row, "Address First Name", r.AddressFirstName, MaxNameLength)
	out = checkLength(out, row, "Address Last Name", r.AddressLastName, MaxNameLength)
	out = checkLength(out, row, "Address City", r.AddressCity, MaxNameLength)
	out = checkLength(out, row, "Address Line1", r.AddressLine1, MaxNameLength)
	out = checkLength(out, row, "Address Line2", r.AddressLine2, MaxNameLength)
	out = checkLength(out, row, "Address Zip Code", r.AddressZipCode, MaxPostalCodeLength)
	out = checkLength(out, row, "Address Email", r.AddressEmail, MaxEmailLength)
	out = checkLength(out, row, "Address Phone", r.AddressPhone, MaxShortCodeLength)

	countryCode := strings.ToUpper(strings.TrimSpace(r.AddressCountryCode))
	if countryCode != "" {
		if _, known := ctx.Countries[countryCode]; !known {
			out = append(out, violation(CodeUnknownCountry, row, map[string]string{"code": r.AddressCountryCode}))
			return out
		}
	}
	if strongRegion {
		out = append(out, validateRegion(r, row, ctx, countryCode)...)
	}
	return out
}

// validateRegion applies the strict region rules: the region code is
// required, must resolve among the country's regions by id, and the
// region name, when given, must match the resolved region's name.
func validateRegion(r *models.MemberRecord, row int, ctx *BatchContext, countryCode string) []Violation {
	regionCode := strings.TrimSpace(r.AddressRegionCode)
	if regionCode == "" {
		return []Violation{violation(CodeMissingRequiredValues, row, map[string]string{
			"columns": "Address Region Code",
		})}
	}
	regions := ctx.Regions[countryCode]
	region, known := regions[strings.ToUpper(regionCode)]
	if !known {
		return []Violation{violation(CodeUnknownRegion, row, map[string]string{
			"code":    regionCode,
			"country": countryCode,
		})}
	}
	name := strings.TrimSpace(r.AddressRegion)
	if name != "" && !strings.EqualFold(name, region.Name) {
		return []Violation{violation(CodeRegionNameMismatch, row, map[string]string{
			"name": name,
			"code": regionCode,
		})}
	}
	return nil
}
