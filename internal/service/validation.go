package service

import (
	"fmt"
	"strings"

	"customer-web/internal/models"
)

// Stable error codes for row validation failures. The UI maps them to
// localized messages; Message renders the built-in English template.
const (
	CodeDuplicate                = "duplicate"
	CodeWrongAdditionalLine      = "wrong-additional-line"
	CodeMissingRequiredValues    = "missing-required-values"
	CodeExceedingMaxLength       = "exceeding-max-length"
	CodeArrayValueExceedsLength  = "array-value-exceeding-max-length"
	CodeInvalidValue             = "invalid-value"
	CodeUnknownCountry           = "unknown-country"
	CodeUnknownRegion            = "unknown-region"
	CodeRegionNameMismatch       = "region-name-mismatch"
	CodeInvalidEmail             = "invalid-email"
	CodeInvalidLogin             = "invalid-login"
	CodeLoginNotUnique           = "login-not-unique"
	CodeEmailNotUnique           = "email-not-unique"
	CodeInvalidPassword          = "invalid-password"
	CodeMissingPropertyValue     = "missing-property-value"
	CodeTooManyPropertyValues    = "too-many-property-values"
)

// Field length limits applied by the per-row structural rules.
const (
	MaxNameLength       = 128
	MaxFullNameLength   = 254
	MaxEmailLength      = 254
	MaxShortCodeLength  = 64
	MaxPostalCodeLength = 32
)

var violationMessages = map[string]string{
	CodeDuplicate:               "This row is a duplicate of another row with the same id or outer id",
	CodeWrongAdditionalLine:     "This additional line has no main line declaring the same record",
	CodeMissingRequiredValues:   "The required values were missing in this row: {columns}",
	CodeExceedingMaxLength:      "The value in the column {column} exceeds the maximum length of {limit}",
	CodeArrayValueExceedsLength: "A value of the column {column} exceeds the maximum length of {limit}",
	CodeInvalidValue:            "This row has an invalid value in the column {column}",
	CodeUnknownCountry:          "The country code {code} does not match any known country",
	CodeUnknownRegion:           "The region code {code} does not match any region of the country {country}",
	CodeRegionNameMismatch:      "The region name {name} does not match the name of the region {code}",
	CodeInvalidEmail:            "The value {value} is not a valid email address",
	CodeInvalidLogin:            "The login {value} contains characters outside the allowed set",
	CodeLoginNotUnique:          "The login {value} is already used by another member",
	CodeEmailNotUnique:          "The email {value} is already used by another member",
	CodeInvalidPassword:         "The password does not meet the password policy",
	CodeMissingPropertyValue:    "The property {column} has no value",
	CodeTooManyPropertyValues:   "The property {column} does not accept multiple values",
}

// Violation is one validation failure: a stable code, the 1-based data
// row it applies to, and named parameters for message templating.
type Violation struct {
	Code   string
	Row    int
	Params map[string]string
}

// Message renders the violation's English description.
func (v Violation) Message() string {
	msg, ok := violationMessages[v.Code]
	if !ok {
		return v.Code
	}
	for key, value := range v.Params {
		msg = strings.ReplaceAll(msg, "{"+key+"}", value)
	}
	return msg
}

func violation(code string, row int, params map[string]string) Violation {
	return Violation{Code: code, Row: row, Params: params}
}

// ErrorContext tracks the row numbers already flagged invalid during a
// run so a row failing at several pipeline stages is reported once.
type ErrorContext struct {
	flagged map[int]bool
}

func NewErrorContext() *ErrorContext {
	return &ErrorContext{flagged: make(map[int]bool)}
}

// Flag marks a row invalid. It returns true when the row was not
// flagged before, i.e. the caller owns reporting it.
func (c *ErrorContext) Flag(row int) bool {
	if c.flagged[row] {
		return false
	}
	c.flagged[row] = true
	return true
}

func (c *ErrorContext) Flagged(row int) bool { return c.flagged[row] }

// Count returns the number of rows flagged so far.
func (c *ErrorContext) Count() int { return len(c.flagged) }

// BatchContext carries the state the batch phase computes once and the
// per-row rules consult: duplicate and orphan row sets, reference data
// lookups, dynamic property metadata and batch-wide account usage.
type BatchContext struct {
	Duplicates         map[int]bool
	OrphanedAdditional map[int]bool

	// Countries by upper-cased code; Regions by country code, then by
	// upper-cased region id.
	Countries map[string]models.Country
	Regions   map[string]map[string]models.Region

	// Properties by lower-cased name; DictionaryItems by lower-cased
	// property name, then by lower-cased item id.
	Properties      map[string]models.DynamicProperty
	DictionaryItems map[string]map[string]bool

	// Last row number using each login and email within the batch. The
	// last occurrence wins; earlier rows are flagged not unique.
	LoginLastRow map[string]int
	EmailLastRow map[string]int

	// Persisted members already holding each login or email the batch
	// references, by lower-cased key. Absent key means unclaimed.
	LoginHolders map[string]*models.Member
	EmailHolders map[string]*models.Member
}

// duplicateRows groups non-additional rows by non-empty id and by
// non-empty outer id. Every member of a group with more than one row is
// flagged; a row caught on either axis is reported once.
func duplicateRows[T models.MemberRow](rows []*Row[T]) map[int]bool {
	byID := make(map[string][]int)
	byOuterID := make(map[string][]int)
	for _, row := range rows {
		if row.Value.IsAdditionalLine() {
			continue
		}
		if id := strings.ToLower(strings.TrimSpace(row.Value.GetID())); id != "" {
			byID[id] = append(byID[id], row.Number)
		}
		if outer := strings.ToLower(strings.TrimSpace(row.Value.GetOuterID())); outer != "" {
			byOuterID[outer] = append(byOuterID[outer], row.Number)
		}
	}
	duplicates := make(map[int]bool)
	for _, group := range byID {
		if len(group) > 1 {
			for _, n := range group {
				duplicates[n] = true
			}
		}
	}
	for _, group := range byOuterID {
		if len(group) > 1 {
			for _, n := range group {
				duplicates[n] = true
			}
		}
	}
	return duplicates
}

// orphanedAdditionalRows groups rows by their (id, outer id, name)
// identity tuple and flags every group whose members are all marked as
// additional lines, since nothing anchors them.
func orphanedAdditionalRows[T models.MemberRow](rows []*Row[T]) map[int]bool {
	groups := make(map[string][]*Row[T])
	for _, row := range rows {
		key := strings.ToLower(strings.Join([]string{
			strings.TrimSpace(row.Value.GetID()),
			strings.TrimSpace(row.Value.GetOuterID()),
			strings.TrimSpace(row.Value.DisplayName()),
		}, "|"))
		groups[key] = append(groups[key], row)
	}
	orphans := make(map[int]bool)
	for _, group := range groups {
		anchored := false
		for _, row := range group {
			if !row.Value.IsAdditionalLine() {
				anchored = true
				break
			}
		}
		if !anchored {
			for _, row := range group {
				if row.Value.IsAdditionalLine() {
					orphans[row.Number] = true
				}
			}
		}
	}
	return orphans
}

// loadReferenceData fills the country and region lookups for the
// country codes the batch references.
func loadReferenceData(refs ReferenceStore, ctx *BatchContext, countryCodes []string) error {
	countries, err := refs.GetCountries()
	if err != nil {
		return fmt.Errorf("load countries: %w", err)
	}
	ctx.Countries = make(map[string]models.Country, len(countries))
	for _, c := range countries {
		ctx.Countries[strings.ToUpper(c.Code)] = c
	}
	ctx.Regions = make(map[string]map[string]models.Region)
	for _, code := range countryCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || ctx.Regions[code] != nil {
			continue
		}
		if _, known := ctx.Countries[code]; !known {
			continue
		}
		regions, err := refs.GetRegions(code)
		if err != nil {
			return fmt.Errorf("load regions for %s: %w", code, err)
		}
		byID := make(map[string]models.Region, len(regions))
		for _, r := range regions {
			byID[strings.ToUpper(r.ID)] = r
		}
		ctx.Regions[code] = byID
	}
	return nil
}

// loadProperties fills the dynamic property metadata and dictionary
// item lookups for one object type.
func loadProperties(props PropertyStore, ctx *BatchContext, objectType string) error {
	properties, err := props.GetProperties(objectType)
	if err != nil {
		return fmt.Errorf("load properties: %w", err)
	}
	ctx.Properties = make(map[string]models.DynamicProperty, len(properties))
	ctx.DictionaryItems = make(map[string]map[string]bool)
	for _, p := range properties {
		name := strings.ToLower(p.Name)
		ctx.Properties[name] = p
		if !p.IsDictionary {
			continue
		}
		items, err := props.GetDictionaryItems(p.ID)
		if err != nil {
			return fmt.Errorf("load dictionary items for %s: %w", p.Name, err)
		}
		ids := make(map[string]bool, len(items))
		for _, item := range items {
			ids[strings.ToLower(item.ID)] = true
		}
		ctx.DictionaryItems[name] = ids
	}
	return nil
}

func checkLength(violations []Violation, row int, column, value string, limit int) []Violation {
	if len([]rune(value)) > limit {
		violations = append(violations, violation(CodeExceedingMaxLength, row, map[string]string{
			"column": column,
			"limit":  fmt.Sprintf("%d", limit),
		}))
	}
	return violations
}

func checkListLength(violations []Violation, row int, column string, values []string, limit int) []Violation {
	for _, v := range values {
		if len([]rune(v)) > limit {
			violations = append(violations, violation(CodeArrayValueExceedsLength, row, map[string]string{
				"column": column,
				"limit":  fmt.Sprintf("%d", limit),
			}))
			break
		}
	}
	return violations
}
