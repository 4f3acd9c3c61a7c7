package service

import (
	"strconv"
	"strings"

	"customer-web/internal/models"
)

// validateDynamicProperties type-checks the dynamic property values a
// row carries against the declared property metadata.
func validateDynamicProperties(values []models.DynamicPropertyValue, row int, ctx *BatchContext) []Violation {
	var out []Violation
	for _, value := range values {
		prop, known := ctx.Properties[strings.ToLower(value.PropertyName)]
		if !known {
			continue
		}
		if len(value.Values) == 0 {
			out = append(out, violation(CodeMissingPropertyValue, row, map[string]string{"column": prop.Name}))
			continue
		}
		if !prop.IsArray && len(value.Values) > 1 {
			out = append(out, violation(CodeTooManyPropertyValues, row, map[string]string{"column": prop.Name}))
			continue
		}
		if prop.IsDictionary {
			items := ctx.DictionaryItems[strings.ToLower(prop.Name)]
			for _, v := range value.Values {
				if !items[strings.ToLower(v)] {
					out = append(out, violation(CodeInvalidValue, row, map[string]string{"column": prop.Name}))
					break
				}
			}
			continue
		}
		for _, v := range value.Values {
			if !propertyValueOK(prop.ValueType, v) {
				out = append(out, violation(CodeInvalidValue, row, map[string]string{"column": prop.Name}))
				break
			}
			if prop.ValueType == models.PropertyShortText && len([]rune(v)) > models.ShortTextMaxLength {
				out = append(out, violation(CodeExceedingMaxLength, row, map[string]string{
					"column": prop.Name,
					"limit":  strconv.Itoa(models.ShortTextMaxLength),
				}))
				break
			}
		}
	}
	return out
}

func propertyValueOK(valueType, v string) bool {
	switch valueType {
	case models.PropertyInteger:
		_, err := strconv.Atoi(strings.TrimSpace(v))
		return err == nil
	case models.PropertyDecimal:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil
	case models.PropertyBoolean:
		_, err := parseBoolLiteral(v)
		return err == nil
	case models.PropertyDateTime:
		_, err := parseDateValue(v)
		return err == nil
	default:
		// ShortText and LongText accept any text; ShortText length is
		// checked separately.
		return true
	}
}
