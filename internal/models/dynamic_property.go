package models

import "time"

// Dynamic property value types.
const (
	PropertyShortText = "ShortText"
	PropertyLongText  = "LongText"
	PropertyInteger   = "Integer"
	PropertyDecimal   = "Decimal"
	PropertyBoolean   = "Boolean"
	PropertyDateTime  = "DateTime"
)

// ShortTextMaxLength bounds ShortText dynamic property values.
const ShortTextMaxLength = 512

// DynamicProperty describes a schema-extension column configured at
// runtime for an object type (Contact or Organization).
type DynamicProperty struct {
	ID           int       `db:"id" json:"id"`
	ObjectType   string    `db:"object_type" json:"object_type"`
	Name         string    `db:"name" json:"name"`
	ValueType    string    `db:"value_type" json:"value_type"`
	IsArray      bool      `db:"is_array" json:"is_array"`
	IsDictionary bool      `db:"is_dictionary" json:"is_dictionary"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DictionaryItem is one allowed value of a dictionary-backed property.
type DictionaryItem struct {
	ID         string `db:"id" json:"id"`
	PropertyID int    `db:"property_id" json:"property_id"`
	Name       string `db:"name" json:"name"`
}

// DynamicPropertyValue carries the raw values of one dynamic property on
// a member or an import row. Values are kept as strings; the validation
// pipeline type-checks them against the declared value type, and for
// dictionary-backed properties each value is a dictionary item id.
type DynamicPropertyValue struct {
	PropertyName string   `json:"property_name"`
	ValueType    string   `json:"value_type"`
	IsArray      bool     `json:"is_array"`
	IsDictionary bool     `json:"is_dictionary"`
	Values       []string `json:"values"`
}
