package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// EntityData is the schemaless document part of a hybrid entity. It is
// stored as a single jsonb column and validated against the tenant's
// form definition before writes.
type EntityData map[string]interface{}

// Value implements driver.Valuer
func (d EntityData) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *EntityData) Scan(value interface{}) error {
	return scanJSON(value, d)
}

// Clone returns a shallow copy so callers can mutate without aliasing
// the stored document.
func (d EntityData) Clone() EntityData {
	if d == nil {
		return nil
	}
	out := make(EntityData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// FieldOption is one choice of a select/multi_select/radio field
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// FieldOptions is a jsonb-stored option list
type FieldOptions []FieldOption

// Value implements driver.Valuer
func (o FieldOptions) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan implements sql.Scanner
func (o *FieldOptions) Scan(value interface{}) error {
	return scanJSON(value, o)
}

// Values returns the raw option values for membership checks
func (o FieldOptions) Values() []string {
	out := make([]string, 0, len(o))
	for _, opt := range o {
		out = append(out, opt.Value)
	}
	return out
}

// ValidationRules constrains values of a single field
type ValidationRules struct {
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// Value implements driver.Valuer
func (r ValidationRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner
func (r *ValidationRules) Scan(value interface{}) error {
	return scanJSON(value, r)
}

// IsZero reports whether no rule is set
func (r ValidationRules) IsZero() bool {
	return r.Min == nil && r.Max == nil && r.MinLength == nil && r.MaxLength == nil && r.Pattern == ""
}

// FormField is one field descriptor inside a form section
type FormField struct {
	Name            string          `json:"name"`
	Label           string          `json:"label"`
	FieldType       FieldType       `json:"field_type"`
	IsRequired      bool            `json:"is_required"`
	IsUnique        bool            `json:"is_unique,omitempty"`
	IsSystem        bool            `json:"is_system,omitempty"`
	DefaultValue    string          `json:"default_value,omitempty"`
	Placeholder     string          `json:"placeholder,omitempty"`
	HelpText        string          `json:"help_text,omitempty"`
	Options         FieldOptions    `json:"options,omitempty"`
	ValidationRules ValidationRules `json:"validation_rules,omitempty"`
	DisplayOrder    int             `json:"display_order"`
}

// FormSection groups fields for presentation
type FormSection struct {
	Title   string      `json:"title"`
	Columns int         `json:"columns"`
	Fields  []FormField `json:"fields"`
}

// FormSections is the jsonb-stored body of a form definition
type FormSections []FormSection

// Value implements driver.Valuer
func (s FormSections) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(FormSections{})
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *FormSections) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Fields flattens all sections into a single field list
func (s FormSections) Fields() []FormField {
	var out []FormField
	for _, sec := range s {
		out = append(out, sec.Fields...)
	}
	return out
}

// FieldByName looks up a field descriptor across all sections
func (s FormSections) FieldByName(name string) (FormField, bool) {
	for _, sec := range s {
		for _, f := range sec.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return FormField{}, false
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
