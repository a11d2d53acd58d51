package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSONB column into dst, treating NULL as the zero value
func scanJSON(src any, dst any) error {
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
		return fmt.Errorf("unsupported JSONB source type %T", src)
	}
}

// marshalJSON encodes v as a string so lib/pq sends it as text rather than bytea
func marshalJSON(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Responses holds answers to an event's custom fields, keyed by field key
type Responses map[string]string

func (r Responses) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return marshalJSON(map[string]string(r))
}

func (r *Responses) Scan(src any) error {
	*r = Responses{}
	return scanJSON(src, (*map[string]string)(r))
}

// CustomField is an extra question asked on the RSVP form
type CustomField struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// CustomFields is the JSONB list of custom fields of an event
type CustomFields []CustomField

func (c CustomFields) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	return marshalJSON([]CustomField(c))
}

func (c *CustomFields) Scan(src any) error {
	*c = CustomFields{}
	return scanJSON(src, (*[]CustomField)(c))
}

// StringList is a JSONB array of strings
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return marshalJSON([]string(l))
}

func (l *StringList) Scan(src any) error {
	*l = StringList{}
	return scanJSON(src, (*[]string)(l))
}

// Contains reports whether s is in the list
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
