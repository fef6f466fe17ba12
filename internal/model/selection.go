package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Selection is a decoded multi-select value. A stored value is either
// Structured (a JSON array of strings) or Raw (anything else, kept verbatim
// so rows from older writers stay readable). The zero value means absent.
type Selection struct {
	values []string
	raw    string
	kind   selectionKind
}

type selectionKind uint8

const (
	selectionAbsent selectionKind = iota
	selectionStructured
	selectionRaw
)

// Structured wraps an ordered list of selected options.
func Structured(values []string) Selection {
	if values == nil {
		values = []string{}
	}
	return Selection{values: values, kind: selectionStructured}
}

// Raw wraps a stored value that did not decode as a list.
func Raw(value string) Selection {
	return Selection{raw: value, kind: selectionRaw}
}

// ParseSelection decodes a stored value, degrading to Raw on any parse failure.
func ParseSelection(stored string) Selection {
	var values []string
	if err := json.Unmarshal([]byte(stored), &values); err != nil || values == nil {
		return Raw(stored)
	}
	return Structured(values)
}

// IsAbsent reports whether no value was stored.
func (s Selection) IsAbsent() bool { return s.kind == selectionAbsent }

// Values returns the options and true when the selection is structured.
func (s Selection) Values() ([]string, bool) {
	if s.kind != selectionStructured {
		return nil, false
	}
	return s.values, true
}

// RawValue returns the verbatim stored text and true when the selection is raw.
func (s Selection) RawValue() (string, bool) {
	if s.kind != selectionRaw {
		return "", false
	}
	return s.raw, true
}

// Value implements driver.Valuer. Structured values are stored as a JSON array.
func (s Selection) Value() (driver.Value, error) {
	switch s.kind {
	case selectionStructured:
		b, err := json.Marshal(s.values)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case selectionRaw:
		return s.raw, nil
	default:
		return nil, nil
	}
}

// Scan implements sql.Scanner. It never fails on malformed content.
func (s *Selection) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = Selection{}
	case string:
		*s = ParseSelection(v)
	case []byte:
		*s = ParseSelection(string(v))
	default:
		return fmt.Errorf("unsupported multi-select column type %T", src)
	}
	return nil
}

// MarshalJSON renders structured values as an array, raw values as a string
// and absent values as null.
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case selectionStructured:
		return json.Marshal(s.values)
	case selectionRaw:
		return json.Marshal(s.raw)
	default:
		return []byte("null"), nil
	}
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Selection{}
		return nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err == nil {
		*s = Structured(values)
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("multi-select must be a list of strings or a string: %w", err)
	}
	*s = Raw(raw)
	return nil
}
