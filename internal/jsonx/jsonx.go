// Package jsonx provides JSON primitives that tolerate the shape drift the
// assistant backend exhibits across versions: identifiers that arrive as
// strings or numbers, list fields that arrive as bare scalars, and object
// fields that arrive as null. Decoding a mistyped field yields the zero
// value instead of failing the whole payload; only syntactically invalid
// JSON is an error.
package jsonx

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// String decodes JSON strings, numbers and booleans to a string. Objects,
// arrays and null decode to "".
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = String(v)
	case '{', '[':
		*s = ""
	default:
		// Numbers and booleans keep their literal form.
		*s = String(data)
	}
	return nil
}

// Int decodes JSON numbers and numeric strings to an int. Anything else
// decodes to 0. Fractional values are truncated.
type Int int

// UnmarshalJSON implements json.Unmarshaler.
func (n *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = Int(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Int(f)
	return nil
}

// Bool decodes JSON booleans, the strings "true"/"false", and numbers
// (non-zero is true) to a bool. Anything else decodes to false.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	switch data[0] {
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*b = Bool(v)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = Bool(strings.EqualFold(strings.TrimSpace(s), "true"))
	case '{', '[':
		*b = false
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			*b = false
			return nil
		}
		*b = f != 0
	}
	return nil
}

// StringList decodes a JSON array into []string, coercing each element the
// way String does and skipping elements that coerce to "". A bare scalar
// decodes to a single-element list; null decodes to nil.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] != '[' {
		var s String
		if err := s.UnmarshalJSON(data); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		*l = StringList{string(s)}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s String
		if err := s.UnmarshalJSON(r); err != nil {
			return err
		}
		if s == "" {
			continue
		}
		out = append(out, string(s))
	}
	*l = out
	return nil
}

// Object decodes a JSON object into a map. Null and non-object values
// decode to nil.
type Object map[string]any

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*o = nil
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = m
	return nil
}

// ObjectList decodes a JSON array of objects, skipping elements that are
// not objects. Null and non-array values decode to nil.
type ObjectList []map[string]any

// UnmarshalJSON implements json.Unmarshaler.
func (l *ObjectList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		*l = nil
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		var o Object
		if err := o.UnmarshalJSON(r); err != nil {
			return err
		}
		if o == nil {
			continue
		}
		out = append(out, o)
	}
	*l = out
	return nil
}

// Text returns m[key] coerced to a string the way String coerces scalars.
// Returns "" when the map is nil, the key is absent, or the value is not a
// scalar. Used to pull identifiers out of free-form metadata objects.
func Text(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	return Coerce(m[key])
}

// Coerce converts a decoded scalar JSON value to its string form.
func Coerce(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
