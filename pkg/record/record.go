// Package record provides the untyped key-value records returned by the Canvas API.
//
// Canvas responses carry no schema guarantees, so every field is read through an
// accessor that falls back to a default when the key is missing, null, or of an
// unexpected type. Records are decoded once and never mutated afterwards.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a single JSON object from an API response.
type Record map[string]any

// Decode parses a JSON document. Numbers are kept as json.Number so that large
// integer ids survive untouched.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// FromValue converts a decoded JSON value to a Record.
// It reports false when the value is not a JSON object.
func FromValue(v any) (Record, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Has reports whether key is present, even if its value is null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the string value of key, or def.
func (r Record) String(key, def string) string {
	s, ok := r[key].(string)
	if !ok {
		return def
	}
	return s
}

// Int returns the integer value of key.
// Strings holding an integer are accepted because some Canvas ids arrive quoted.
func (r Record) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Bool returns the boolean value of key, or def.
func (r Record) Bool(key string, def bool) bool {
	b, ok := r[key].(bool)
	if !ok {
		return def
	}
	return b
}

// Object returns the nested object at key. A missing or non-object value
// yields an empty Record, so lookups can be chained.
func (r Record) Object(key string) Record {
	nested, ok := FromValue(r[key])
	if !ok {
		return Record{}
	}
	return nested
}
