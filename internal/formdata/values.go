// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package formdata

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// Field is one name with all of its submitted values.
type Field struct {
	Name   string
	Values []string
}

// Values is an ordered multi-valued mapping of field names to values.
// Names keep the order of their first occurrence; values under a name keep
// the order in which they were added.
type Values struct {
	keys []string
	m    map[string][]string
}

// NewValues returns an empty Values.
func NewValues() *Values {
	return &Values{m: make(map[string][]string)}
}

// Add appends value under name.
func (v *Values) Add(name, value string) {
	if _, ok := v.m[name]; !ok {
		v.keys = append(v.keys, name)
	}
	v.m[name] = append(v.m[name], value)
}

// Get returns the first value for name, or "" if there is none.
func (v *Values) Get(name string) string {
	if vs := v.m[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// List returns a copy of all values for name.
func (v *Values) List(name string) []string {
	vs, ok := v.m[name]
	if !ok {
		return nil
	}
	return append([]string(nil), vs...)
}

// Has reports whether name is present.
func (v *Values) Has(name string) bool {
	_, ok := v.m[name]
	return ok
}

// Keys returns the names in first-occurrence order.
func (v *Values) Keys() []string {
	return append([]string(nil), v.keys...)
}

// Len returns the number of distinct names.
func (v *Values) Len() int {
	return len(v.keys)
}

// Lists returns every name with its values, in order.
func (v *Values) Lists() []Field {
	out := make([]Field, 0, len(v.keys))
	for _, k := range v.keys {
		out = append(out, Field{Name: k, Values: v.List(k)})
	}
	return out
}

// URLValues converts to url.Values, losing name order.
func (v *Values) URLValues() url.Values {
	out := make(url.Values, len(v.keys))
	for _, k := range v.keys {
		out[k] = v.List(k)
	}
	return out
}

// Encode returns the values in application/x-www-form-urlencoded form,
// keeping name order.
func (v *Values) Encode() string {
	var b strings.Builder
	for _, k := range v.keys {
		key := url.QueryEscape(k)
		for _, val := range v.m[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// MarshalJSON encodes the values as a JSON object of string arrays in name order.
func (v *Values) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range v.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vals, err := json.Marshal(v.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
