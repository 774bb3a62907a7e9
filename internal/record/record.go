// Package record holds vendor-provided JSON objects that are passed through
// without imposing a schema on them.
package record

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// Record is one raw JSON object as received from a vendor or read from a
// mapping file.
type Record json.RawMessage

var errNotObject = errors.New("record: not a JSON object")

func (r Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *Record) UnmarshalJSON(b []byte) error {
	if r == nil {
		return errors.New("record: UnmarshalJSON on nil pointer")
	}
	*r = append((*r)[0:0], b...)
	return nil
}

// Field returns the string rendering of a top-level field. Numbers keep their
// literal text. Missing and null fields report ok=false.
func (r Record) Field(key string) (string, bool) {
	res := r.lookup(key)
	if !res.Exists() || res.Type == gjson.Null {
		return "", false
	}
	return res.String(), true
}

// lookup matches key literally; vendor field names may contain characters
// that gjson paths treat as syntax.
func (r Record) lookup(key string) gjson.Result {
	var out gjson.Result
	doc := gjson.ParseBytes(r)
	if !doc.IsObject() {
		return out
	}
	doc.ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			out = v
			return false
		}
		return true
	})
	return out
}

// Equals reports whether the field is present and renders exactly as want.
func (r Record) Equals(key, want string) bool {
	v, ok := r.Field(key)
	return ok && v == want
}

// ParseArray splits a JSON array of objects into records. A null document
// yields an empty slice.
func ParseArray(b []byte) ([]Record, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.New("record: invalid JSON")
	}

	doc := gjson.ParseBytes(b)
	if doc.Type == gjson.Null {
		return []Record{}, nil
	}
	if !doc.IsArray() {
		return nil, errors.New("record: expected a JSON array")
	}

	out := make([]Record, 0, 64)
	var err error
	doc.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			err = errNotObject
			return false
		}
		out = append(out, Record(v.Raw))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
