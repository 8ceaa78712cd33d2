// Package record holds the ordered key/value rows that flow between the API
// client, the table store and the transforms.
//
// A Record keeps its keys in insertion order so that table columns can follow
// the key order of the source JSON. Values are one of nil, int64, float64,
// bool, string, Record or []any.
package record

import (
	"fmt"
	"time"
)

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value any
}

// Record is an ordered JSON-like object. The zero value is an empty record.
type Record struct {
	fields []Field
	index  map[string]int
}

// New builds a record from fields, normalizing each value. A repeated key
// keeps its first position and takes the last value.
func New(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Key, f.Value)
	}
	return r
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Keys returns the keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.index[key]
	return ok
}

// Set stores value under key. Existing keys keep their position, new keys are
// appended.
func (r *Record) Set(key string, value any) {
	value = Normalize(value)
	if i, ok := r.index[key]; ok {
		r.fields[i].Value = value
		return
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	r.index[key] = len(r.fields)
	r.fields = append(r.fields, Field{Key: key, Value: value})
}

// Delete removes key and returns the value it held.
func (r *Record) Delete(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	value := r.fields[i].Value
	r.fields = append(r.fields[:i], r.fields[i+1:]...)
	delete(r.index, key)
	for j := i; j < len(r.fields); j++ {
		r.index[r.fields[j].Key] = j
	}
	return value, true
}

// Rename moves the value under from to a new key appended at the end.
func (r *Record) Rename(from, to string) bool {
	value, ok := r.Delete(from)
	if !ok {
		return false
	}
	r.Delete(to)
	r.Set(to, value)
	return true
}

// Clone returns a shallow copy that can be mutated independently.
func (r Record) Clone() Record {
	out := Record{fields: make([]Field, len(r.fields))}
	copy(out.fields, r.fields)
	if r.index != nil {
		out.index = make(map[string]int, len(r.index))
		for k, v := range r.index {
			out.index[k] = v
		}
	}
	return out
}

// String renders the record as JSON, for logs and test failures.
func (r Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("record(%v)", r.fields)
	}
	return string(b)
}

// Normalize maps Go values onto the value set a Record carries. Integer kinds
// become int64, float32 becomes float64, byte slices become strings and
// *Record is dereferenced. Values outside the set are returned unchanged.
func Normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case *Record:
		if t == nil {
			return nil
		}
		return *t
	case map[string]any:
		return fromMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case time.Time:
		return t
	default:
		return v
	}
}

// fromMap converts an unordered map; keys land in map iteration order, so it
// is only meant for values the caller did not decode from JSON.
func fromMap(m map[string]any) Record {
	var r Record
	for k, v := range m {
		r.Set(k, v)
	}
	return r
}
