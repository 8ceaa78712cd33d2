package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotObject is returned when a JSON value is expected to be an object.
var ErrNotObject = errors.New("record: JSON value is not an object")

// Decode parses one JSON value, keeping object key order and decoding
// integral numbers as int64 and the rest as float64.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("record: trailing data after JSON value")
	}
	return v, nil
}

// DecodeRecord parses a JSON object.
func DecodeRecord(data []byte) (Record, error) {
	v, err := Decode(data)
	if err != nil {
		return Record{}, err
	}
	r, ok := v.(Record)
	if !ok {
		return Record{}, ErrNotObject
	}
	return r, nil
}

// MustParse decodes a JSON object and panics on error. Intended for fixtures.
func MustParse(s string) Record {
	r, err := DecodeRecord([]byte(s))
	if err != nil {
		panic(fmt.Sprintf("record: MustParse(%q): %v", s, err))
	}
	return r
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeRecord(data)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// MarshalJSON implements json.Marshaler, writing keys in record order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Marshal encodes any record value as compact JSON.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, Normalize(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := encodeScalar(buf, f.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := encodeValue(buf, f.Value); err != nil {
			return fmt.Errorf("record: key %q: %w", f.Key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case Record:
		return t.encode(buf)
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, Normalize(e)); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case time.Time:
		return encodeScalar(buf, t.Format(time.RFC3339Nano))
	default:
		return encodeScalar(buf, t)
	}
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return nil, fmt.Errorf("record: unexpected delimiter %q", t)
	case json.Number:
		return numberValue(t)
	case string, bool, nil:
		return t, nil
	}
	return nil, fmt.Errorf("record: unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Record, error) {
	var r Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("record: object key is %T", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return Record{}, err
		}
		r.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := make([]any, 0)
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func numberValue(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("record: invalid number %q: %w", n, err)
	}
	return f, nil
}
