package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the JSON type of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

var errInvalidJSON = errors.New("invalid JSON document")

// Value is an opaque JSON document as stored by the document store.
// The store never interprets it; callers decode into their own types and normalize on read.
type Value struct {
	raw json.RawMessage
}

// ParseValue validates data as a single JSON value.
func ParseValue(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return Value{}, errInvalidJSON
	}
	raw := make(json.RawMessage, len(trimmed))
	copy(raw, trimmed)
	return Value{raw: raw}, nil
}

// NewValue serializes v into a Value.
func NewValue(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("encoding document: %w", err)
	}
	return Value{raw: data}, nil
}

// MustValue is NewValue for values that are known to serialize.
func MustValue(v any) Value {
	val, err := NewValue(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind {
	if len(v.raw) == 0 {
		return KindInvalid
	}
	switch c := v.raw[0]; {
	case c == 'n':
		return KindNull
	case c == 't' || c == 'f':
		return KindBool
	case c == '"':
		return KindString
	case c == '[':
		return KindArray
	case c == '{':
		return KindObject
	case c == '-' || (c >= '0' && c <= '9'):
		return KindNumber
	default:
		return KindInvalid
	}
}

// IsZero reports whether v holds no document at all.
func (v Value) IsZero() bool {
	return len(v.raw) == 0
}

// Decode unmarshals the value into dest.
func (v Value) Decode(dest any) error {
	if v.IsZero() {
		return errInvalidJSON
	}
	return json.Unmarshal(v.raw, dest)
}

// Bytes returns the compact JSON encoding.
func (v Value) Bytes() []byte {
	return v.raw
}

// Indent returns the document pretty-printed with two-space indentation.
func (v Value) Indent() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, v.raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsZero() {
		return []byte("null"), nil
	}
	return v.raw, nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
