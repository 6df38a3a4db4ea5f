package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// ValueKind enumerates the scalar types an event payload may carry.
type ValueKind int

const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a scalar payload value: a string, a number or a boolean.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

func StringValue(s string) Value  { return Value{kind: KindString, str: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, num: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }

func (v Value) Kind() ValueKind { return v.kind }

// String is the canonical text form used for template substitution.
// Numbers print in plain decimal notation with no trailing zeros, so
// 15.00 becomes "15" and 15.5 becomes "15.5".
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("data value %v is not representable in JSON", v.num)
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	case KindBool:
		return json.Marshal(v.b)
	default:
		return json.Marshal(v.str)
	}
}

// Data is an insertion-ordered map of scalar values.
type Data struct {
	keys   []string
	values map[string]Value
}

// NewData returns an empty payload.
func NewData() Data {
	return Data{values: make(map[string]Value)}
}

func (d Data) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d Data) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

func (d Data) Get(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Set overwrites an existing key in place or appends a new one.
func (d *Data) Set(key string, v Value) {
	if d.values == nil {
		d.values = make(map[string]Value)
	}
	if _, exists := d.values[key]; !exists {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

func (d *Data) SetString(key, s string) { d.Set(key, StringValue(s)) }

func (d Data) Clone() Data {
	out := Data{
		keys:   make([]string, len(d.keys)),
		values: make(map[string]Value, len(d.values)),
	}
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// StringMap flattens the payload into string values, as push data payloads require.
func (d Data) StringMap() map[string]string {
	out := make(map[string]string, len(d.keys))
	for _, k := range d.keys {
		out[k] = d.values[k].String()
	}
	return out
}

func (d Data) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := d.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a flat JSON object. Members that are null are
// dropped; nested objects and arrays are rejected.
func (d *Data) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = NewData()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("data must be a JSON object")
	}

	out := NewData()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("data key must be a string")
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		switch val := valTok.(type) {
		case nil:
			continue
		case string:
			out.Set(key, StringValue(val))
		case bool:
			out.Set(key, BoolValue(val))
		case json.Number:
			f, err := val.Float64()
			if err != nil {
				return fmt.Errorf("data[%q]: %w", key, err)
			}
			out.Set(key, NumberValue(f))
		case json.Delim:
			return fmt.Errorf("data[%q] must be a string, number or boolean", key)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}

// Value stores Data as JSONB.
func (d Data) Value() (driver.Value, error) {
	return d.MarshalJSON()
}

func (d *Data) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = NewData()
		return nil
	case []byte:
		return d.UnmarshalJSON(v)
	case string:
		return d.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Data", src)
	}
}

// DataFrom converts a plain map, used by tests and tools. Keys are added
// in the order given by keys; unsupported value types are skipped.
func DataFrom(keys []string, m map[string]interface{}) Data {
	out := NewData()
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			out.Set(k, StringValue(v))
		case bool:
			out.Set(k, BoolValue(v))
		case int:
			out.Set(k, NumberValue(float64(v)))
		case int64:
			out.Set(k, NumberValue(float64(v)))
		case float64:
			out.Set(k, NumberValue(v))
		}
	}
	return out
}
