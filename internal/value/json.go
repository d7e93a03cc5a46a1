package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Unmarshal decodes a JSON document whose top level must be an object.
// Numbers are decoded through json.Number so large integers keep precision
// until they are converted to Number.
func Unmarshal(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload must be a JSON object, got %T", raw)
	}
	return ObjectFromMap(m)
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
// Undefined entries are skipped, the way JSON.stringify drops them.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	for _, k := range obj.SortedKeys() {
		if _, undefined := obj[k].(Undefined); undefined {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Marshal(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Marshal encodes a Value as JSON. Undefined inside a list encodes as null,
// as do NaN and ±Inf. Func values cannot be encoded.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Undefined, Null:
		return []byte("null"), nil
	case Bool:
		return json.Marshal(bool(val))
	case Number:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return []byte("null"), nil
		}
		return json.Marshal(float64(val))
	case String:
		return json.Marshal(string(val))
	case List:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	case Opaque:
		return json.Marshal(val.V)
	case Func:
		return nil, fmt.Errorf("function values cannot be encoded as JSON")
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}
