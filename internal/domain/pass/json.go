package pass

import (
	"bytes"
	"encoding/json"
)

// member is one key of an encoded JSON object.
type member struct {
	key   string
	value any
}

// object is a JSON object encoded with keys in insertion order.
type object struct {
	members []member
}

// set adds key unconditionally.
func (o *object) set(key string, value any) *object {
	o.members = append(o.members, member{key: key, value: value})

	return o
}

// setUnless adds key only when the value is not at its default.
func (o *object) setUnless(isDefault bool, key string, value any) *object {
	if isDefault {
		return o
	}

	return o.set(key, value)
}

// merge appends the members of other, flattening it into o.
func (o *object) merge(other *object) *object {
	if other != nil {
		o.members = append(o.members, other.members...)
	}

	return o
}

// MarshalJSON implements json.Marshaler.
func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, m := range o.members {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := marshalValue(m.key)
		if err != nil {
			return nil, err
		}

		value, err := marshalValue(m.value)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// marshalValue encodes v without HTML escaping; attributed values carry markup.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
