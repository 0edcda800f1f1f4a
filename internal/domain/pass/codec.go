package pass

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrNilPass is returned when encoding a nil definition.
var ErrNilPass = errors.New("pass is nil")

// Encode returns the canonical pass.json bytes of p: two-space indentation,
// no HTML escaping, defaults omitted, trailing newline.
func Encode(p *Pass) ([]byte, error) {
	if p == nil {
		return nil, ErrNilPass
	}

	return encodeIndented(p)
}

// Decode parses pass.json bytes. Omitted keys take their documented defaults.
func Decode(data []byte) (*Pass, error) {
	p := new(Pass)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	p.normalize()

	return p, nil
}

// EncodePersonalization returns the canonical personalization.json bytes of p.
func EncodePersonalization(p *Personalization) ([]byte, error) {
	if p == nil {
		return nil, ErrNilPass
	}

	return encodeIndented(p)
}

// DecodePersonalization parses personalization.json bytes.
func DecodePersonalization(data []byte) (*Personalization, error) {
	p := new(Personalization)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	return p, nil
}

func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
