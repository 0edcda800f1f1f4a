package pass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errUnsupportedValue = errors.New("field value must be a string or a number")
	errNonFiniteValue   = errors.New("field value must be a finite number")
	errUnknownAlignment = errors.New("unknown text alignment")
)

// ValueKind tags the active member of a Value.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueInteger
	ValueFloat
)

// Value is the value of a field: text, an integer or a floating-point number.
// The zero Value is empty text.
type Value struct {
	kind    ValueKind
	text    string
	integer int64
	float   float64
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: ValueText, text: s}
}

// Int returns an integer value.
func Int(i int64) Value {
	return Value{kind: ValueInteger, integer: i}
}

// Float returns a floating-point value.
func Float(f float64) Value {
	return Value{kind: ValueFloat, float: f}
}

// Kind reports which member is active.
func (v Value) Kind() ValueKind {
	return v.kind
}

// String renders the value in its native textual form.
func (v Value) String() string {
	switch v.kind {
	case ValueInteger:
		return strconv.FormatInt(v.integer, 10)
	case ValueFloat:
		return formatFloat(v.float)
	default:
		return v.text
	}
}

// MarshalJSON encodes text as a JSON string and numbers as JSON numbers.
// Floats always carry a fraction or exponent so they decode as floats again.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueInteger:
		return []byte(strconv.FormatInt(v.integer, 10)), nil
	case ValueFloat:
		if math.IsNaN(v.float) || math.IsInf(v.float, 0) {
			return nil, errNonFiniteValue
		}

		return []byte(formatFloat(v.float)), nil
	default:
		return marshalValue(v.text)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}

		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*v = Text(s)

		return nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		return v.unmarshalNumber(string(data))
	default:
		return fmt.Errorf("%w: %s", errUnsupportedValue, data)
	}
}

func (v *Value) unmarshalNumber(s string) error {
	if !strings.ContainsAny(s, ".eE") {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			*v = Int(i)

			return nil
		}

		if !errors.Is(err, strconv.ErrRange) {
			return fmt.Errorf("parse integer value: %w", err)
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parse float value: %w", err)
	}

	*v = Float(f)

	return nil
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// TextAlignment is the alignment of a field's contents. The zero value is natural.
type TextAlignment uint8

const (
	AlignNatural TextAlignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

//nolint:gochecknoglobals // Read-only lookup table.
var alignmentNames = map[TextAlignment]string{
	AlignNatural: "PKTextAlignmentNatural",
	AlignLeft:    "PKTextAlignmentLeft",
	AlignCenter:  "PKTextAlignmentCenter",
	AlignRight:   "PKTextAlignmentRight",
}

// IsNatural reports whether a is the default alignment.
func (a TextAlignment) IsNatural() bool {
	return a == AlignNatural
}

// String implements fmt.Stringer.
func (a TextAlignment) String() string {
	return alignmentNames[a]
}

// MarshalJSON implements json.Marshaler.
func (a TextAlignment) MarshalJSON() ([]byte, error) {
	name, ok := alignmentNames[a]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errUnknownAlignment, a)
	}

	return marshalValue(name)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *TextAlignment) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	for alignment, known := range alignmentNames {
		if known == name {
			*a = alignment

			return nil
		}
	}

	return fmt.Errorf("%w: %q", errUnknownAlignment, name)
}

// DataDetectorType is a data detector applied to a back field's value.
type DataDetectorType string

const (
	DetectPhoneNumber   DataDetectorType = "PKDataDetectorTypePhoneNumber"
	DetectLink          DataDetectorType = "PKDataDetectorTypeLink"
	DetectAddress       DataDetectorType = "PKDataDetectorTypeAddress"
	DetectCalendarEvent DataDetectorType = "PKDataDetectorTypeCalendarEvent"
)

// DateTimeStyle is the style used to render a date or a time.
type DateTimeStyle string

const (
	DateStyleNone   DateTimeStyle = "PKDateStyleNone"
	DateStyleShort  DateTimeStyle = "PKDateStyleShort"
	DateStyleMedium DateTimeStyle = "PKDateStyleMedium"
	DateStyleLong   DateTimeStyle = "PKDateStyleLong"
	DateStyleFull   DateTimeStyle = "PKDateStyleFull"
)

// FieldDate formats a field value as a date. Its keys are flattened into the field.
type FieldDate struct {
	DateStyle       DateTimeStyle
	TimeStyle       DateTimeStyle
	IgnoresTimeZone bool
	IsRelative      bool
}

func (d *FieldDate) object() *object {
	o := new(object)
	if d == nil {
		return o
	}

	return o.
		setUnless(d.DateStyle == "", "dateStyle", d.DateStyle).
		setUnless(!d.IgnoresTimeZone, "ignoresTimeZone", d.IgnoresTimeZone).
		setUnless(!d.IsRelative, "isRelative", d.IsRelative).
		setUnless(d.TimeStyle == "", "timeStyle", d.TimeStyle)
}

// NumberStyle is the style used to render a numeric value.
type NumberStyle string

const (
	NumberStyleDecimal    NumberStyle = "PKNumberStyleDecimal"
	NumberStylePercent    NumberStyle = "PKNumberStylePercent"
	NumberStyleScientific NumberStyle = "PKNumberStyleScientific"
	NumberStyleSpellOut   NumberStyle = "PKNumberStyleSpellOut"
)

// FieldNumber formats a field value as a number or currency amount.
// Its keys are flattened into the field.
type FieldNumber struct {
	CurrencyCode string
	NumberStyle  NumberStyle
}

func (n *FieldNumber) object() *object {
	o := new(object)
	if n == nil {
		return o
	}

	return o.
		setUnless(n.CurrencyCode == "", "currencyCode", n.CurrencyCode).
		setUnless(n.NumberStyle == "", "numberStyle", n.NumberStyle)
}

// Field is one key/value entry displayed on a pass.
type Field struct {
	// Key must be unique within the pass.
	Key   string `json:"key"`
	Label string `json:"label"`
	// ChangeMessage is shown when the value changes; it must contain %@.
	ChangeMessage   string `json:"changeMessage"`
	AttributedValue string `json:"attributedValue"`
	// DataDetectorTypes is omitted when nil; an empty non-nil slice disables all detectors.
	DataDetectorTypes []DataDetectorType `json:"dataDetectorTypes"`
	TextAlignment     TextAlignment      `json:"textAlignment"`
	Value             Value              `json:"value"`
	// Date and Number are independent optional formatting blocks.
	Date   *FieldDate   `json:"-"`
	Number *FieldNumber `json:"-"`
}

// NewField returns a field with a key, a label and a value.
func NewField(key, label string, value Value) Field {
	return Field{
		Key:   key,
		Label: label,
		Value: value,
	}
}

// WithChangeMessage returns a copy of f with the change message set.
func (f Field) WithChangeMessage(message string) Field {
	f.ChangeMessage = message

	return f
}

// WithAlignment returns a copy of f with the alignment set.
func (f Field) WithAlignment(alignment TextAlignment) Field {
	f.TextAlignment = alignment

	return f
}

// WithDate returns a copy of f with a date formatting block.
func (f Field) WithDate(date FieldDate) Field {
	f.Date = &date

	return f
}

// WithNumber returns a copy of f with a number formatting block.
func (f Field) WithNumber(number FieldNumber) Field {
	f.Number = &number

	return f
}

// MarshalJSON implements json.Marshaler.
func (f Field) MarshalJSON() ([]byte, error) {
	o := new(object).
		set("key", f.Key).
		setUnless(f.Label == "", "label", f.Label).
		set("value", f.Value).
		setUnless(f.AttributedValue == "", "attributedValue", f.AttributedValue).
		setUnless(f.ChangeMessage == "", "changeMessage", f.ChangeMessage).
		setUnless(f.DataDetectorTypes == nil, "dataDetectorTypes", f.DataDetectorTypes).
		setUnless(f.TextAlignment.IsNatural(), "textAlignment", f.TextAlignment).
		merge(f.Date.object()).
		merge(f.Number.object())

	return o.MarshalJSON()
}

// fieldFormatting holds the flattened date and number keys of a field.
type fieldFormatting struct {
	DateStyle       DateTimeStyle `json:"dateStyle"`
	TimeStyle       DateTimeStyle `json:"timeStyle"`
	IgnoresTimeZone *bool         `json:"ignoresTimeZone"`
	IsRelative      *bool         `json:"isRelative"`
	CurrencyCode    string        `json:"currencyCode"`
	NumberStyle     NumberStyle   `json:"numberStyle"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var formatting fieldFormatting
	if err := json.Unmarshal(data, &formatting); err != nil {
		return err
	}

	*f = Field(decoded)

	if formatting.DateStyle != "" || formatting.TimeStyle != "" ||
		formatting.IgnoresTimeZone != nil || formatting.IsRelative != nil {
		f.Date = &FieldDate{
			DateStyle:       formatting.DateStyle,
			TimeStyle:       formatting.TimeStyle,
			IgnoresTimeZone: formatting.IgnoresTimeZone != nil && *formatting.IgnoresTimeZone,
			IsRelative:      formatting.IsRelative != nil && *formatting.IsRelative,
		}
	}

	if formatting.CurrencyCode != "" || formatting.NumberStyle != "" {
		f.Number = &FieldNumber{
			CurrencyCode: formatting.CurrencyCode,
			NumberStyle:  formatting.NumberStyle,
		}
	}

	return nil
}
