package pass

import "strings"

// TransitType is the kind of transit of a boarding pass.
type TransitType string

const (
	TransitAir     TransitType = "PKTransitTypeAir"
	TransitBoat    TransitType = "PKTransitTypeBoat"
	TransitBus     TransitType = "PKTransitTypeBus"
	TransitGeneric TransitType = "PKTransitTypeGeneric"
	TransitTrain   TransitType = "PKTransitTypeTrain"
)

// pass.json keys of the five styles.
const (
	keyBoardingPass = "boardingPass"
	keyCoupon       = "coupon"
	keyEventTicket  = "eventTicket"
	keyGeneric      = "generic"
	keyStoreCard    = "storeCard"
)

// Style is the active style of a pass. It is implemented only by BoardingPass,
// Coupon, EventTicket, Generic and StoreCard.
type Style interface {
	// Key is the pass.json key holding the style's structure.
	Key() string
	// Fields returns the field groups of the style.
	Fields() Structure

	sealed()
}

// Structure partitions the fields of a pass into the areas they are shown in.
type Structure struct {
	HeaderFields    []Field `json:"headerFields"`
	PrimaryFields   []Field `json:"primaryFields"`
	SecondaryFields []Field `json:"secondaryFields"`
	AuxiliaryFields []Field `json:"auxiliaryFields"`
	BackFields      []Field `json:"backFields"`
}

// Fields implements Style for every variant embedding Structure.
func (s Structure) Fields() Structure {
	return s
}

func (Structure) sealed() {}

func (s Structure) object() *object {
	return new(object).
		setUnless(len(s.HeaderFields) == 0, "headerFields", s.HeaderFields).
		setUnless(len(s.PrimaryFields) == 0, "primaryFields", s.PrimaryFields).
		setUnless(len(s.SecondaryFields) == 0, "secondaryFields", s.SecondaryFields).
		setUnless(len(s.AuxiliaryFields) == 0, "auxiliaryFields", s.AuxiliaryFields).
		setUnless(len(s.BackFields) == 0, "backFields", s.BackFields)
}

// BoardingPass is the only style carrying a transit type.
type BoardingPass struct {
	Structure

	TransitType TransitType
}

// Key implements Style.
func (BoardingPass) Key() string { return keyBoardingPass }

// Coupon style.
type Coupon struct{ Structure }

// Key implements Style.
func (Coupon) Key() string { return keyCoupon }

// EventTicket style.
type EventTicket struct{ Structure }

// Key implements Style.
func (EventTicket) Key() string { return keyEventTicket }

// Generic style.
type Generic struct{ Structure }

// Key implements Style.
func (Generic) Key() string { return keyGeneric }

// StoreCard style.
type StoreCard struct{ Structure }

// Key implements Style.
func (StoreCard) Key() string { return keyStoreCard }

// styleObject encodes the structure of s, adding the transit type for boarding passes.
func styleObject(s Style) *object {
	o := s.Fields().object()
	if boarding, ok := s.(BoardingPass); ok {
		o.set("transitType", boarding.TransitType)
	}

	return o
}

// styleWire is the decoded structure of any style.
type styleWire struct {
	Structure

	TransitType TransitType `json:"transitType"`
}

// styles holds the raw structures found under each style key while decoding.
type styles struct {
	BoardingPass *styleWire `json:"boardingPass"`
	Coupon       *styleWire `json:"coupon"`
	EventTicket  *styleWire `json:"eventTicket"`
	Generic      *styleWire `json:"generic"`
	StoreCard    *styleWire `json:"storeCard"`
}

// resolve returns the single style present. A missing style decodes as Generic.
// A transit type under any style but boardingPass is dropped.
func (s styles) resolve() (Style, error) {
	var (
		found []Style
		keys  []string
	)

	if s.BoardingPass != nil {
		found = append(found, BoardingPass{Structure: s.BoardingPass.Structure, TransitType: s.BoardingPass.TransitType})
		keys = append(keys, keyBoardingPass)
	}

	if s.Coupon != nil {
		found = append(found, Coupon{s.Coupon.Structure})
		keys = append(keys, keyCoupon)
	}

	if s.EventTicket != nil {
		found = append(found, EventTicket{s.EventTicket.Structure})
		keys = append(keys, keyEventTicket)
	}

	if s.Generic != nil {
		found = append(found, Generic{s.Generic.Structure})
		keys = append(keys, keyGeneric)
	}

	if s.StoreCard != nil {
		found = append(found, StoreCard{s.StoreCard.Structure})
		keys = append(keys, keyStoreCard)
	}

	switch len(found) {
	case 0:
		return Generic{}, nil
	case 1:
		return found[0], nil
	default:
		return nil, &MultipleStylesError{Keys: keys}
	}
}

// MultipleStylesError is returned when a definition carries more than one style key.
type MultipleStylesError struct {
	// Keys lists the style keys found.
	Keys []string
}

// Error implements error.
func (e *MultipleStylesError) Error() string {
	return "pass defines more than one style: " + strings.Join(e.Keys, ", ")
}
