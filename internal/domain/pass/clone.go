package pass

import "maps"

// Clone returns a deep copy of p sharing no mutable state with it. Explicit
// defaults, such as empty formatting blocks or an unset barcode encoding, are
// folded into the form Decode produces.
func (p *Pass) Clone() *Pass {
	if p == nil {
		return nil
	}

	c := *p
	c.AssociatedStoreIdentifiers = cloneSlice(p.AssociatedStoreIdentifiers)
	c.UserInfo = maps.Clone(p.UserInfo)
	c.MaxDistance = clonePtr(p.MaxDistance)
	c.Style = cloneStyle(p.Style)
	c.NFC = clonePtr(p.NFC)
	c.WebService = clonePtr(p.WebService)

	if p.Beacons != nil {
		c.Beacons = make([]Beacon, len(p.Beacons))
		for i, b := range p.Beacons {
			b.Major = clonePtr(b.Major)
			b.Minor = clonePtr(b.Minor)
			c.Beacons[i] = b
		}
	}

	if p.Locations != nil {
		c.Locations = make([]Location, len(p.Locations))
		for i, l := range p.Locations {
			l.Altitude = clonePtr(l.Altitude)
			c.Locations[i] = l
		}
	}

	if p.Visual != nil {
		v := *p.Visual
		v.Barcodes = cloneSlice(p.Visual.Barcodes)
		c.Visual = &v
	}

	c.normalize()

	return &c
}

func cloneStyle(s Style) Style {
	switch v := s.(type) {
	case BoardingPass:
		v.Structure = v.clone()

		return v
	case Coupon:
		return Coupon{v.clone()}
	case EventTicket:
		return EventTicket{v.clone()}
	case Generic:
		return Generic{v.clone()}
	case StoreCard:
		return StoreCard{v.clone()}
	default:
		return s
	}
}

func (s Structure) clone() Structure {
	return Structure{
		HeaderFields:    cloneFields(s.HeaderFields),
		PrimaryFields:   cloneFields(s.PrimaryFields),
		SecondaryFields: cloneFields(s.SecondaryFields),
		AuxiliaryFields: cloneFields(s.AuxiliaryFields),
		BackFields:      cloneFields(s.BackFields),
	}
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}

	out := make([]Field, len(fields))
	for i, f := range fields {
		f.DataDetectorTypes = cloneSlice(f.DataDetectorTypes)
		f.Date = clonePtr(f.Date)
		f.Number = clonePtr(f.Number)
		out[i] = f
	}

	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}

	return append(make([]T, 0, len(s)), s...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}

	v := *p

	return &v
}
