package pass

// normalize folds explicit default values into the form decoding produces, so
// that a definition and its decoded encoding compare equal.
func (p *Pass) normalize() {
	if p.FormatVersion == 0 {
		p.FormatVersion = FormatVersion
	}

	if p.Style == nil {
		p.Style = Generic{}
	}

	p.AssociatedStoreIdentifiers = nilIfEmpty(p.AssociatedStoreIdentifiers)
	p.Beacons = nilIfEmpty(p.Beacons)
	p.Locations = nilIfEmpty(p.Locations)

	if len(p.UserInfo) == 0 {
		p.UserInfo = nil
	}

	if p.Visual != nil {
		p.Visual.Barcodes = nilIfEmpty(p.Visual.Barcodes)

		for i := range p.Visual.Barcodes {
			if p.Visual.Barcodes[i].MessageEncoding == "" {
				p.Visual.Barcodes[i].MessageEncoding = DefaultMessageEncoding
			}
		}

		if p.Visual.isZero() {
			p.Visual = nil
		}
	}

	p.Style = normalizeStyle(p.Style)
}

func normalizeStyle(s Style) Style {
	switch v := s.(type) {
	case BoardingPass:
		v.Structure = v.normalize()

		return v
	case Coupon:
		return Coupon{v.normalize()}
	case EventTicket:
		return EventTicket{v.normalize()}
	case Generic:
		return Generic{v.normalize()}
	case StoreCard:
		return StoreCard{v.normalize()}
	default:
		return s
	}
}

// normalize expects fields the structure owns exclusively.
func (s Structure) normalize() Structure {
	groups := []*[]Field{&s.HeaderFields, &s.PrimaryFields, &s.SecondaryFields, &s.AuxiliaryFields, &s.BackFields}

	for _, group := range groups {
		*group = nilIfEmpty(*group)

		for i := range *group {
			f := &(*group)[i]

			if f.Date != nil && *f.Date == (FieldDate{}) {
				f.Date = nil
			}

			if f.Number != nil && *f.Number == (FieldNumber{}) {
				f.Number = nil
			}
		}
	}

	return s
}

func (v *VisualAppearance) isZero() bool {
	return len(v.Barcodes) == 0 && v.BackgroundColor == "" && v.ForegroundColor == "" &&
		v.GroupingIdentifier == "" && v.LabelColor == "" && v.LogoText == "" && !v.SuppressStripShine
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}

	return s
}
