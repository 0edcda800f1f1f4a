package pass

// Builder accumulates the content of a pass. It never fails: combinations the
// wallet rejects are only detected when the pass is installed.
type Builder struct {
	p         Pass
	structure Structure
}

// NewBuilder starts a pass with its identity.
func NewBuilder(serialNumber, passTypeIdentifier, teamIdentifier string) *Builder {
	return &Builder{
		p: Pass{
			FormatVersion:      FormatVersion,
			SerialNumber:       serialNumber,
			PassTypeIdentifier: passTypeIdentifier,
			TeamIdentifier:     teamIdentifier,
		},
	}
}

// Description sets the accessibility description.
func (b *Builder) Description(description string) *Builder {
	b.p.Description = description

	return b
}

// OrganizationName sets the organization shown on the lock screen.
func (b *Builder) OrganizationName(name string) *Builder {
	b.p.OrganizationName = name

	return b
}

// AppLaunchURL sets the URL passed to the associated app.
func (b *Builder) AppLaunchURL(url string) *Builder {
	b.p.AppLaunchURL = url

	return b
}

// AssociatedStoreIdentifier appends an App Store identifier.
func (b *Builder) AssociatedStoreIdentifier(id int64) *Builder {
	b.p.AssociatedStoreIdentifiers = append(b.p.AssociatedStoreIdentifiers, id)

	return b
}

// UserInfo sets one custom key.
func (b *Builder) UserInfo(key, value string) *Builder {
	if b.p.UserInfo == nil {
		b.p.UserInfo = make(map[string]string)
	}

	b.p.UserInfo[key] = value

	return b
}

// ExpirationDate sets the W3C expiration timestamp.
func (b *Builder) ExpirationDate(date string) *Builder {
	b.p.ExpirationDate = date

	return b
}

// Voided marks the pass as no longer valid.
func (b *Builder) Voided(voided bool) *Builder {
	b.p.Voided = voided

	return b
}

// Beacon appends a relevant beacon.
func (b *Builder) Beacon(beacon Beacon) *Builder {
	b.p.Beacons = append(b.p.Beacons, beacon)

	return b
}

// Location appends a relevant location.
func (b *Builder) Location(location Location) *Builder {
	b.p.Locations = append(b.p.Locations, location)

	return b
}

// MaxDistance sets the relevance radius in meters.
func (b *Builder) MaxDistance(meters uint32) *Builder {
	b.p.MaxDistance = &meters

	return b
}

// RelevantDate sets the W3C relevance timestamp.
func (b *Builder) RelevantDate(date string) *Builder {
	b.p.RelevantDate = date

	return b
}

// Barcode appends a barcode to the visual appearance.
func (b *Builder) Barcode(barcode Barcode) *Builder {
	b.visual().Barcodes = append(b.visual().Barcodes, barcode)

	return b
}

// Colors sets the background, foreground and label colors. Empty strings are left unset.
func (b *Builder) Colors(background, foreground, label string) *Builder {
	v := b.visual()
	v.BackgroundColor = background
	v.ForegroundColor = foreground
	v.LabelColor = label

	return b
}

// LogoText sets the text next to the logo.
func (b *Builder) LogoText(text string) *Builder {
	b.visual().LogoText = text

	return b
}

// GroupingIdentifier sets the identifier grouping related passes.
func (b *Builder) GroupingIdentifier(id string) *Builder {
	b.visual().GroupingIdentifier = id

	return b
}

// SuppressStripShine disables the strip image shine effect.
func (b *Builder) SuppressStripShine(suppress bool) *Builder {
	b.visual().SuppressStripShine = suppress

	return b
}

// WebService sets the update web service.
func (b *Builder) WebService(url, authenticationToken string) *Builder {
	b.p.WebService = &WebService{URL: url, AuthenticationToken: authenticationToken}

	return b
}

// NFC sets the NFC payload.
func (b *Builder) NFC(nfc NFC) *Builder {
	b.p.NFC = &nfc

	return b
}

// HeaderField appends a header field.
func (b *Builder) HeaderField(f Field) *Builder {
	b.structure.HeaderFields = append(b.structure.HeaderFields, f)

	return b
}

// PrimaryField appends a primary field.
func (b *Builder) PrimaryField(f Field) *Builder {
	b.structure.PrimaryFields = append(b.structure.PrimaryFields, f)

	return b
}

// SecondaryField appends a secondary field.
func (b *Builder) SecondaryField(f Field) *Builder {
	b.structure.SecondaryFields = append(b.structure.SecondaryFields, f)

	return b
}

// AuxiliaryField appends an auxiliary field.
func (b *Builder) AuxiliaryField(f Field) *Builder {
	b.structure.AuxiliaryFields = append(b.structure.AuxiliaryFields, f)

	return b
}

// BackField appends a back field.
func (b *Builder) BackField(f Field) *Builder {
	b.structure.BackFields = append(b.structure.BackFields, f)

	return b
}

// FinishBoardingPass returns a boarding pass. It is the only style taking a transit type.
func (b *Builder) FinishBoardingPass(transit TransitType) *Pass {
	return b.finish(BoardingPass{Structure: b.structure, TransitType: transit})
}

// FinishCoupon returns a coupon.
func (b *Builder) FinishCoupon() *Pass {
	return b.finish(Coupon{b.structure})
}

// FinishEventTicket returns an event ticket.
func (b *Builder) FinishEventTicket() *Pass {
	return b.finish(EventTicket{b.structure})
}

// FinishGeneric returns a generic pass.
func (b *Builder) FinishGeneric() *Pass {
	return b.finish(Generic{b.structure})
}

// FinishStoreCard returns a store card.
func (b *Builder) FinishStoreCard() *Pass {
	return b.finish(StoreCard{b.structure})
}

// finish returns a copy so later builder calls never mutate a finished pass.
func (b *Builder) finish(style Style) *Pass {
	p := b.p
	p.Style = style

	return p.Clone()
}

func (b *Builder) visual() *VisualAppearance {
	if b.p.Visual == nil {
		b.p.Visual = new(VisualAppearance)
	}

	return b.p.Visual
}
