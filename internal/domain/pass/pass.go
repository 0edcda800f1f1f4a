package pass

import (
	"encoding/json"
	"fmt"
)

// FormatVersion is the only pass.json format version.
const FormatVersion = 1

// DefaultMessageEncoding is the barcode message encoding used when none is set.
const DefaultMessageEncoding = "iso-8859-1"

// Pass is the top level of pass.json.
type Pass struct {
	Description      string
	FormatVersion    int
	OrganizationName string
	// PassTypeIdentifier must match the signing certificate.
	PassTypeIdentifier string
	// SerialNumber is unique among passes sharing a pass type identifier.
	SerialNumber   string
	TeamIdentifier string

	AppLaunchURL               string
	AssociatedStoreIdentifiers []int64
	UserInfo                   map[string]string
	// ExpirationDate and RelevantDate are W3C timestamps kept verbatim.
	ExpirationDate string
	Voided         bool
	Beacons        []Beacon
	Locations      []Location
	// MaxDistance is in meters.
	MaxDistance  *uint32
	RelevantDate string

	Style      Style
	Visual     *VisualAppearance
	WebService *WebService
	NFC        *NFC
}

// VisualAppearance holds the appearance keys of a pass. They are flattened into pass.json.
type VisualAppearance struct {
	Barcodes           []Barcode
	BackgroundColor    string
	ForegroundColor    string
	GroupingIdentifier string
	LabelColor         string
	LogoText           string
	SuppressStripShine bool
}

func (v *VisualAppearance) object() *object {
	o := new(object)
	if v == nil {
		return o
	}

	return o.
		setUnless(len(v.Barcodes) == 0, "barcodes", v.Barcodes).
		setUnless(v.BackgroundColor == "", "backgroundColor", v.BackgroundColor).
		setUnless(v.ForegroundColor == "", "foregroundColor", v.ForegroundColor).
		setUnless(v.GroupingIdentifier == "", "groupingIdentifier", v.GroupingIdentifier).
		setUnless(v.LabelColor == "", "labelColor", v.LabelColor).
		setUnless(v.LogoText == "", "logoText", v.LogoText).
		setUnless(!v.SuppressStripShine, "suppressStripShine", v.SuppressStripShine)
}

// BarcodeFormat is the symbology of a barcode.
type BarcodeFormat string

const (
	BarcodeQR      BarcodeFormat = "PKBarcodeFormatQR"
	BarcodePDF417  BarcodeFormat = "PKBarcodeFormatPDF417"
	BarcodeAztec   BarcodeFormat = "PKBarcodeFormatAztec"
	BarcodeCode128 BarcodeFormat = "PKBarcodeFormatCode128"
)

// Barcode is a barcode shown on the pass.
type Barcode struct {
	Message         string        `json:"message"`
	Format          BarcodeFormat `json:"format"`
	MessageEncoding string        `json:"messageEncoding"`
	AltText         string        `json:"altText"`
}

// NewBarcode returns a barcode with the default message encoding.
func NewBarcode(format BarcodeFormat, message string) Barcode {
	return Barcode{
		Message:         message,
		Format:          format,
		MessageEncoding: DefaultMessageEncoding,
	}
}

// MarshalJSON implements json.Marshaler.
func (b Barcode) MarshalJSON() ([]byte, error) {
	encoding := b.MessageEncoding
	if encoding == "" {
		encoding = DefaultMessageEncoding
	}

	return new(object).
		set("message", b.Message).
		set("format", b.Format).
		set("messageEncoding", encoding).
		setUnless(b.AltText == "", "altText", b.AltText).
		MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *Barcode) UnmarshalJSON(data []byte) error {
	type plain Barcode

	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	if decoded.MessageEncoding == "" {
		decoded.MessageEncoding = DefaultMessageEncoding
	}

	*b = Barcode(decoded)

	return nil
}

// Beacon is a Bluetooth Low Energy beacon marking where the pass is relevant.
type Beacon struct {
	ProximityUUID string  `json:"proximityUUID"`
	Major         *uint16 `json:"major"`
	Minor         *uint16 `json:"minor"`
	RelevantText  string  `json:"relevantText"`
}

// MarshalJSON implements json.Marshaler.
func (b Beacon) MarshalJSON() ([]byte, error) {
	return new(object).
		set("proximityUUID", b.ProximityUUID).
		setUnless(b.Major == nil, "major", b.Major).
		setUnless(b.Minor == nil, "minor", b.Minor).
		setUnless(b.RelevantText == "", "relevantText", b.RelevantText).
		MarshalJSON()
}

// Location is a place where the pass is relevant.
type Location struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Altitude     *float64 `json:"altitude"`
	RelevantText string   `json:"relevantText"`
}

// MarshalJSON implements json.Marshaler.
func (l Location) MarshalJSON() ([]byte, error) {
	return new(object).
		set("latitude", l.Latitude).
		set("longitude", l.Longitude).
		setUnless(l.Altitude == nil, "altitude", l.Altitude).
		setUnless(l.RelevantText == "", "relevantText", l.RelevantText).
		MarshalJSON()
}

// WebService describes the update web service. Its keys are flattened into pass.json.
type WebService struct {
	// AuthenticationToken must be at least 16 characters.
	AuthenticationToken string
	// URL must use HTTPS outside of development devices.
	URL string
}

// NFC carries the Value Added Services payload.
type NFC struct {
	// Message is at most 64 bytes.
	Message string `json:"message"`
	// EncryptionPublicKey is a Base64 X.509 SubjectPublicKeyInfo of a P-256 ECDH key.
	EncryptionPublicKey string `json:"encryptionPublicKey"`
}

// MarshalJSON implements json.Marshaler.
func (n NFC) MarshalJSON() ([]byte, error) {
	return new(object).
		set("message", n.Message).
		setUnless(n.EncryptionPublicKey == "", "encryptionPublicKey", n.EncryptionPublicKey).
		MarshalJSON()
}

// MarshalJSON implements json.Marshaler.
func (p *Pass) MarshalJSON() ([]byte, error) {
	version := p.FormatVersion
	if version == 0 {
		version = FormatVersion
	}

	style := p.Style
	if style == nil {
		style = Generic{}
	}

	o := new(object).
		set("formatVersion", version).
		set("passTypeIdentifier", p.PassTypeIdentifier).
		set("serialNumber", p.SerialNumber).
		set("teamIdentifier", p.TeamIdentifier).
		set("organizationName", p.OrganizationName).
		set("description", p.Description).
		setUnless(p.AppLaunchURL == "", "appLaunchURL", p.AppLaunchURL).
		setUnless(len(p.AssociatedStoreIdentifiers) == 0, "associatedStoreIdentifiers", p.AssociatedStoreIdentifiers).
		setUnless(len(p.UserInfo) == 0, "userInfo", p.UserInfo).
		setUnless(p.ExpirationDate == "", "expirationDate", p.ExpirationDate).
		setUnless(!p.Voided, "voided", p.Voided).
		setUnless(len(p.Beacons) == 0, "beacons", p.Beacons).
		setUnless(len(p.Locations) == 0, "locations", p.Locations).
		setUnless(p.MaxDistance == nil, "maxDistance", p.MaxDistance).
		setUnless(p.RelevantDate == "", "relevantDate", p.RelevantDate).
		merge(p.Visual.object())

	if p.WebService != nil {
		o.set("authenticationToken", p.WebService.AuthenticationToken).
			set("webServiceURL", p.WebService.URL)
	}

	o.setUnless(p.NFC == nil, "nfc", p.NFC).
		set(style.Key(), styleObject(style))

	return o.MarshalJSON()
}

// passWire mirrors pass.json for decoding. Pointers mark keys whose presence matters.
type passWire struct {
	styles

	FormatVersion              int               `json:"formatVersion"`
	Description                string            `json:"description"`
	OrganizationName           string            `json:"organizationName"`
	PassTypeIdentifier         string            `json:"passTypeIdentifier"`
	SerialNumber               string            `json:"serialNumber"`
	TeamIdentifier             string            `json:"teamIdentifier"`
	AppLaunchURL               string            `json:"appLaunchURL"`
	AssociatedStoreIdentifiers []int64           `json:"associatedStoreIdentifiers"`
	UserInfo                   map[string]string `json:"userInfo"`
	ExpirationDate             string            `json:"expirationDate"`
	Voided                     bool              `json:"voided"`
	Beacons                    []Beacon          `json:"beacons"`
	Locations                  []Location        `json:"locations"`
	MaxDistance                *uint32           `json:"maxDistance"`
	RelevantDate               string            `json:"relevantDate"`

	Barcodes           []Barcode `json:"barcodes"`
	LegacyBarcode      *Barcode  `json:"barcode"`
	BackgroundColor    string    `json:"backgroundColor"`
	ForegroundColor    string    `json:"foregroundColor"`
	GroupingIdentifier string    `json:"groupingIdentifier"`
	LabelColor         string    `json:"labelColor"`
	LogoText           string    `json:"logoText"`
	SuppressStripShine *bool     `json:"suppressStripShine"`

	AuthenticationToken *string `json:"authenticationToken"`
	WebServiceURL       *string `json:"webServiceURL"`

	NFC *NFC `json:"nfc"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Pass) UnmarshalJSON(data []byte) error {
	var w passWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	style, err := w.resolve()
	if err != nil {
		return err
	}

	version := w.FormatVersion
	if version == 0 {
		version = FormatVersion
	}

	*p = Pass{
		Description:                w.Description,
		FormatVersion:              version,
		OrganizationName:           w.OrganizationName,
		PassTypeIdentifier:         w.PassTypeIdentifier,
		SerialNumber:               w.SerialNumber,
		TeamIdentifier:             w.TeamIdentifier,
		AppLaunchURL:               w.AppLaunchURL,
		AssociatedStoreIdentifiers: w.AssociatedStoreIdentifiers,
		UserInfo:                   w.UserInfo,
		ExpirationDate:             w.ExpirationDate,
		Voided:                     w.Voided,
		Beacons:                    w.Beacons,
		Locations:                  w.Locations,
		MaxDistance:                w.MaxDistance,
		RelevantDate:               w.RelevantDate,
		Style:                      style,
		Visual:                     w.visual(),
		NFC:                        w.NFC,
	}

	if w.AuthenticationToken != nil || w.WebServiceURL != nil {
		p.WebService = new(WebService)

		if w.AuthenticationToken != nil {
			p.WebService.AuthenticationToken = *w.AuthenticationToken
		}

		if w.WebServiceURL != nil {
			p.WebService.URL = *w.WebServiceURL
		}
	}

	return nil
}

// visual returns the appearance keys, or nil when none is present.
// The legacy single "barcode" key is used only when "barcodes" is absent.
func (w *passWire) visual() *VisualAppearance {
	barcodes := w.Barcodes
	if barcodes == nil && w.LegacyBarcode != nil {
		barcodes = []Barcode{*w.LegacyBarcode}
	}

	if barcodes == nil && w.SuppressStripShine == nil &&
		w.BackgroundColor == "" && w.ForegroundColor == "" && w.GroupingIdentifier == "" &&
		w.LabelColor == "" && w.LogoText == "" {
		return nil
	}

	return &VisualAppearance{
		Barcodes:           barcodes,
		BackgroundColor:    w.BackgroundColor,
		ForegroundColor:    w.ForegroundColor,
		GroupingIdentifier: w.GroupingIdentifier,
		LabelColor:         w.LabelColor,
		LogoText:           w.LogoText,
		SuppressStripShine: w.SuppressStripShine != nil && *w.SuppressStripShine,
	}
}

// RGB formats a CSS-style color triple.
func RGB(r, g, b uint8) string {
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}
