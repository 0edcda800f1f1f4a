package pass

// PersonalizationField is a piece of user information requested when a pass is personalized.
type PersonalizationField string

const (
	PersonalizationName         PersonalizationField = "PKPassPersonalizationFieldName"
	PersonalizationPostalCode   PersonalizationField = "PKPassPersonalizationFieldPostalCode"
	PersonalizationEmailAddress PersonalizationField = "PKPassPersonalizationFieldEmailAddress"
	PersonalizationPhoneNumber  PersonalizationField = "PKPassPersonalizationFieldPhoneNumber"
)

// Personalization is the content of personalization.json.
type Personalization struct {
	RequiredPersonalizationFields []PersonalizationField `json:"requiredPersonalizationFields"`
	Description                   string                 `json:"description"`
	TermsAndConditions            string                 `json:"termsAndConditions"`
}

// MarshalJSON implements json.Marshaler.
func (p *Personalization) MarshalJSON() ([]byte, error) {
	fields := p.RequiredPersonalizationFields
	if fields == nil {
		fields = []PersonalizationField{}
	}

	return new(object).
		set("requiredPersonalizationFields", fields).
		set("description", p.Description).
		setUnless(p.TermsAndConditions == "", "termsAndConditions", p.TermsAndConditions).
		MarshalJSON()
}

// Clone returns a deep copy of p.
func (p *Personalization) Clone() *Personalization {
	if p == nil {
		return nil
	}

	c := *p
	c.RequiredPersonalizationFields = cloneSlice(p.RequiredPersonalizationFields)

	return &c
}
