package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// ViabilityAnalysis is the audit record kept verbatim from the AI classifier.
// Nullable strings stay pointers so absent and empty values round-trip.
type ViabilityAnalysis struct {
	Viable                bool            `json:"viable"`
	ServiceFit            *Text           `json:"service_fit"`
	ContactInfoFound      *Text           `json:"contact_info_found"`
	CompanyDetailsPresent *Text           `json:"company_details_present"`
	Reasoning             *Text           `json:"reasoning"`
	CompanyDetails        *CompanyDetails `json:"company_details"`
	Error                 string          `json:"error,omitempty"`
}

// CompanyDetails holds the company facts the classifier pulled from a posting.
type CompanyDetails struct {
	CompanyName   *Text          `json:"company_name"`
	WebsiteURL    *Text          `json:"website_url"`
	Industry      *Text          `json:"industry"`
	Location      *Location      `json:"location"`
	ContactPerson *ContactPerson `json:"contact_person"`
	SocialMedia   *SocialMedia   `json:"social_media"`
	BusinessInfo  *BusinessInfo  `json:"business_info"`
}

type Location struct {
	City        *Text `json:"city"`
	State       *Text `json:"state"`
	Country     *Text `json:"country"`
	FullAddress *Text `json:"full_address"`
}

type ContactPerson struct {
	Name  *Text `json:"name"`
	Role  *Text `json:"role"`
	Email *Text `json:"email"`
	Phone *Text `json:"phone"`
}

// SocialMedia holds profile URLs or handles.
type SocialMedia struct {
	Facebook  *Text `json:"facebook"`
	Instagram *Text `json:"instagram"`
	LinkedIn  *Text `json:"linkedin"`
	Twitter   *Text `json:"twitter"`
	YouTube   *Text `json:"youtube"`
	TikTok    *Text `json:"tiktok"`
}

type BusinessInfo struct {
	Size        *Text `json:"size"`
	Founded     *Text `json:"founded"`
	Description *Text `json:"description"`
}

// Present returns the trimmed value of s and whether it carries information.
// Models often answer "null" or "N/A" as a string instead of JSON null.
func Present(s *Text) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(string(*s))
	switch strings.ToLower(v) {
	case "", "null", "none", "n/a", "unknown":
		return "", false
	}
	return v, true
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// TextOf returns a pointer to s as Text.
func TextOf(s string) *Text {
	t := Text(s)
	return &t
}

// Text is a nullable string field of a model reply. Numbers, booleans and
// nested values are kept as their JSON text so an off-schema scalar such as
// "founded": 2015 does not fail the whole decode.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode text")
		}
		*t = Text(s)
		return nil
	}
	*t = Text(data)
	return nil
}

// Flag is a boolean that also accepts the quoted and numeric spellings
// models produce.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	v := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch v {
	case "true", "yes", "1":
		*f = true
	case "false", "no", "0", "null", "":
		*f = false
	default:
		return eris.Errorf("model: invalid boolean %s", data)
	}
	return nil
}

// UnmarshalJSON decodes an analysis, accepting a loosely typed verdict.
func (a *ViabilityAnalysis) UnmarshalJSON(data []byte) error {
	type plain ViabilityAnalysis
	aux := struct {
		*plain
		Viable Flag `json:"viable"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.Viable = bool(aux.Viable)
	return nil
}

// Value stores the analysis as JSON text.
func (a *ViabilityAnalysis) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal viability analysis")
	}
	return string(b), nil
}

// Scan decodes the analysis from JSON text or bytes.
func (a *ViabilityAnalysis) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return eris.Errorf("model: cannot scan %T into ViabilityAnalysis", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, a)
}
