package flow

import "fmt"

// Field identifies one of the caller profile fields the extractor tracks.
type Field int

const (
	FieldName Field = iota
	FieldPolicyNumber
	FieldContactInfo
	FieldInquiryType
)

// Fields is the canonical extraction order.
var Fields = []Field{FieldName, FieldPolicyNumber, FieldContactInfo, FieldInquiryType}

var fieldNames = [...]string{
	FieldName:         "name",
	FieldPolicyNumber: "policy_number",
	FieldContactInfo:  "contact_info",
	FieldInquiryType:  "inquiry_type",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField returns the field named s.
func ParseField(s string) (Field, bool) {
	for i, name := range fieldNames {
		if name == s {
			return Field(i), true
		}
	}
	return 0, false
}

// MarshalText lets Field key JSON maps by name.
func (f Field) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= len(fieldNames) {
		return nil, fmt.Errorf("unknown field %d", int(f))
	}
	return []byte(fieldNames[f]), nil
}

func (f *Field) UnmarshalText(b []byte) error {
	parsed, ok := ParseField(string(b))
	if !ok {
		return fmt.Errorf("unknown field %q", string(b))
	}
	*f = parsed
	return nil
}

// Profile holds the facts collected about the caller across a session.
type Profile struct {
	Name         string `json:"name,omitempty"`
	PolicyNumber string `json:"policy_number,omitempty"`
	ContactInfo  string `json:"contact_info,omitempty"`
	InquiryType  string `json:"inquiry_type,omitempty"`
}

// profileSlots maps each field to its storage in a Profile.
var profileSlots = map[Field]func(*Profile) *string{
	FieldName:         func(p *Profile) *string { return &p.Name },
	FieldPolicyNumber: func(p *Profile) *string { return &p.PolicyNumber },
	FieldContactInfo:  func(p *Profile) *string { return &p.ContactInfo },
	FieldInquiryType:  func(p *Profile) *string { return &p.InquiryType },
}

// Get returns the stored value for f, or "" if unset.
func (p *Profile) Get(f Field) string {
	slot, ok := profileSlots[f]
	if !ok {
		return ""
	}
	return *slot(p)
}

// Fill stores value for f only if f is unset and value is non-empty.
// It reports whether the profile changed.
func (p *Profile) Fill(f Field, value string) bool {
	slot, ok := profileSlots[f]
	if !ok || value == "" {
		return false
	}
	dst := slot(p)
	if *dst != "" {
		return false
	}
	*dst = value
	return true
}

// Collected lists the fields that hold a value, in canonical order.
func (p *Profile) Collected() []Field {
	var out []Field
	for _, f := range Fields {
		if p.Get(f) != "" {
			out = append(out, f)
		}
	}
	return out
}

// IsComplete reports whether name, contact info and inquiry type are known.
func (p *Profile) IsComplete() bool {
	return p.Name != "" && p.ContactInfo != "" && p.InquiryType != ""
}

// MissingForEscalation lists what a specialist handoff still needs, in the
// wording used when asking the caller for it.
func (p *Profile) MissingForEscalation() []string {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.ContactInfo == "" {
		missing = append(missing, "phone number")
	}
	return missing
}
