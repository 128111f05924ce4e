package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString tracks presence and value for JSON merge-patch fields (RFC 7396),
// which *string alone cannot express:
//   - Present=false: field absent (leave unchanged)
//   - Present=true, Value=nil: JSON null
//   - Present=true, Value=&"text": field has a value
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only called when the field is present in the document
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Or returns the value, or fallback when the field is null or absent
func (o OptionalString) Or(fallback string) string {
	if o.Value == nil {
		return fallback
	}
	return *o.Value
}
