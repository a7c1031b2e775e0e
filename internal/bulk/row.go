package bulk

import (
	"errors"
	"fmt"
)

// Field names an editable column of the registration grid.
type Field string

const (
	FieldIdentifier Field = "identifier"
	FieldGivenName  Field = "given_name"
	FieldFamilyName Field = "family_name"
	FieldContact    Field = "contact"
	FieldLeader     Field = "leader_id"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldIdentifier, FieldGivenName, FieldFamilyName, FieldContact, FieldLeader}

// ErrUnknownField is returned when a field name is not one of Fields.
var ErrUnknownField = errors.New("unknown field")

// ParseField converts a raw field name (as sent by a client) to a Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// FieldErrors maps a field to a human-readable validation message.
// A nil or empty map means the row validated clean (or was never validated).
type FieldErrors map[Field]string

// Clone returns an independent copy.
func (fe FieldErrors) Clone() FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}

// Row is one in-progress registration entry in the grid.
//
// Rows are values: every transition returns a new Row and never mutates the
// receiver, so a stored Row can be compared before and after an operation.
type Row struct {
	ID         int         `json:"id"`
	Active     bool        `json:"active"`
	HasData    bool        `json:"hasData"`
	Identifier string      `json:"identifier"`
	GivenName  string      `json:"givenName"`
	FamilyName string      `json:"familyName"`
	Contact    string      `json:"contact"`
	LeaderID   string      `json:"leaderId"`
	Errors     FieldErrors `json:"errors,omitempty"`
}

// NewRow returns an empty, inactive row with the given id.
func NewRow(id int) Row {
	return Row{ID: id}
}

// Get returns the current value of f, or "" for an unknown field.
func (r Row) Get(f Field) string {
	switch f {
	case FieldIdentifier:
		return r.Identifier
	case FieldGivenName:
		return r.GivenName
	case FieldFamilyName:
		return r.FamilyName
	case FieldContact:
		return r.Contact
	case FieldLeader:
		return r.LeaderID
	}
	return ""
}

// SetField returns a copy of r with f set to value.
//
// HasData is recomputed, a row holding data is always active, and the error
// set is dropped: errors only come back on the next explicit validation.
func (r Row) SetField(f Field, value string) (Row, error) {
	switch f {
	case FieldIdentifier:
		r.Identifier = value
	case FieldGivenName:
		r.GivenName = value
	case FieldFamilyName:
		r.FamilyName = value
	case FieldContact:
		r.Contact = value
	case FieldLeader:
		r.LeaderID = value
	default:
		return r, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}

	r.HasData = r.computeHasData()
	if r.HasData {
		r.Active = true
	}
	r.Errors = nil
	return r, nil
}

// Clear resets every field, deactivates the row and drops its errors.
// The id is preserved. Clear is idempotent.
func (r Row) Clear() Row {
	return NewRow(r.ID)
}

// HasErrors reports whether the last validation left messages on the row.
func (r Row) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r Row) computeHasData() bool {
	return r.Identifier != "" ||
		r.GivenName != "" ||
		r.FamilyName != "" ||
		r.Contact != "" ||
		r.LeaderID != ""
}

func (r Row) clone() Row {
	r.Errors = r.Errors.Clone()
	return r
}
