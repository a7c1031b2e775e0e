package bulk

// validate.go checks one row in isolation.
//
// Every field is checked independently so the grid can show all problems of
// a row at once. The rules themselves are expressed as validator tags; the
// two custom tags cover the digit-only identifier and the 10/11 digit
// contact number.

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	digitsPattern  = regexp.MustCompile(`^\d+$`)
	contactPattern = regexp.MustCompile(`^\d{10,11}$`)
)

// rowValidate is shared; validator.Validate is safe for concurrent use.
var rowValidate *validator.Validate

func init() {
	rowValidate = validator.New()
	_ = rowValidate.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	_ = rowValidate.RegisterValidation("contact", func(fl validator.FieldLevel) bool {
		return contactPattern.MatchString(fl.Field().String())
	})
}

// fieldRule binds a field to its validator tag and to the message shown for
// each tag that can fail.
type fieldRule struct {
	field    Field
	tag      string
	messages map[string]string
}

var fieldRules = []fieldRule{
	{
		field: FieldIdentifier,
		tag:   "required,digits",
		messages: map[string]string{
			"required": "identifier is required",
			"digits":   "identifier must contain digits only",
		},
	},
	{
		field: FieldGivenName,
		tag:   "required,min=2",
		messages: map[string]string{
			"required": "given name is required",
			"min":      "given name must be at least 2 characters",
		},
	},
	{
		field: FieldFamilyName,
		tag:   "required,min=2",
		messages: map[string]string{
			"required": "family name is required",
			"min":      "family name must be at least 2 characters",
		},
	},
	{
		field: FieldContact,
		tag:   "required,contact",
		messages: map[string]string{
			"required": "contact number is required",
			"contact":  "contact number must have 10 or 11 digits",
		},
	},
	{
		field: FieldLeader,
		tag:   "required",
		messages: map[string]string{
			"required": "leader is required",
		},
	},
}

// Validate returns the error set for row. An empty result means the row is
// valid. Validate never mutates the row; the grid writes the result back.
func Validate(row Row) FieldErrors {
	var errs FieldErrors
	for _, rule := range fieldRules {
		msg := checkField(row.Get(rule.field), rule)
		if msg == "" {
			continue
		}
		if errs == nil {
			errs = make(FieldErrors, len(fieldRules))
		}
		errs[rule.field] = msg
	}
	return errs
}

// IsValid reports whether row passes every field rule.
func IsValid(row Row) bool {
	return len(Validate(row)) == 0
}

func checkField(value string, rule fieldRule) string {
	err := rowValidate.Var(value, rule.tag)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := rule.messages[verrs[0].Tag()]; ok {
			return msg
		}
	}
	// Tag without a dedicated message; report the field as invalid.
	return string(rule.field) + " is invalid"
}
