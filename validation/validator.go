package validation

import (
	"fmt"
	"strings"

	"github.com/kbukum/speakerid/errors"
)

// FieldError is one failed rule, reported under the field's config path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects cross-field rules that struct tags cannot express.
type Validator struct {
	errs []FieldError
}

func New() *Validator { return &Validator{} }

// AddError records a failure for field.
func (v *Validator) AddError(field, message string) {
	v.errs = append(v.errs, FieldError{Field: field, Message: message})
}

// Custom records message for field unless ok holds.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}

// FloatRange requires lo <= value <= hi.
func (v *Validator) FloatRange(field string, value, lo, hi float64) *Validator {
	return v.Custom(value >= lo && value <= hi, field, fmt.Sprintf("must be between %g and %g", lo, hi))
}

// Errors returns the failures recorded so far.
func (v *Validator) Errors() []FieldError { return v.errs }

// Validate returns an INVALID_INPUT error listing every failure, or nil.
func (v *Validator) Validate() *errors.AppError {
	if len(v.errs) == 0 {
		return nil
	}
	return fieldsError(v.errs)
}

func fieldsError(fields []FieldError) *errors.AppError {
	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}
