// Package validator wraps go-playground struct validation behind a small
// surface the transport layer can depend on.
package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs against their struct tags.
type Validator struct {
	engine *validator.Validate
}

// New builds a validator with the default tag rules.
func New() *Validator {
	return &Validator{engine: validator.New()}
}

// Struct validates a struct against its `validate` tags.
func (val *Validator) Struct(s interface{}) error {
	return val.engine.Struct(s)
}

// Describe flattens a validation error into a single client-facing sentence.
// Non-validation errors come back unchanged.
func Describe(err error) string {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
