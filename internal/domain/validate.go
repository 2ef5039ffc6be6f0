package domain

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("relationtype", func(fl validator.FieldLevel) bool {
		return RelationType(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
}

// Validate checks a draft or patch against its struct tags. Failures are
// reported as ErrMalformedInput with the validator's field errors attached.
func Validate(op string, v any) error {
	if err := validate.Struct(v); err != nil {
		return &Error{Op: op, Kind: ErrMalformedInput, Err: err}
	}
	return nil
}
