package ledger

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("ledger_type", func(fl validator.FieldLevel) bool {
		return slices.Contains(Types, Type(fl.Field().String()))
	})
	_ = v.RegisterValidation("ledger_status", func(fl validator.FieldLevel) bool {
		return slices.Contains(Statuses, Status(fl.Field().String()))
	})

	return v
}

// Validate checks the record invariants that must hold before it is persisted.
func Validate(r *Record) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid ledger record %q: %w", r.ExternalID, err)
	}

	return nil
}
