package dto

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

var validate = validator.New()

// Validate runs struct tag validation and converts failures into the shared
// validation error shape.
func Validate(payload any) error {
	if err := validate.Struct(payload); err != nil {
		var details map[string]any
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			details = make(map[string]any, len(fieldErrs))
			for _, fe := range fieldErrs {
				details[fe.Field()] = fe.Tag()
			}
		}
		return apperrors.NewValidationError("invalid request body", details)
	}
	return nil
}
