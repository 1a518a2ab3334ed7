package httpx

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/shared"
)

// Validate runs struct validation and converts the first failure into a shared.ValidationError.
func Validate(v *validator.Validate, target any) error {
	err := v.Struct(target)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return shared.Invalid(fieldPath(fe.Namespace()), describe(fe))
	}
	return shared.Invalid("", err.Error())
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return strings.ToLower(ns[idx+1:])
	}
	return strings.ToLower(ns)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed " + fe.Tag()
	}
}
