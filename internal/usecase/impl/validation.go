package impl

import (
	"fmt"
	"regexp"

	domainerrors "chat/internal/domain/errors"
	"chat/internal/errors"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// requestValidator checks usecase inputs against their validate tags and
// turns the first failure into a client-facing ErrValidationFailed.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty tag name or nil func.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return &requestValidator{validate: v}
}

func (rv *requestValidator) Struct(s any) error {
	err := rv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]

		return domainerrors.ErrValidationFailed.
			WithMessage(fieldMessage(fe)).
			WithDetails(fmt.Sprintf("%s failed %q", fe.StructNamespace(), fe.Tag()))
	}

	return errors.WithStack(err)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Username":
		switch fe.Tag() {
		case "required":
			return "Username is required"
		case "username":
			return "Username may only contain letters, numbers and underscores"
		default:
			return "Username must be between 3 and 20 characters"
		}
	case "Password":
		switch fe.Tag() {
		case "required":
			return "Password is required"
		default:
			return "Password must be between 6 and 50 characters"
		}
	case "Text":
		if fe.Tag() == "required" {
			return "Message cannot be empty"
		}

		return "Message must be at most 5000 characters"
	default:
		return domainerrors.ErrValidationFailed.Message()
	}
}
