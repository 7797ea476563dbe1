package services

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vytor/linguatrack/internal/errors"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationError converts the first validator failure into a VALIDATION_ERROR.
func validationError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewBadRequestError(err.Error())
	}
	fe := verrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "cannot be empty"
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		reason = fmt.Sprintf("must be one of %s", fe.Param())
	default:
		reason = fmt.Sprintf("failed %q check", fe.Tag())
	}
	return errors.NewValidationError(fe.Field(), reason)
}
