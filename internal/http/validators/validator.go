package validators

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "task-assignment-api.com/task-assignment-api/internal/errors"
)

// fieldMessages is implemented by request types that word their own
// validation failures, keyed by JSON field name.
type fieldMessages interface {
	FieldMessages() map[string]string
}

// RequestValidator plugs validator/v10 into echo's Context.Validate.
type RequestValidator struct {
	validate *validator.Validate
}

func New() *RequestValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &RequestValidator{validate: v}
}

func (v *RequestValidator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Malformed("Bad request", err)
	}

	first := fieldErrs[0]
	if m, ok := i.(fieldMessages); ok {
		if msg, ok := m.FieldMessages()[first.Field()]; ok {
			return apperrors.Validation(msg)
		}
	}
	return apperrors.Validation(fmt.Sprintf("%s is %s.", first.Field(), first.Tag()))
}
