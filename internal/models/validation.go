package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"natours/api/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks s against its validate tags and returns a Validation error whose
// message names every failing field. noun is used in "A <noun> must have a <field>".
func Validate(s any, noun string) error {
	if err := validate.Struct(s); err != nil {
		return apperr.Validation(validationMessage(err, noun))
	}
	return nil
}

func validationMessage(err error, noun string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("A %s must have a %s", noun, field))
		case "email":
			msgs = append(msgs, "Please provide a valid email")
		case "eqfield":
			msgs = append(msgs, "Passwords are not the same")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must have at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must have at most %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s is either: %s", field, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "gte", "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be above %s", field, fe.Param()))
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be below %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return "Invalid input data. " + strings.Join(msgs, ". ")
}
