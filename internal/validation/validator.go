package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	money "github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so errors match the request body.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("currency", validateCurrency)
	return v
}

// validateCurrency accepts ISO 4217 codes known to go-money, in any case,
// plus the exchange's legacy SUR code for roubles.
func validateCurrency(fl validator.FieldLevel) bool {
	code := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
	if code == "SUR" {
		return true
	}
	return money.GetCurrency(code) != nil
}

// Struct runs the tag rules of s and converts failures into a validation Error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &Error{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	case "currency":
		return fmt.Sprintf("invalid currency: %v", fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must have length %s %s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
}
