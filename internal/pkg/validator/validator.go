package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Period type validation
	validate.RegisterValidation("period_type", func(fl validator.FieldLevel) bool {
		pt := fl.Field().String()
		validTypes := []string{"daily", "weekly", "monthly"}
		for _, t := range validTypes {
			if pt == t {
				return true
			}
		}
		return false
	})

	// Event source validation
	validate.RegisterValidation("event_source", func(fl validator.FieldLevel) bool {
		source := fl.Field().String()
		validSources := []string{"mobile", "web", "system", ""}
		for _, s := range validSources {
			if source == s {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "period_type":
			errors[field] = "Invalid period type. Must be: daily, weekly, or monthly"
		case "event_source":
			errors[field] = "Invalid source. Must be: mobile, web, or system"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
