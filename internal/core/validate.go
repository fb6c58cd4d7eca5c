package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	lastFourRe = regexp.MustCompile(`^\d{4}$`)
	expiryRe   = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	nonSpaceRe = regexp.MustCompile(`\S`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages match what clients submit.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonSpaceRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("lastfour", func(fl validator.FieldLevel) bool {
		return lastFourRe.MatchString(fl.Field().String())
	})
	// MM/YY
	_ = validate.RegisterValidation("cardexpiry", func(fl validator.FieldLevel) bool {
		return expiryRe.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).IsValid()
	})
}

// validateStruct runs tag validation and converts the first failure into a
// *ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Reason: reasonFor(fe)}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hexcolor":
		return "must be a hex color"
	case "lastfour":
		return "must be exactly 4 digits"
	case "cardexpiry":
		return "must be a MM/YY date"
	case "category":
		return fmt.Sprintf("unknown category %v", fe.Value())
	default:
		return "is invalid"
	}
}
