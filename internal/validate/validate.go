// Package validate holds the shared request validator and its custom rules.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	ymdTag      = "ymd"
	hhmmTag     = "hhmm"
	hexColorTag = "hexcolor"
	notBlankTag = "notblank"

	hhmmRe     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
	hexColorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

func init() {
	Validate = validator.New(validator.WithRequiredStructEnabled())

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Overrides the builtin hexcolor, which also accepts alpha forms.
	_ = Validate.RegisterValidation(ymdTag, ymdValidation)
	_ = Validate.RegisterValidation(hhmmTag, hhmmValidation)
	_ = Validate.RegisterValidation(hexColorTag, hexColorValidation)
	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)

	registerCustomTranslations(map[string]string{
		ymdTag:      "must be a date in YYYY-MM-DD format",
		hhmmTag:     "must be a time in HH:MM format",
		hexColorTag: "must be a color like #1a2b3c",
		notBlankTag: "cannot be blank",
	})
}

// registerCustomTranslations registers messages for the custom tags. The
// register func is a no-op because the default translations are already
// registered.
func registerCustomTranslations(texts map[string]string) {
	registerFn := func(ut.Translator) error { return nil }
	for tag, text := range texts {
		text := text
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, func(_ ut.Translator, fe validator.FieldError) string {
			return fmt.Sprintf("%s %s", fe.Field(), text)
		})
	}
}

// Struct validates s and returns the first failure as a readable error.
func Struct(s any) error {
	if err := Validate.Struct(s); err != nil {
		return errors.New(Message(err))
	}
	return nil
}

// Message turns a validation error into a single readable message. Errors
// that are not validation errors are returned as-is.
func Message(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(Translator)
	}
	return err.Error()
}

// Empty strings pass the custom rules; combine with required when needed.

func ymdValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func hhmmValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || hhmmRe.MatchString(s)
}

func hexColorValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || hexColorRe.MatchString(s)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
