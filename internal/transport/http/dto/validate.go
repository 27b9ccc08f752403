package dto

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/otp-auth/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report JSON field names, not Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}

	if err := validate.RegisterValidation("maxbytes", validateMaxBytes); err != nil {
		panic(err)
	}
	if err := validate.RegisterTranslation("maxbytes", trans,
		func(ut ut.Translator) error {
			return ut.Add("maxbytes", "{0} must be at most {1} bytes", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("maxbytes", fe.Field(), fe.Param())
			return t
		},
	); err != nil {
		panic(err)
	}
}

// validateMaxBytes is max= measured in bytes; max= counts runes for strings.
func validateMaxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Validate runs struct tags on req. Empty required fields are reported together
// as missing_fields; the first other failure becomes invalid_field.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrInternal(err)
	}

	var missing []string
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	if len(missing) > 0 {
		return domain.ErrMissingFields(missing...)
	}

	fe := verrs[0]
	return domain.ErrInvalidField(fe.Field(), fe.Translate(trans))
}
