package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/member-portal/internal/domain"
)

var (
	validate *validator.Validate
	trans    ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names so error meta matches the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = fld.Tag.Get("query")
		}
		return name
	})

	_ = validate.RegisterValidation("timezone", func(fl validator.FieldLevel) bool {
		return domain.IsValidTimezone(fl.Field().String())
	})
	_ = validate.RegisterValidation("action", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseAction(fl.Field().String())
		return err == nil
	})

	uni := ut.New(en.New())
	trans, _ = uni.GetTranslator("en")
	_ = entranslations.RegisterDefaultTranslations(validate, trans)
	registerMessage("timezone", "{0} must be one of "+strings.Join(domain.SupportedTimezones(), ", "))
	registerMessage("action", "{0} must be approve or reject")
}

func registerMessage(tag, text string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// validateStruct runs the tag rules on v and converts the first failure into
// a domain validation error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return domain.ErrInternal(err)
	}
	return fieldError(ve[0])
}

func fieldError(fe validator.FieldError) error {
	field := fe.Field()
	switch {
	case fe.Tag() == "required":
		return domain.ErrMissingField(field)
	case fe.Tag() == "action":
		v, _ := fe.Value().(string)
		return domain.ErrInvalidAction(v)
	case field == "password" && fe.Tag() == "min":
		return domain.ErrWeakPassword("min length " + fe.Param())
	default:
		return domain.ErrInvalidField(field, fe.Translate(trans))
	}
}

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

func trimOptional(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
