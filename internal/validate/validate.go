// Package validate plugs go-playground/validator into echo with Spanish
// messages, since operators read them directly.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/es"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	es_translations "github.com/go-playground/validator/v10/translations/es"
)

const (
	passwordMinText = "La contraseña debe tener al menos 6 caracteres"
	requiredText    = "Este campo es obligatorio"
)

type Validator struct {
	v *validator.Validate
	t ut.Translator
}

func New() (*Validator, error) {
	v := validator.New()
	spanish := es.New()
	uni := ut.New(spanish, spanish)
	trans, found := uni.GetTranslator("es")
	if !found {
		return nil, errors.New("validate: spanish translator not found")
	}
	if err := es_translations.RegisterDefaultTranslations(v, trans); err != nil {
		return nil, fmt.Errorf("validate: register default translations: %w", err)
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := registerMessage(v, trans, "required", requiredText); err != nil {
		return nil, err
	}
	// only password fields carry min=6
	if err := registerMessage(v, trans, "min", passwordMinText); err != nil {
		return nil, err
	}

	return &Validator{v: v, t: trans}, nil
}

// MustNew panics when the translations cannot be registered.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func registerMessage(v *validator.Validate, trans ut.Translator, tag, text string) error {
	err := v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, err := t.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return s
		},
	)
	if err != nil {
		return fmt.Errorf("validate: register %q message: %w", tag, err)
	}
	return nil
}

// Validate satisfies echo.Validator.
func (v *Validator) Validate(i any) error {
	return v.v.Struct(i)
}

// Message returns the first human readable message carried by err.
func (v *Validator) Message(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Translate(v.t)
	}
	return err.Error()
}
