// package validate
package validate

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/profanity"
)

var (
	instance   *validator.Validate
	translator ut.Translator
	once       sync.Once
)

func get() (*validator.Validate, ut.Translator) {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their wire name so notices match what the client sent
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			switch name {
			case "-":
				return ""
			case "":
				return fld.Name
			}
			return name
		})

		_ = v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
			return domain.DisplayName(fl.Field().String())
		})
		_ = v.RegisterValidation("clean", func(fl validator.FieldLevel) bool {
			return !profanity.Default().Contains(fl.Field().String())
		})

		english := en.New()
		uni := ut.New(english, english)
		trans, _ := uni.GetTranslator("en")

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerTranslations(v, trans)

		instance = v
		translator = trans
	})

	return instance, translator
}

func registerTranslations(v *validator.Validate, trans ut.Translator) {
	add := func(tag, text string, withParam bool) {
		_ = v.RegisterTranslation(tag, trans, func(t ut.Translator) error {
			return t.Add(tag, text, true)
		}, func(t ut.Translator, fe validator.FieldError) string {
			params := []string{fe.Field()}
			if withParam {
				params = append(params, fe.Param())
			}
			msg, err := t.T(tag, params...)
			if err != nil {
				return fe.Error()
			}
			return msg
		})
	}

	add("required", "{0} is required", false)
	add("max", "{0} must be at most {1} characters", true)
	add("min", "{0} must be at least {1} characters", true)
	add("base64", "{0} must be base64 encoded", false)
	add("oneof", "{0} must be one of [{1}]", true)
	add("url", "{0} must be a valid URL", false)
	add("http_url", "{0} must be a valid URL", false)
	add("alphanum", "{0} must contain only letters and numbers", false)
	add("displayname", "{0} must be 1 to "+strconv.Itoa(domain.MaxDisplayNameLength)+" characters without control characters", false)
	add("clean", "{0} contains words that are not allowed", false)
}

// Struct validates s against its `validate` tags and returns a single readable error.
func Struct(s any) error {
	v, trans := get()
	return translate(v.Struct(s), trans, "")
}

// Var validates a single value with the given tag, labelling failures with field.
func Var(field string, value any, tag string) error {
	v, trans := get()
	return translate(v.Var(value, tag), trans, field)
}

// translate joins the messages of every failed field. Var errors carry no
// field name, so label replaces the empty one.
func translate(err error, trans ut.Translator, label string) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Translate(trans)
		if label != "" && fe.Field() == "" {
			msg = label + msg
		}
		msgs = append(msgs, strings.TrimSpace(msg))
	}

	return errors.New(strings.Join(msgs, "; "))
}
