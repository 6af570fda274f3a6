package engine

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/go-playground/validator/v10"
)

var (
	RegexpVariableName = regexp.MustCompile("^[a-zA-Z0-9_}:-]+$")

	validate = newValidate()
)

func newValidate() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0] // e.g. `json:"businessKey,omitempty"` -> businessKey
	})

	validate.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		return gronx.IsValid(v)
	})
	validate.RegisterValidation("iso8601_duration", func(fl validator.FieldLevel) bool {
		_, err := NewISO8601Duration(fl.Field().String())
		return err == nil
	})
	validate.RegisterValidation("variable_name", func(fl validator.FieldLevel) bool {
		return RegexpVariableName.MatchString(fl.Field().String())
	})

	return validate
}

// ValidateCmd validates a command struct against its validate tags.
// If the command is invalid, an error of type [ErrorValidation] is returned.
func ValidateCmd(cmd any, title string) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return Error{
			Type:   ErrorBug,
			Title:  title,
			Detail: err.Error(),
		}
	}

	causes := make([]ErrorCause, 0, len(validationErrors))
	for _, validationError := range validationErrors {
		causes = append(causes, ErrorCause{
			Pointer: validationError.Namespace(),
			Type:    validationError.Tag(),
			Detail:  validationError.Error(),
		})
	}

	return Error{
		Type:   ErrorValidation,
		Title:  title,
		Detail: "command is invalid",
		Causes: causes,
	}
}
