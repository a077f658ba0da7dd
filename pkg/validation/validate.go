package validation

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates value and reports every failing field as a 400.
func Struct(value any) error {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	fields := make(map[string]any, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[fe.Field()] = rule
		messages = append(messages, fmt.Sprintf("%s failed '%s'", fe.Field(), rule))
	}

	httpErr := httperror.NewHTTPError(http.StatusBadRequest, "validation failed: "+strings.Join(messages, "; "))
	httpErr.AddMetaValue("fields", fields)
	return httpErr
}

// Var validates a single value against tag.
func Var(value any, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid value '%v': rule '%s'", value, tag)
	}
	return nil
}
