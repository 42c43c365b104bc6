package http

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	codeBadBody = "ERR_BAD_BODY"
	codeUnknown = "ERR_UNKNOWN"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// ValidateStruct applies defaults and validation tags to v. It returns nil
// when v is valid.
func ValidateStruct(ctx context.Context, v interface{}) []ValidationError {
	if err := defaults.Set(v); err != nil {
		return []ValidationError{{Code: codeUnknown, Message: err.Error()}}
	}
	if err := validate.StructCtx(ctx, v); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ReadAndValidateRequest binds the request into req, then validates it.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg = fmt.Sprint(he.Message)
		}
		return []ValidationError{{Code: codeBadBody, Message: msg}}
	}
	return ValidateStruct(c.Request().Context(), req)
}

func toValidationErrors(err error) []ValidationError {
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return []ValidationError{{Code: codeUnknown, Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(fes))
	for _, fe := range fes {
		out = append(out, ValidationError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   fe.Field(),
			Message: describe(fe),
			Params:  paramsOf(fe),
		})
	}
	return out
}

// ruleText holds the message suffix per tag; %s is the tag parameter.
var ruleText = map[string]string{
	"required":      "is required",
	"required_with": "is required when %s is set",
	"datetime":      "must be a date in %s format",
	"gt":            "must be greater than %s",
	"gte":           "must be greater than or equal to %s",
	"lt":            "must be less than %s",
	"lte":           "must be less than or equal to %s",
	"min":           "must be at least %s",
	"max":           "must be at most %s",
}

func describe(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	switch tag {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(param), ", "))
	case "min", "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s %s characters", fe.Field(), fmt.Sprintf(ruleText[tag], param))
		}
	}
	text, ok := ruleText[tag]
	if !ok {
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), tag)
	}
	if strings.Contains(text, "%s") {
		text = fmt.Sprintf(text, param)
	}
	return fe.Field() + " " + text
}

func paramsOf(fe validator.FieldError) map[string]interface{} {
	p := fe.Param()
	switch fe.Tag() {
	case "min", "gte":
		return map[string]interface{}{"min": p}
	case "max", "lte":
		return map[string]interface{}{"max": p}
	case "gt", "lt":
		return map[string]interface{}{"value": p}
	case "oneof":
		return map[string]interface{}{"options": strings.Fields(p)}
	}
	return nil
}
