package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// validate runs after forms are bound and normalised, so rules see trimmed
// values. Gin's own binding validator is not used: it fires before trimming.
var validate = validator.New(validator.WithRequiredStructEnabled())

// BindForm decodes a url-encoded body into out using `form` tags.
func BindForm(ctx *gin.Context, out interface{}) error {
	return ctx.ShouldBindWith(out, binding.Form)
}

// ValidationMessages checks out against its `validate` tags and returns one
// user-facing message per failing field, in field order. A field's `msg` tag
// overrides the generated message.
func ValidationMessages(out interface{}) []string {
	err := validate.Struct(out)
	if err == nil {
		return nil
	}

	var validatorError validator.ValidationErrors
	if !errors.As(err, &validatorError) {
		return []string{err.Error()}
	}

	rootType := baseStructType(out)
	msgs := make([]string, 0, len(validatorError))

	for _, fieldError := range validatorError {
		msgs = append(msgs, messageFor(rootType, fieldError))
	}

	return msgs
}

func messageFor(rootType reflect.Type, fieldError validator.FieldError) string {
	if rootType != nil {
		if sf, ok := rootType.FieldByName(fieldError.StructField()); ok {
			if msg := sf.Tag.Get("msg"); msg != "" {
				return msg
			}
			if name := formName(sf); name != "" {
				return name + " " + validationMessage(fieldError.Tag(), fieldError.Param())
			}
		}
	}

	return fieldError.Field() + " " + validationMessage(fieldError.Tag(), fieldError.Param())
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

func formName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("form"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
