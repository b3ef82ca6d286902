package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"uniform-tracker/internal/core"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			r := []rune(fld.Name)
			r[0] = unicode.ToLower(r[0])
			return string(r)
		}
		return name
	})
	return v
}

// validate runs struct tags on req and reports the first failure as a
// *core.ValidationError.
func (s *appService) validate(req any) error {
	err := s.validator.Struct(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return core.Invalid("request", err.Error())
	}
	fe := ve[0]
	return core.Invalid(fieldPath(fe), describe(fe))
}

// fieldPath drops the root struct name: "IssueRequest.variant.color" → "variant.color".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return fmt.Sprintf("is required when %s is empty", strings.ToLower(fe.Param()))
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must have at least " + fe.Param() + " element(s)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
