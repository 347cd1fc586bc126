// Package validation wraps a process-wide go-playground validator and turns
// its errors into a single, field-addressed FieldError.
//
// Struct fields are reported by their json tag name, so error messages line
// up with request bodies:
//
//	type registerInput struct {
//	    Email string `json:"email" validate:"required,email"`
//	}
//	if fe := validation.Struct(in); fe != nil {
//	    // fe.Field == "email", fe.Tag == "email"
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes the first rule a value failed.
type FieldError struct {
	Field string // json name of the offending field, "" for Var checks
	Tag   string // failed rule, e.g. "required", "email", "min"
	Param string // rule parameter, e.g. "8" for min=8
}

func (e *FieldError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("failed %q validation", e.Tag)
	case e.Param != "":
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
	default:
		return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
	}
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s against its `validate` tags and returns the first
// failure, or nil.
func Struct(s any) *FieldError {
	return firstError(instance().Struct(s))
}

// Var validates a single value against tag, e.g. Var(email, "required,email").
func Var(v any, tag string) *FieldError {
	return firstError(instance().Var(v, tag))
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return Var(s, "required,email") == nil
}

func firstError(err error) *FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return &FieldError{Tag: err.Error()}
}
