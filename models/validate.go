// ABOUTME: Struct validation for CRM entities
// ABOUTME: Wraps go-playground/validator and formats errors for humans
package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags on an entity and returns a readable error.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	var msgs []string
	for _, fe := range verrs {
		field := toSnake(fe.Field())
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", ")))
		case "gte":
			msgs = append(msgs, field+" must be at least "+param)
		case "lte":
			msgs = append(msgs, field+" must be at most "+param)
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return errors.New(strings.Join(msgs, "; "))
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
