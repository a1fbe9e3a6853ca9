package chi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/cinegraph/internal/usecase/latency"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// textQuery is the ?query= parameter of the search routes.
type textQuery struct {
	Query string `validate:"required,max=200"`
}

// usernameParam is a username taken from a path segment or the identity header.
type usernameParam struct {
	Username string `validate:"required,max=64,printascii"`
}

type latencyQuery struct {
	Names []string `validate:"min=1,max=32,dive,required,max=64"`
}

// operationNames guards /api/latency against creating arbitrary streams in the report.
var operationNames = func() map[string]struct{} {
	m := make(map[string]struct{}, len(latency.Operations))
	for _, op := range latency.Operations {
		m[op] = struct{}{}
	}
	return m
}()

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			q, _ := sl.Current().Interface().(latencyQuery)
			for _, n := range q.Names {
				if _, ok := operationNames[n]; !ok {
					sl.ReportError(q.Names, "Names", "name", "operation", n)
				}
			}
		}, latencyQuery{})
	})
	return validate
}

// validateStruct returns a client-safe error describing every failed field, or nil.
func validateStruct(v any) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, translateError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func translateError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s long", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "printascii":
		return field + " must be printable ASCII"
	case "operation":
		return fmt.Sprintf("unknown operation %q", fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
