package data

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// EmployeeInput is the validated body forwarded to the upstream create
// endpoint
type EmployeeInput struct {
	Name   string `json:"name" validate:"required"`
	Salary int    `json:"salary" validate:"required,gt=0"`
	Age    int    `json:"age" validate:"required,gte=16,lte=75"`
	Title  string `json:"title" validate:"required"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
}

// NewEmployeeInput builds an input from a loosely typed field map; keys may
// use either the short (name) or the document (employee_name) form
func NewEmployeeInput(fields map[string]any) (*EmployeeInput, error) {
	var problems []string

	input := &EmployeeInput{}
	for _, f := range []struct {
		key    string
		target *string
	}{
		{"name", &input.Name},
		{"title", &input.Title},
		{"email", &input.Email},
	} {
		value, found := lookupField(fields, f.key)
		if !found {
			continue
		}
		s, ok := value.(string)
		if !ok {
			problems = append(problems, f.key+": must be a string")
			continue
		}
		*f.target = strings.TrimSpace(s)
	}
	for _, f := range []struct {
		key    string
		target *int
	}{
		{"salary", &input.Salary},
		{"age", &input.Age},
	} {
		value, found := lookupField(fields, f.key)
		if !found {
			continue
		}
		i, err := toInt(value)
		if err != nil {
			problems = append(problems, f.key+": "+err.Error())
			continue
		}
		*f.target = i
	}
	if len(problems) > 0 {
		return nil, errors.Wrap(ErrInvalidInput, strings.Join(problems, "; "))
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}

// Validate checks the field level constraints of the input
func (e *EmployeeInput) Validate() error {
	if e == nil {
		return errors.Wrap(ErrInvalidInput, "no employee input provided")
	}
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errors.Wrap(ErrInvalidInput, err.Error())
	}
	problems := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		problems = append(problems, fieldErr.Field()+": "+validationMessage(fieldErr))
	}
	sort.Strings(problems)
	return errors.Wrap(ErrInvalidInput, strings.Join(problems, "; "))
}

func lookupField(fields map[string]any, key string) (any, bool) {
	if value, ok := fields[key]; ok && value != nil {
		return value, true
	}
	if value, ok := fields["employee_"+key]; ok && value != nil {
		return value, true
	}
	return nil, false
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	default:
		return 0, fmt.Errorf("must be a number, got %T", value)
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int(v), nil
	case json.Number:
		i, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("must be a whole number")
		}
		return i, nil
	}
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "invalid email format"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	default:
		return "invalid value"
	}
}
