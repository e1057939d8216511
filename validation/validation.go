// Package validation turns candidate field sets into accepted values or a
// field-keyed error map.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// NonFieldErrors is the key used for errors that do not belong to one field.
const NonFieldErrors = "non_field_errors"

// Money columns are NUMERIC(10,2).
const (
	moneyPlaces    = 2
	moneyMaxDigits = 10
)

// Errors maps a field name to the reason it was rejected.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records msg for field, keeping the first message reported for it.
func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// Has reports whether field already failed.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Err returns nil when there are no errors, so callers never hand out a
// non-nil error wrapping an empty map.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsErrors extracts field errors from err, if it carries any.
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func validate() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(jsonName)
		v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
		if err := v.RegisterValidation("money", isMoney); err != nil {
			panic(err)
		}
		if err := v.RegisterValidation("nonul", hasNoNUL); err != nil {
			panic(err)
		}
		engine = v
	})
	return engine
}

// Check runs the struct tag rules on s and returns every failing field.
// The result is never nil.
func Check(s interface{}) Errors {
	errs := Errors{}
	err := validate().Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add(NonFieldErrors, "Invalid data.")
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.String && fe.Param() == "1" {
			return "This field may not be blank."
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "nonul":
		return "Null characters are not allowed."
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "email":
		return "Enter a valid email address."
	case "money":
		return fmt.Sprintf("Ensure that there are no more than %d digits in total and no more than %d decimal places.", moneyMaxDigits, moneyPlaces)
	default:
		return "Invalid value."
	}
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// decimalValue lets numeric tags such as gt=0 apply to decimal fields.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// isMoney reads the decimal from the parent struct, since the field value
// seen by tags has already gone through decimalValue.
func isMoney(fl validator.FieldLevel) bool {
	field := fl.Parent().FieldByName(fl.StructFieldName())
	for field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return false
		}
		field = field.Elem()
	}
	d, ok := field.Interface().(decimal.Decimal)
	return ok && IsMoney(d)
}

func hasNoNUL(fl validator.FieldLevel) bool {
	return !strings.ContainsRune(fl.Field().String(), 0)
}

// IsMoney reports whether d fits a NUMERIC(10,2) column.
func IsMoney(d decimal.Decimal) bool {
	if !d.Equal(d.Round(moneyPlaces)) {
		return false
	}
	limit := decimal.New(1, moneyMaxDigits-moneyPlaces)
	return d.Abs().LessThan(limit)
}
