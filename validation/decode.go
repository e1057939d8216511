package validation

import (
	"bytes"
	"encoding/json"
	"reflect"

	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// DecodeStrict decodes a JSON object into the struct pointed to by dst one
// field at a time, so that every bad key is reported under its own name.
// Keys listed in readOnly are accepted and ignored; any other key without a
// matching field is rejected.
func DecodeStrict(raw []byte, dst interface{}, readOnly ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Errors{NonFieldErrors: "Invalid data. Expected an object."}
	}

	target := reflect.ValueOf(dst).Elem()
	index := fieldIndex(target.Type())
	ignored := make(map[string]bool, len(readOnly))
	for _, name := range readOnly {
		ignored[name] = true
	}

	errs := Errors{}
	for key, value := range fields {
		i, ok := index[key]
		if !ok {
			if !ignored[key] {
				errs.Add(key, "Unknown field.")
			}
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			errs.Add(key, "This field may not be null.")
			continue
		}

		field := target.Field(i)
		holder := reflect.New(field.Type())
		if err := json.Unmarshal(value, holder.Interface()); err != nil {
			errs.Add(key, invalidMessage(field.Type()))
			continue
		}
		field.Set(holder.Elem())
	}
	return errs.Err()
}

// IsObject reports whether raw holds a JSON object.
func IsObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func fieldIndex(t reflect.Type) map[string]int {
	index := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := jsonName(f); name != "" {
			index[name] = i
		}
	}
	return index
}

func invalidMessage(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == decimalType {
		return "A valid number is required."
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Bool:
		return "Must be a valid boolean."
	default:
		return "Invalid value."
	}
}
