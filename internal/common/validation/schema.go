package validation

import (
	"fmt"
	"regexp"
)

// Schema describes the expected shape of a preference map. Descriptors
// in the content registry are expressed with these schemas so that
// adding a content type means adding one table row.
type Schema struct {
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type      string    `json:"type"`
	Minimum   *float64  `json:"minimum,omitempty"`
	Maximum   *float64  `json:"maximum,omitempty"`
	Enum      []string  `json:"enum,omitempty"`
	Pattern   *string   `json:"pattern,omitempty"`
	MinLength *int      `json:"minLength,omitempty"`
	MaxLength *int      `json:"maxLength,omitempty"`
	MinItems  *int      `json:"minItems,omitempty"`
	MaxItems  *int      `json:"maxItems,omitempty"`
	Items     *Property `json:"items,omitempty"`
}

type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// GetErrorMessages flattens errors into printable strings.
func (r *Result) GetErrorMessages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return msgs
}

// Validate checks input against the schema with detailed errors.
func Validate(input map[string]interface{}, schema Schema) *Result {
	errs := []FieldError{}

	for _, required := range schema.Required {
		v, exists := input[required]
		if !exists || isEmpty(v) {
			errs = append(errs, FieldError{
				Field:   required,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for fieldName, value := range input {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			if !schema.AdditionalProperties {
				errs = append(errs, FieldError{
					Field:   fieldName,
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		errs = append(errs, validateField(fieldName, value, prop)...)
	}

	return &Result{Valid: len(errs) == 0, Errors: errs}
}

func isEmpty(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []interface{}:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

func validateField(fieldName string, value interface{}, prop Property) []FieldError {
	errs := []FieldError{}

	if typeErr := validateType(value, prop.Type); typeErr != nil {
		return append(errs, FieldError{
			Field:   fieldName,
			Message: typeErr.Error(),
			Code:    "INVALID_TYPE",
		})
	}

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strVal) < *prop.MinLength {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    "MIN_LENGTH_VIOLATION",
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}
		if prop.Pattern != nil {
			matched, err := regexp.MatchString(*prop.Pattern, strVal)
			if err != nil || !matched {
				errs = append(errs, FieldError{
					Field:   fieldName,
					Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern),
					Code:    "PATTERN_MISMATCH",
				})
			}
		}
		if len(prop.Enum) > 0 && !containsString(prop.Enum, strVal) {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if numVal, ok := toFloat(value); ok {
		if prop.Minimum != nil && numVal < *prop.Minimum {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %v", *prop.Minimum),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && numVal > *prop.Maximum {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %v", *prop.Maximum),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	if items, ok := asSlice(value); ok {
		if prop.MinItems != nil && len(items) < *prop.MinItems {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("must contain at least %d items", *prop.MinItems),
				Code:    "MIN_ITEMS_VIOLATION",
			})
		}
		if prop.MaxItems != nil && len(items) > *prop.MaxItems {
			errs = append(errs, FieldError{
				Field:   fieldName,
				Message: fmt.Sprintf("must contain at most %d items", *prop.MaxItems),
				Code:    "MAX_ITEMS_VIOLATION",
			})
		}
		if prop.Items != nil {
			for i, item := range items {
				errs = append(errs, validateField(fmt.Sprintf("%s[%d]", fieldName, i), item, *prop.Items)...)
			}
		}
	}

	return errs
}

func validateType(value interface{}, expected string) error {
	if expected == "" || value == nil {
		return nil
	}
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number", "integer":
		if _, ok := toFloat(value); !ok {
			return fmt.Errorf("expected %s, got %T", expected, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "array":
		if _, ok := asSlice(value); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}
	return nil
}

func toFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asSlice(value interface{}) ([]interface{}, bool) {
	switch s := value.(type) {
	case []interface{}:
		return s, true
	case []string:
		out := make([]interface{}, len(s))
		for i, v := range s {
			out[i] = v
		}
		return out, true
	default:
		return nil, false
	}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
