package tool

import (
	"fmt"
	"regexp"
)

// ValidationError reports why a tool invocation's arguments failed §4.5's
// pre-dispatch checks: required-present, unknown-rejected, type match,
// enum/minimum/maximum/pattern/array-items enforcement.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateArguments checks args against schema per §4.5, returning the first
// violation found. A nil return means args may be dispatched to the handler.
func ValidateArguments(schema InputSchema, args map[string]any) error {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for name := range args {
		if _, known := schema.Properties[name]; !known {
			return &ValidationError{Field: name, Message: "unknown parameter"}
		}
	}

	for name := range required {
		if _, present := args[name]; !present {
			return &ValidationError{Field: name, Message: "required parameter missing"}
		}
	}

	for name, param := range schema.Properties {
		value, present := args[name]
		if !present {
			continue
		}
		if err := validateValue(name, param, value); err != nil {
			return err
		}
	}

	return nil
}

func validateValue(field string, param Parameter, value any) error {
	if err := checkType(field, param.Type, value); err != nil {
		return err
	}

	if len(param.Enum) > 0 {
		s, ok := value.(string)
		if !ok || !contains(param.Enum, s) {
			return &ValidationError{Field: field, Message: fmt.Sprintf("must be one of %v", param.Enum)}
		}
	}

	if num, ok := asFloat(value); ok {
		if param.Minimum != nil && num < *param.Minimum {
			return &ValidationError{Field: field, Message: fmt.Sprintf("below minimum %v", *param.Minimum)}
		}
		if param.Maximum != nil && num > *param.Maximum {
			return &ValidationError{Field: field, Message: fmt.Sprintf("above maximum %v", *param.Maximum)}
		}
	}

	if param.Pattern != "" {
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Field: field, Message: "pattern constraint requires a string"}
		}
		re, err := regexp.Compile(param.Pattern)
		if err != nil {
			return &ValidationError{Field: field, Message: "invalid pattern in schema"}
		}
		if !re.MatchString(s) {
			return &ValidationError{Field: field, Message: fmt.Sprintf("does not match pattern %q", param.Pattern)}
		}
	}

	if param.Type == "array" && param.Items != nil {
		items, ok := value.([]any)
		if !ok {
			return &ValidationError{Field: field, Message: "must be an array"}
		}
		for i, item := range items {
			if err := validateValue(fmt.Sprintf("%s[%d]", field, i), *param.Items, item); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkType(field, want string, value any) error {
	ok := false
	switch want {
	case "string":
		_, ok = value.(string)
	case "integer":
		_, isFloat := asFloat(value)
		_, isInt := value.(int)
		ok = isFloat || isInt
	case "number":
		_, ok = asFloat(value)
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	default:
		ok = true
	}
	if !ok {
		return &ValidationError{Field: field, Message: fmt.Sprintf("expected type %s", want)}
	}
	return nil
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
