package validator

import (
	"errors"
	"strings"
)

// Numeric is the set of types accepted by the numeric rules.
type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ValidationError describes a failed rule for a single field.
// TranslationKey and TranslationValues let API layers render localized messages.
type ValidationError struct {
	Field             string         `json:"field"`
	Message           string         `json:"message"`
	TranslationKey    string         `json:"translation_key,omitempty"`
	TranslationValues map[string]any `json:"-"`
}

// ValidationErrors holds at most one failure per field, in rule order.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	for i, err := range ve {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(err.Field + ": " + err.Message)
	}
	return b.String()
}

// Has reports whether field failed.
func (ve ValidationErrors) Has(field string) bool {
	_, ok := ve.Lookup(field)
	return ok
}

// Lookup returns the failure reported for field.
func (ve ValidationErrors) Lookup(field string) (ValidationError, bool) {
	for _, err := range ve {
		if err.Field == field {
			return err, true
		}
	}
	return ValidationError{}, false
}

// Rule pairs a check with the error reported when the check fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply evaluates the rules in order. Once a field has failed, later rules
// for the same field are skipped, so callers may stack a general rule before
// a narrower one.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, rule := range rules {
		if errs.Has(rule.Error.Field) {
			continue
		}
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ExtractValidationErrors unwraps ValidationErrors from err, including joined
// errors. It returns nil when err carries none.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
