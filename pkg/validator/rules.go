package validator

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// InList requires value to be one of allowed.
func InList[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(allowed, value)
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be one of: %v", allowed),
			TranslationKey: "validation.in_list",
			TranslationValues: map[string]any{
				"field":          field,
				"allowed_values": allowed,
			},
		},
	}
}

// MinNum requires value >= min.
func MinNum[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at least %v", min),
			TranslationKey: "validation.min",
			TranslationValues: map[string]any{
				"field": field,
				"min":   min,
			},
		},
	}
}

// MaxNum requires value <= max.
func MaxNum[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool {
			return value <= max
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %v", max),
			TranslationKey: "validation.max",
			TranslationValues: map[string]any{
				"field": field,
				"max":   max,
			},
		},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return len(value) <= max
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey: "validation.max_length",
			TranslationValues: map[string]any{
				"field": field,
				"max":   max,
			},
		},
	}
}

// DateAfter requires value to be strictly after the given instant.
func DateAfter(field string, value, after time.Time) Rule {
	return Rule{
		Check: func() bool {
			return value.After(after)
		},
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be after %s", after.Format(time.RFC3339)),
			TranslationKey: "validation.date_after",
			TranslationValues: map[string]any{
				"field": field,
				"after": after.Format(time.RFC3339),
			},
		},
	}
}

func NonNilUUID(field string, value uuid.UUID) Rule {
	return Rule{
		Check: func() bool {
			return value != uuid.Nil
		},
		Error: ValidationError{
			Field:          field,
			Message:        "UUID cannot be nil",
			TranslationKey: "validation.uuid_not_nil",
			TranslationValues: map[string]any{
				"field": field,
			},
		},
	}
}

// ValidUUID requires value to be a canonical 36-character UUID string.
func ValidUUID(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if len(value) != 36 {
				return false
			}
			_, err := uuid.Parse(value)
			return err == nil
		},
		Error: ValidationError{
			Field:          field,
			Message:        "must be a valid UUID",
			TranslationKey: "validation.uuid",
			TranslationValues: map[string]any{
				"field": field,
			},
		},
	}
}
