package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Required validates that a string is not empty after trimming whitespace.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:             field,
			Message:           "field is required",
			TranslationKey:    "validation.required",
			TranslationValues: map[string]any{"field": field},
		},
	}
}

func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) >= min
		},
		Error: ValidationError{
			Field:             field,
			Message:           fmt.Sprintf("must be at least %d characters long", min),
			TranslationKey:    "validation.min_length",
			TranslationValues: map[string]any{"field": field, "min": min},
		},
	}
}

func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) <= max
		},
		Error: ValidationError{
			Field:             field,
			Message:           fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey:    "validation.max_length",
			TranslationValues: map[string]any{"field": field, "max": max},
		},
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`)

// ValidEmail accepts plain addresses only (no display names). Empty values
// pass; combine with Required.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			if value == "" {
				return true
			}
			if len(value) > 254 || !emailRegex.MatchString(value) {
				return false
			}
			addr, err := mail.ParseAddress(value)
			return err == nil && addr.Address == value
		},
		Error: ValidationError{
			Field:             field,
			Message:           "must be a valid email address",
			TranslationKey:    "validation.email",
			TranslationValues: map[string]any{"field": field},
		},
	}
}

func containsRune(field, value, key, what string, pred func(rune) bool) Rule {
	return Rule{
		Check: func() bool {
			return strings.IndexFunc(value, pred) >= 0
		},
		Error: ValidationError{
			Field:             field,
			Message:           "must contain at least one " + what,
			TranslationKey:    key,
			TranslationValues: map[string]any{"field": field},
		},
	}
}

func ContainsUppercase(field, value string) Rule {
	return containsRune(field, value, "validation.contains_uppercase", "uppercase letter", unicode.IsUpper)
}

func ContainsLowercase(field, value string) Rule {
	return containsRune(field, value, "validation.contains_lowercase", "lowercase letter", unicode.IsLower)
}

func ContainsDigit(field, value string) Rule {
	return containsRune(field, value, "validation.contains_digit", "digit", unicode.IsDigit)
}

// EqualTo validates that value matches the value of another field.
func EqualTo(field, value, otherField, other string) Rule {
	return Rule{
		Check: func() bool {
			return value == other
		},
		Error: ValidationError{
			Field:             field,
			Message:           fmt.Sprintf("must match %s", otherField),
			TranslationKey:    "validation.equal_to",
			TranslationValues: map[string]any{"field": field, "other": otherField},
		},
	}
}

// OneOf validates that value is one of options. Empty values pass.
func OneOf(field, value string, options []string) Rule {
	return Rule{
		Check: func() bool {
			return value == "" || slices.Contains(options, value)
		},
		Error: ValidationError{
			Field:             field,
			Message:           fmt.Sprintf("must be one of: %s", strings.Join(options, ", ")),
			TranslationKey:    "validation.one_of",
			TranslationValues: map[string]any{"field": field, "options": options},
		},
	}
}
