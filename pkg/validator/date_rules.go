package validator

import "time"

// DateLayout is the ISO calendar date format used by HTML date inputs.
const DateLayout = "2006-01-02"

// ValidDate validates that value parses with layout.
func ValidDate(field, value, layout string) Rule {
	return Rule{
		Check: func() bool {
			_, err := time.Parse(layout, value)
			return err == nil
		},
		Error: ValidationError{
			Field:             field,
			Message:           "must be a valid date",
			TranslationKey:    "validation.date",
			TranslationValues: map[string]any{"field": field, "layout": layout},
		},
	}
}

// MinAge validates that a person born on birthdate is at least minAge
// years old at now. Unparseable dates fail.
func MinAge(field, birthdate string, minAge int, now time.Time) Rule {
	return Rule{
		Check: func() bool {
			born, err := time.Parse(DateLayout, birthdate)
			if err != nil {
				return false
			}
			return Age(born, now) >= minAge
		},
		Error: ValidationError{
			Field:             field,
			Message:           "age is below the minimum",
			TranslationKey:    "validation.min_age",
			TranslationValues: map[string]any{"field": field, "min": minAge},
		},
	}
}

// Age returns full years elapsed between born and now.
func Age(born, now time.Time) int {
	years := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		years--
	}
	return years
}
