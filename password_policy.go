package auth

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MinPasswordLength = 8
	// MaxRepeatedChars is the longest allowed run of one character
	MaxRepeatedChars = 2
)

var (
	upperRe   = regexp.MustCompile(`[A-Z]`)
	lowerRe   = regexp.MustCompile(`[a-z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[^A-Za-z0-9\s]`)
)

// PasswordRules returns the validation rules every local password must pass
func PasswordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(MinPasswordLength, 0).Error("must be at least 8 characters long"),
		validation.Match(upperRe).Error("must contain an upper case letter"),
		validation.Match(lowerRe).Error("must contain a lower case letter"),
		validation.Match(digitRe).Error("must contain a digit"),
		validation.Match(specialRe).Error("must contain a special character"),
		validation.By(noRepeatedRuns),
	}
}

// ValidatePassword checks password against PasswordRules
func ValidatePassword(password string) error {
	return validation.Validate(password, PasswordRules()...)
}

func noRepeatedRuns(value any) error {
	s, _ := value.(string)
	var prev rune
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run > MaxRepeatedChars {
			return errors.New("must not repeat the same character 3 or more times in a row")
		}
	}
	return nil
}
