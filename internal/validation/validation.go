// Package validation checks user input before it reaches a backend.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength matches the hosted auth service's default policy
const MinPasswordLength = 6

// MaxMeaningLength bounds an English meaning so it fits every dialect's column
const MaxMeaningLength = 255

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < MinPasswordLength {
		return ValidationError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", MinPasswordLength)}
	}
	return nil
}

// ValidateCredentials checks an email/password pair for sign-up
func ValidateCredentials(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidateMeaning checks an English meaning for import
func ValidateMeaning(meaning string) error {
	meaning = strings.TrimSpace(meaning)
	if meaning == "" {
		return ValidationError{Field: "meaning", Message: "meaning is required"}
	}
	if utf8.RuneCountInString(meaning) > MaxMeaningLength {
		return ValidationError{Field: "meaning", Message: fmt.Sprintf("meaning must be at most %d characters", MaxMeaningLength)}
	}
	return nil
}

// ValidateForm checks one (form type, form value) pair for import
func ValidateForm(formType, formValue string) error {
	if strings.TrimSpace(formType) == "" {
		return ValidationError{Field: "form_type", Message: "form type is required"}
	}
	if strings.TrimSpace(formValue) == "" {
		return ValidationError{Field: "form_value", Message: "form value is required"}
	}
	return nil
}
