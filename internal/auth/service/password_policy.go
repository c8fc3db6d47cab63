package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SpecialCharacters is the set that satisfies RequireSpecial.
const SpecialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// PasswordPolicy constrains new passwords.
type PasswordPolicy struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		MaxLength:      128,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Validate returns a *PasswordPolicyError listing every violated rule, or nil.
func (p PasswordPolicy) Validate(password string) error {
	var violations []string

	n := utf8.RuneCountInString(password)
	if p.MinLength > 0 && n < p.MinLength {
		violations = append(violations, fmt.Sprintf("must be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		violations = append(violations, fmt.Sprintf("must be at most %d characters", p.MaxLength))
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(SpecialCharacters, r):
			special = true
		}
	}

	if p.RequireUpper && !upper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if p.RequireLower && !lower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if p.RequireDigit && !digit {
		violations = append(violations, "must contain a digit")
	}
	if p.RequireSpecial && !special {
		violations = append(violations, "must contain a special character")
	}

	if len(violations) > 0 {
		return &PasswordPolicyError{Violations: violations}
	}
	return nil
}
