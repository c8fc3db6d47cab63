package authsdk

import (
	"net/mail"
	"regexp"
	"strings"
)

const (
	bootstrapRequiredReason = "required"
	bootstrapOnlyAlphanum   = "must only contain a-z, A-Z, 0-9, _, . or -"
)

var reUsername = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Validate checks if the bootstrap request fields are valid.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (b BootstrapRequest) Validate() map[string]string {
	errs := make(map[string]string)

	b.validateUsername(errs)
	b.validateEmail(errs)
	b.validatePassword(errs)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (b BootstrapRequest) validateUsername(errs map[string]string) {
	username := strings.TrimSpace(b.AdminUsername)
	switch {
	case username == "":
		errs["admin_username"] = bootstrapRequiredReason
	case len(username) < 3 || len(username) > 32:
		errs["admin_username"] = "must be 3-32 characters"
	case !reUsername.MatchString(username):
		errs["admin_username"] = bootstrapOnlyAlphanum
	}
}

func (b BootstrapRequest) validateEmail(errs map[string]string) {
	email := strings.TrimSpace(b.AdminEmail)
	if email == "" {
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		errs["admin_email"] = "not a valid email address"
	}
}

// validatePassword only bounds the length; the server applies its policy.
func (b BootstrapRequest) validatePassword(errs map[string]string) {
	pw := b.AdminPassword
	switch {
	case pw == "":
		// generated by the server
	case len(pw) > 128:
		errs["admin_password"] = "too long (max 128)"
	}
}
