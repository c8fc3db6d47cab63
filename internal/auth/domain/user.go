package domain

import "time"

// User is a directory row. The core never sees it directly; it works with
// the Identity snapshot instead.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	DisplayName  string
	PasswordHash string // argon2 encoded
	Roles        []string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the immutable view of the user handed to the token core.
func (u User) Identity() Identity {
	display := u.DisplayName
	if display == "" {
		display = u.Username
	}
	return Identity{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: display,
		Roles:       append([]string(nil), u.Roles...),
		Enabled:     u.Enabled,
	}
}
