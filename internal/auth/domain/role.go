package domain

// Built-in roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)
