package domain

// BootstrapData seeds the first administrator into an empty directory.
type BootstrapData struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string // generated when empty
}

// BootstrapResult is returned once; the password is not recoverable later.
type BootstrapResult struct {
	UserID   string
	Username string
	Password string
}
