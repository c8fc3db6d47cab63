package domain

// Identity is the snapshot of an account as the directory saw it at
// authentication or lookup time.
type Identity struct {
	UserID      string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	DisplayName string
	Roles       []string
	Enabled     bool
}

// EmailRecord is what an email lookup yields for password recovery.
type EmailRecord struct {
	UserID   string
	Username string
	Email    string
}

// ClientInfo describes the caller of an operation for auditing.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
