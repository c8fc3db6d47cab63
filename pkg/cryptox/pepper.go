package cryptox

import (
	"sync"
)

var (
	pepperMu sync.RWMutex
	pepper   string
)

// SetPepper installs the pepper mixed into every password hash.
func SetPepper(p string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepper = p
}

// Pepper returns the current pepper, empty until LoadPepper or SetPepper ran.
func Pepper() string {
	pepperMu.RLock()
	defer pepperMu.RUnlock()
	return pepper
}

// LoadPepper reads the pepper from file, generating and persisting a new one
// when the file does not exist yet, and installs it.
func LoadPepper(file string) error {
	b, err := LoadOrCreateSecretFile(file, func() ([]byte, error) {
		p, err := GenerateToken(keyLength)
		return []byte(p), err
	})
	if err != nil {
		return err
	}
	SetPepper(string(b))
	return nil
}
