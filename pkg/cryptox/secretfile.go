package cryptox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LoadOrCreateSecretFile returns the contents of file. If the file is missing,
// generate is called and its output is written with 0600 permissions first.
func LoadOrCreateSecretFile(file string, generate func() ([]byte, error)) ([]byte, error) {
	if file == "" {
		return nil, errors.New("cryptox: secret file path is empty")
	}
	file = filepath.Clean(file)

	b, err := os.ReadFile(file)
	if err == nil {
		if len(b) == 0 {
			return nil, fmt.Errorf("cryptox: secret file %s is empty", file)
		}
		return b, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cryptox: read %s: %w", file, err)
	}

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return nil, fmt.Errorf("cryptox: create dir for %s: %w", file, err)
	}

	b, err = generate()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(file, b, 0600); err != nil {
		return nil, fmt.Errorf("cryptox: write %s: %w", file, err)
	}
	return b, nil
}
