package app

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/bartab-security/pkg/cryptox"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
)

// InitAuthKeys builds the signing keys for the configured algorithm.
//
//   - HS256: AUTH_SIGNING_SECRET when set, otherwise a random secret kept in
//     AUTH_SIGNING_KEY_FILE so tokens survive restarts.
//   - EdDSA: an Ed25519 PEM key kept in AUTH_SIGNING_KEY_FILE, generated on
//     first start. The public half is served from the JWKS endpoint.
func InitAuthKeys(cfg Config, logger *slog.Logger) (*jwtx.Keys, error) {
	switch cfg.Algorithm {
	case AlgorithmEdDSA:
		pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load EdDSA signing key: %w", err)
		}

		// kid is stable for a given key file
		kid := cryptox.FingerprintToken(string(pemKey))[:16]
		keys, err := jwtx.NewEdDSAKeys(kid, pemKey)
		if err != nil {
			return nil, err
		}

		logger.Info("EdDSA signing key loaded", "kid", kid, "file", cfg.SigningKeyFile)
		return keys, nil

	default:
		if cfg.SigningSecret != "" {
			logger.Info("HS256 signing secret loaded from environment")
			return jwtx.NewHS256Keys([]byte(cfg.SigningSecret))
		}

		secret, err := cryptox.LoadOrCreateSecretFile(cfg.SigningKeyFile, generateSecret)
		if err != nil {
			return nil, fmt.Errorf("load HS256 signing secret: %w", err)
		}

		logger.Info("HS256 signing secret loaded", "file", cfg.SigningKeyFile)
		return jwtx.NewHS256Keys(bytes.TrimSpace(secret))
	}
}

func generateSecret() ([]byte, error) {
	s, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
