package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported JWT signing algorithms
const (
	AlgorithmHS256 = "HS256"
	AlgorithmEdDSA = "EdDSA"
)

// MinHMACSecretLength is the shortest HS256 secret we accept (256 bits).
const MinHMACSecretLength = 32

// Keys is the signing material for a process. It is built once at startup and
// never changes afterwards, so it is safe to share between goroutines.
type Keys struct {
	alg    string
	kid    string
	secret []byte
	priv   ed25519.PrivateKey
	pub    ed25519.PublicKey
}

// NewHS256Keys builds HMAC-SHA256 keys from a shared secret.
func NewHS256Keys(secret []byte) (*Keys, error) {
	if len(secret) < MinHMACSecretLength {
		return nil, fmt.Errorf("jwtx: HS256 secret must be at least %d bytes", MinHMACSecretLength)
	}

	return &Keys{
		alg:    AlgorithmHS256,
		secret: append([]byte(nil), secret...),
	}, nil
}

// NewEdDSAKeys loads an Ed25519 private key from PEM bytes.
// Ed25519 keys must be in PKCS8 format.
func NewEdDSAKeys(kid string, pemKey []byte) (*Keys, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}

	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}

	k := &Keys{
		alg:  AlgorithmEdDSA,
		kid:  kid,
		priv: key,
		pub:  key.Public().(ed25519.PublicKey),
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *Keys) Alg() string { return k.alg }
func (k *Keys) KID() string { return k.kid }

// Validate does a quick sanity check to make sure we actually have keys.
func (k *Keys) Validate() error {
	switch k.alg {
	case AlgorithmHS256:
		if len(k.secret) < MinHMACSecretLength {
			return errors.New("jwtx: HS256 secret too short")
		}
	case AlgorithmEdDSA:
		if len(k.priv) != ed25519.PrivateKeySize {
			return errors.New("jwtx: invalid Ed25519 private key size")
		}
		if len(k.pub) != ed25519.PublicKeySize {
			return errors.New("jwtx: invalid Ed25519 public key size")
		}
	default:
		return fmt.Errorf("jwtx: unsupported algorithm %q", k.alg)
	}
	return nil
}

// PublicJWKS returns the verification keys that can be published. HS256 keys
// are symmetric, so the set is empty.
func (k *Keys) PublicJWKS() JWKS {
	if k.alg != AlgorithmEdDSA {
		return JWKS{Keys: []JWK{}}
	}
	return JWKS{Keys: []JWK{NewEd25519JWK(k.kid, "sig", k.alg, k.pub)}}
}

func (k *Keys) method() jwt.SigningMethod {
	if k.alg == AlgorithmEdDSA {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (k *Keys) signingKey() any {
	if k.alg == AlgorithmEdDSA {
		return k.priv
	}
	return k.secret
}

func (k *Keys) verificationKey() any {
	if k.alg == AlgorithmEdDSA {
		return k.pub
	}
	return k.secret
}
