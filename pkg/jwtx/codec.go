package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformed is the only error Decode returns. Signature, structure,
// algorithm, issuer and claim-shape failures all collapse into it.
var ErrMalformed = errors.New("jwtx: malformed token")

// Codec turns Claims into signed compact JWTs and back. Decode never judges
// expiry; callers compare exp against their own clock.
type Codec struct {
	keys   *Keys
	issuer string
	parser *jwt.Parser
}

// NewCodec creates a codec bound to one set of keys and one issuer.
func NewCodec(keys *Keys, issuer string) (*Codec, error) {
	if keys == nil {
		return nil, errors.New("jwtx: keys are required")
	}
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	if issuer == "" {
		return nil, errors.New("jwtx: issuer is required")
	}

	return &Codec{
		keys:   keys,
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{keys.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Issuer returns the issuer stamped into and required from every token.
func (c *Codec) Issuer() string { return c.issuer }

// Keys exposes the signing material, mainly for JWKS publishing.
func (c *Codec) Keys() *Keys { return c.keys }

// Encode signs the claims. An empty issuer is filled in with the codec's.
func (c *Codec) Encode(claims Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = c.issuer
	}
	if err := claims.validateShape(); err != nil {
		return "", err
	}

	t := jwt.NewWithClaims(c.keys.method(), claims)
	if kid := c.keys.KID(); kid != "" {
		t.Header["kid"] = kid
	}
	return t.SignedString(c.keys.signingKey())
}

// Decode verifies the signature and claim shape, returning the claims only if
// everything checks out.
func (c *Codec) Decode(raw string) (Claims, error) {
	var claims Claims

	token, err := c.parser.ParseWithClaims(raw, &claims, c.keyFunc)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := claims.validateShape(); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return claims, nil
}

// PeekJTI reads the jti without verifying anything. Returns "" for input that
// cannot be parsed.
func PeekJTI(raw string) string {
	claims, _ := PeekClaims(raw)
	return claims.ID
}

// PeekClaims reads the claims without verifying the signature, issuer or
// shape. Nothing it returns may be trusted beyond scoping a best-effort
// revocation. ok is false for input that cannot be parsed.
func PeekClaims(raw string) (claims Claims, ok bool) {
	defer func() {
		if recover() != nil {
			claims, ok = Claims{}, false
		}
	}()

	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Claims{}, false
	}
	return claims, true
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if kid := c.keys.KID(); kid != "" {
		if got, _ := t.Header["kid"].(string); got != kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", got)
		}
	}
	return c.keys.verificationKey(), nil
}
