// Package auth verifies bearer tokens issued by the external identity
// provider and extracts the caller's stable user identifier.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// JWTVerifier checks tokens signed either with a shared HMAC secret (HS256)
// or with the provider's RSA key (RS256).
type JWTVerifier struct {
	hmacSecret []byte
	publicKey  *rsa.PublicKey
	issuer     string
	leeway     time.Duration
}

// VerifierOption configures a JWTVerifier.
type VerifierOption func(*JWTVerifier)

// WithIssuer requires the "iss" claim to equal issuer.
func WithIssuer(issuer string) VerifierOption {
	return func(v *JWTVerifier) { v.issuer = issuer }
}

// WithLeeway tolerates clock skew when checking time-based claims.
func WithLeeway(d time.Duration) VerifierOption {
	return func(v *JWTVerifier) { v.leeway = d }
}

// NewHMACVerifier returns a verifier for HS256 tokens.
func NewHMACVerifier(secret string, opts ...VerifierOption) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("empty HMAC secret")
	}
	v := &JWTVerifier{hmacSecret: []byte(secret)}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// NewRSAVerifier returns a verifier for RS256 tokens using a PEM-encoded
// public key.
func NewRSAVerifier(publicKeyPEM []byte, opts ...VerifierOption) (*JWTVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	v := &JWTVerifier{publicKey: key}
	for _, o := range opts {
		o(v)
	}
	return v, nil
}

// Verify validates token and returns its subject, the external auth ID.
func (v *JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.publicKey != nil {
		parserOpts = append(parserOpts, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	} else {
		parserOpts = append(parserOpts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, parserOpts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (v *JWTVerifier) keyFunc(t *jwt.Token) (any, error) {
	if v.publicKey != nil {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.publicKey, nil
	}
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return v.hmacSecret, nil
}
