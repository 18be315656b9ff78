package auth

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/helpdesk/internal/config"
)

// IdentityClaims is what the external identity provider puts in its tokens.
// The subject carries the mirrored user id.
type IdentityClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the token subject.
func (c *IdentityClaims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.New("token subject is not a user id")
	}
	return id, nil
}

// TokenVerifier validates bearer tokens minted by the identity provider.
// The service never issues tokens itself.
type TokenVerifier struct {
	secret []byte
	issuer string
}

// NewTokenVerifier constructs a verifier from identity configuration.
func NewTokenVerifier(cfg config.IdentityConfig) *TokenVerifier {
	return &TokenVerifier{secret: []byte(cfg.TokenSecret), issuer: cfg.Issuer}
}

// Verify parses and validates a token string, returning its claims.
func (v *TokenVerifier) Verify(tokenString string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
