package auth

import (
	"crypto/rsa"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"go.uber.org/zap"
)

// SigningAlgorithm is the only algorithm tokens may be signed with.
// The token header never selects the verification algorithm.
const SigningAlgorithm = "RS256"

// placeholderEmailDomain is used when the identity provider sends no email
const placeholderEmailDomain = "users.catalog.invalid"

var (
	ErrMissingHeader = apperr.Authentication("Authorization header required")
	ErrInvalidHeader = apperr.Authentication("Invalid authorization header format")
	ErrInvalidToken  = apperr.Authentication("Invalid token")
	ErrNotConfigured = apperr.Authentication("Authentication is not configured")
)

// Claims represents the JWT claims issued by the identity provider
type Claims struct {
	Email        string `json:"email,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	Name         string `json:"name,omitempty"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// ResolvedEmail returns email, then email_address, then a placeholder derived from the subject
func (c *Claims) ResolvedEmail() string {
	if e := strings.TrimSpace(c.Email); e != "" {
		return e
	}
	if e := strings.TrimSpace(c.EmailAddress); e != "" {
		return e
	}
	return c.Subject + "@" + placeholderEmailDomain
}

// ResolvedName returns name, then "first last", then nil
func (c *Claims) ResolvedName() *string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return &n
	}
	full := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if full != "" {
		return &full
	}
	return nil
}

// Verifier checks token signatures against a single configured RSA public key
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
	logger *zap.Logger
}

// NewVerifier parses the PEM public key. An empty key is accepted so the
// server can start; every verification then fails and is logged.
func NewVerifier(publicKeyPEM string, logger *zap.Logger) (*Verifier, error) {
	v := &Verifier{
		parser: jwt.NewParser(jwt.WithValidMethods([]string{SigningAlgorithm})),
		logger: logger,
	}
	if strings.TrimSpace(publicKeyPEM) == "" {
		return v, nil
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// Configured reports whether a verification key is present
func (v *Verifier) Configured() bool {
	return v.key != nil
}

// Verify validates the token and returns its claims. Every failure, whatever
// check tripped, is reported as ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.key == nil {
		v.logger.Error("jwt public key is not configured; rejecting all bearer tokens")
		return nil, ErrNotConfigured
	}

	token, err := v.parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, ErrInvalidToken
		}
		return v.key, nil
	})
	if err != nil {
		v.logger.Debug("token verification failed", zap.Error(err))
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ExtractBearerToken returns the token from an Authorization header value.
// The header must be exactly "<scheme> <token>" with a case-insensitive
// "bearer" scheme.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidHeader
	}
	return parts[1], nil
}
