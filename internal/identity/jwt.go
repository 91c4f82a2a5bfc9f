// Package identity resolves bearer tokens into authenticated actors.
package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// ErrUnauthenticated is returned for missing, malformed, expired or
// unverifiable tokens.
var ErrUnauthenticated = errors.New("unauthenticated")

// Config defines how tokens are signed and verified.
type Config struct {
	Secret []byte
	// Issuer is optional. When set, tokens must carry the same iss claim.
	Issuer string
	Now    func() time.Time
}

// claims is the token payload. Role names are normalised on the way in,
// so "principal" and "Admin" both resolve to admin.
type claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	Name    string `json:"name,omitempty"`
	College string `json:"college,omitempty"`
}

// Resolver verifies HS256 tokens.
type Resolver struct {
	cfg Config
}

// NewResolver returns a resolver for cfg.
func NewResolver(cfg Config) (*Resolver, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("identity: secret is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{cfg: cfg}, nil
}

// Resolve verifies token and returns the actor it names.
func (r *Resolver) Resolve(token string) (model.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Actor{}, fmt.Errorf("%w: token is required", ErrUnauthenticated)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if r.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.cfg.Issuer))
	}

	var parsed claims
	if _, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return r.cfg.Secret, nil
	}, opts...); err != nil {
		return model.Actor{}, mapJWTError(err)
	}

	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return model.Actor{}, fmt.Errorf("%w: sub is required", ErrUnauthenticated)
	}
	role, err := model.ParseRole(parsed.Role)
	if err != nil {
		return model.Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	return model.Actor{
		UserID:  subject,
		Role:    role,
		Name:    strings.TrimSpace(parsed.Name),
		College: strings.TrimSpace(parsed.College),
	}, nil
}

// Issue signs a token for actor valid for ttl. Used by tests and local tooling.
func (r *Resolver) Issue(actor model.Actor, ttl time.Duration) (string, error) {
	now := r.cfg.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			Issuer:    r.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    string(actor.Role),
		Name:    actor.Name,
		College: actor.College,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(r.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token expired", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return fmt.Errorf("%w: token not yet valid", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: issuer mismatch", ErrUnauthenticated)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: bad signature", ErrUnauthenticated)
	default:
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
}
