// Package token seals a routed session into a signed JWT so the route can
// travel with each request of a remote webmail host.
//
// Tokens are signed, not encrypted. They carry SMTP credentials when the
// domain configures them, so the host must keep tokens server side (in its
// own session store) and never hand them to the browser.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"domainmap/internal/route"
	"domainmap/internal/session"
)

// Issuer is the iss claim of every token.
const Issuer = "domainmap"

var (
	// ErrInvalid is returned for malformed, tampered or foreign tokens.
	ErrInvalid = errors.New("invalid session token")
	// ErrExpired is returned once a token has outlived its TTL.
	ErrExpired = errors.New("session token expired")
)

// Claims are the JWT claims of a session token.
type Claims struct {
	jwt.RegisteredClaims
	Route route.Route `json:"route"`
}

// Sealer signs and verifies session tokens.
type Sealer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewSealer creates a sealer using HMAC-SHA256 with secret.
func NewSealer(secret []byte, ttl time.Duration, clock clockwork.Clock) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sealer{secret: secret, ttl: ttl, clock: clock}, nil
}

// Seal returns a token for a routed session.
func (s *Sealer) Seal(sess *session.Session) (string, error) {
	r, ok := sess.Route()
	if !ok {
		return "", fmt.Errorf("failed to seal session: %w", session.ErrNotRouted)
	}

	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   r.Address(),
			ID:        sess.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Route: r,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Open verifies tok and rebuilds the routed session it was sealed from.
func (s *Sealer) Open(tok string) (*session.Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tok, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return session.FromRoute(claims.ID, claims.Route), nil
}
