// Package nonce issues and checks the signed, time-bound tokens that tie an
// OAuth attempt to the shop that started it. A token binds a subject (the
// shop domain or, after completion, the user id) and a one-time state value.
//
// Tokens are not tracked after issue: validity is purely signature plus time
// window, so a captured token can be replayed until it expires.
package nonce

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// DefaultValidity matches the window the authorize redirect gives the merchant.
const DefaultValidity = 600 * time.Second

// Service signs and verifies nonce tokens with a shared HS256 key.
type Service struct {
	signingKey []byte
	issuer     string
	leeway     time.Duration
	nowFunc    func() time.Time
	logger     zerolog.Logger
}

// New returns a Service. It fails only when the signing key is missing.
func New(signingKey, issuer string, leeway time.Duration, logger zerolog.Logger) (*Service, error) {
	if signingKey == "" {
		return nil, errors.New("nonce: signing key is not configured")
	}
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		leeway:     leeway,
		nowFunc:    time.Now,
		logger:     logger,
	}, nil
}

// Issue produces a signed token with subject, jti = nonce and the given
// validity window starting at issuedAt.
func (s *Service) Issue(subject, nonce string, issuedAt time.Time, validity time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        nonce,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validity)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// Verify reports whether tokenString is a currently valid token for the
// expected subject and nonce. Every failure mode collapses to false; the
// reason is only logged.
func (s *Service) Verify(tokenString, expectedSubject, expectedNonce string) bool {
	claims := new(jwt.RegisteredClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(func() time.Time { return s.nowFunc() }),
	)
	if err != nil {
		s.logger.Debug().Err(err).Msg("nonce token rejected")
		return false
	}
	if !parsed.Valid {
		s.logger.Debug().Msg("nonce token invalid")
		return false
	}
	if claims.Issuer != s.issuer {
		s.logger.Debug().Str("issuer", claims.Issuer).Msg("nonce issuer mismatch")
		return false
	}
	if claims.Subject != expectedSubject {
		s.logger.Debug().Str("subject", claims.Subject).Msg("nonce subject mismatch")
		return false
	}
	if claims.ID != expectedNonce {
		s.logger.Debug().Msg("nonce state mismatch")
		return false
	}
	return true
}
