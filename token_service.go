package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec signs and verifies time bounded claim sets.
type TokenCodec interface {
	Encode(claims Claims, ttl time.Duration) (string, error)
	Decode(token string, claims Claims) error
}

// TokenCodecImpl implements TokenCodec with HS256 JWTs.
type TokenCodecImpl struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
	logger     Logger
}

// TokenCodecOption configures a TokenCodecImpl
type TokenCodecOption func(*TokenCodecImpl)

// WithCodecClock overrides the clock used to stamp and verify tokens.
func WithCodecClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodecImpl) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger sets the logger.
func WithCodecLogger(logger Logger) TokenCodecOption {
	return func(c *TokenCodecImpl) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewTokenCodec creates a new TokenCodec instance
func NewTokenCodec(signingKey []byte, issuer string, opts ...TokenCodecOption) *TokenCodecImpl {
	c := &TokenCodecImpl{
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode stamps the registered claims and signs them.
func (c *TokenCodecImpl) Encode(claims Claims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	now := c.now()
	rc := claims.Registered()
	rc.Issuer = c.issuer
	rc.Audience = jwt.ClaimStrings{claims.TokenAudience()}
	rc.IssuedAt = jwt.NewNumericDate(now)
	rc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Decode verifies the token and fills claims. Failures are ErrTokenExpired
// or ErrTokenInvalid, both carrying the parser error as Source.
func (c *TokenCodecImpl) Decode(tokenString string, claims Claims) error {
	if claims == nil {
		return errors.New("claims must not be nil", errors.CategoryInternal)
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithAudience(claims.TokenAudience()),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("TokenCodec decode encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return sourced(ErrTokenExpired, err)
		}
		return sourced(ErrTokenInvalid, err)
	}

	if !token.Valid {
		return ErrTokenInvalid.Clone()
	}

	return nil
}

func sourced(sentinel *errors.Error, err error) *errors.Error {
	clone := sentinel.Clone()
	clone.Source = err
	return clone
}
