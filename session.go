package auth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	DefaultSessionCookieName = "jwt"
	DefaultSessionTTL        = 7 * 24 * time.Hour
)

// SessionManager mints and clears the session cookie. It keeps no server
// side state: a cleared cookie is the only form of logout.
type SessionManager struct {
	codec  TokenCodec
	cfg    Config
	logger Logger
}

func NewSessionManager(deps Dependencies) *SessionManager {
	deps = deps.withDefaults()
	return &SessionManager{
		codec:  deps.Codec,
		cfg:    deps.Config,
		logger: deps.Logger,
	}
}

// Issue signs a session for the account and attaches it as an HTTP only cookie.
func (s *SessionManager) Issue(c router.Context, account *Account) error {
	ttl := s.TTL()
	token, err := s.codec.Encode(&SessionClaims{AccountID: account.ID.String()}, ttl)
	if err != nil {
		return internalError(err, "failed to encode session token")
	}

	c.Cookie(&router.Cookie{
		Name:     s.CookieName(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   s.cfg.GetCookieSecure(),
		SameSite: s.sameSite(),
	})

	return nil
}

// Terminate overwrites the session cookie with an empty, already expired value.
// fasthttp never writes Max-Age=0, so the past Expires date is what clears
// the cookie.
func (s *SessionManager) Terminate(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     s.CookieName(),
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   s.cfg.GetCookieSecure(),
		SameSite: s.sameSite(),
	})
}

// Resolve decodes a session token into the id of its account.
func (s *SessionManager) Resolve(token string) (uuid.UUID, error) {
	claims := &SessionClaims{}
	if err := s.codec.Decode(token, claims); err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return uuid.Nil, sourced(ErrTokenInvalid, err)
	}
	return id, nil
}

func (s *SessionManager) TTL() time.Duration {
	if ttl := s.cfg.GetSessionTTL(); ttl > 0 {
		return ttl
	}
	return DefaultSessionTTL
}

func (s *SessionManager) CookieName() string {
	if name := s.cfg.GetCookieName(); name != "" {
		return name
	}
	return DefaultSessionCookieName
}

func (s *SessionManager) sameSite() string {
	switch strings.ToLower(s.cfg.GetCookieSameSite()) {
	case fiber.CookieSameSiteLaxMode:
		return fiber.CookieSameSiteLaxMode
	case fiber.CookieSameSiteNoneMode:
		return fiber.CookieSameSiteNoneMode
	default:
		return fiber.CookieSameSiteStrictMode
	}
}
