package auth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetPendingTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetCookieName() string
	GetCookieSecure() bool
	GetCookieSameSite() string
	GetClientBaseURL() string
	GetPasswordHashCost() int
	GetUseHashid() bool
	GetDebug() bool
}

// Mailer delivers a single HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// BlobStore uploads opaque media and returns its public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) (string, error)
}

// PasswordAuthenticator hashes and compares passwords.
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Dependencies is the process wide set of collaborators built once at startup
// and shared read only by every handler.
type Dependencies struct {
	Config    Config
	Logger    Logger
	Repo      RepositoryManager
	Codec     TokenCodec
	Passwords PasswordAuthenticator
	Mailer    Mailer
	Blobs     BlobStore
	Metrics   Metrics
	Activity  ActivitySink
	// Views renders outgoing mail. Defaults to the embedded templates.
	Views fiber.Views
}

// Validate reports the first missing collaborator.
func (d Dependencies) Validate() error {
	switch {
	case d.Config == nil:
		return fmt.Errorf("auth: missing Config")
	case d.Repo == nil:
		return fmt.Errorf("auth: missing RepositoryManager")
	case d.Codec == nil:
		return fmt.Errorf("auth: missing TokenCodec")
	case d.Mailer == nil:
		return fmt.Errorf("auth: missing Mailer")
	case d.Blobs == nil:
		return fmt.Errorf("auth: missing BlobStore")
	}
	return nil
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Logger == nil {
		d.Logger = defLogger{}
	}
	if d.Passwords == nil {
		cost := 0
		if d.Config != nil {
			cost = d.Config.GetPasswordHashCost()
		}
		d.Passwords = NewBcryptPasswords(cost)
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	d.Activity = normalizeActivitySink(d.Activity)
	if d.Views == nil {
		views, err := NewMailViews()
		if err != nil {
			panic("Unable to load mail templates: " + err.Error())
		}
		d.Views = views
	}
	return d
}

type defLogger struct{}

func (d defLogger) Debug(msg string, args ...any) { d.print("DBG", msg, args) }
func (d defLogger) Info(msg string, args ...any)  { d.print("INF", msg, args) }
func (d defLogger) Warn(msg string, args ...any)  { d.print("WRN", msg, args) }
func (d defLogger) Error(msg string, args ...any) { d.print("ERR", msg, args) }

// print writes msg followed by args rendered as key=value pairs.
func (defLogger) print(level, msg string, args []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] AUTH %s", level, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}
