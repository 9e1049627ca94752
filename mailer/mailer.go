// Package mailer implements auth.Mailer over SMTP, plus a logging mailer for
// local development.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	auth "github.com/yapyap/go-auth"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of "mandatory", "opportunistic" or "none".
	TLS string
}

// SMTP sends each message on its own connection.
type SMTP struct {
	cfg    SMTPConfig
	logger auth.Logger
}

var _ auth.Mailer = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig, logger auth.Logger) *SMTP {
	return &SMTP{cfg: cfg, logger: logger}
}

func (s *SMTP) Send(ctx context.Context, to, subject, html string) error {
	msg, err := BuildMessage(s.cfg.From, to, subject, html)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	if s.logger != nil {
		s.logger.Debug("mail sent", "to", to, "subject", subject)
	}
	return nil
}

func (s *SMTP) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithTLSPolicy(tlsPolicy(s.cfg.TLS)),
	}
	if s.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(s.cfg.Port))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

func tlsPolicy(name string) mail.TLSPolicy {
	switch name {
	case "none":
		return mail.NoTLS
	case "opportunistic":
		return mail.TLSOpportunistic
	default:
		return mail.TLSMandatory
	}
}

// BuildMessage assembles an HTML message.
func BuildMessage(from, to, subject, html string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	return msg, nil
}

// Log writes messages to the logger instead of delivering them.
type Log struct {
	logger auth.Logger
}

var _ auth.Mailer = (*Log)(nil)

func NewLog(logger auth.Logger) *Log {
	return &Log{logger: logger}
}

// Send logs the envelope at info. The body carries the verification link, so
// it only goes out at debug.
func (l *Log) Send(_ context.Context, to, subject, html string) error {
	l.logger.Info("mail delivery disabled, logging message", "to", to, "subject", subject)
	l.logger.Debug("mail body", "to", to, "html", html)
	return nil
}
