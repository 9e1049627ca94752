package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// DefaultPendingTokenTTL bounds how long a verification link stays redeemable.
const DefaultPendingTokenTTL = 30 * time.Minute

const MsgInvalidEmail = "Invalid email address"

type SignupMessage struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e SignupMessage) Type() string { return "account.signup" }

// Validate will run validation rules
func (e SignupMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.FullName, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Password, validation.Required),
	)
}

// SignupHandler turns a signup request into a mailed verification link. It
// never writes to storage.
type SignupHandler struct {
	deps Dependencies
	now  func() time.Time
}

func NewSignupHandler(deps Dependencies) *SignupHandler {
	return &SignupHandler{
		deps: deps.withDefaults(),
		now:  time.Now,
	}
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		err := h.execute(ctx, event)
		h.deps.Metrics.RecordOutcome(OpSignup, outcomeOf(err))
		return err
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	event.FullName = strings.TrimSpace(event.FullName)
	event.Email = normalizeEmail(event.Email)

	if err := event.Validate(); err != nil {
		return signupValidationError(event, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	existing, err := h.deps.Repo.Accounts().GetByEmail(ctx, event.Email)
	if err == nil && existing != nil {
		return ErrConflict.Clone().WithMetadata(map[string]any{
			"email": event.Email,
		})
	}
	if err != nil && !repository.IsRecordNotFound(err) {
		return internalError(err, "failed to look up account by email")
	}

	hash, err := h.deps.Passwords.HashPassword(event.Password)
	if err != nil {
		return internalError(err, "failed to hash password")
	}

	now := h.now()
	ttl := h.pendingTTL()
	pending := PendingRegistration{
		FullName:     event.FullName,
		Email:        event.Email,
		PasswordHash: hash,
		IssuedAt:     now,
		ExpiresAt:    now.Add(ttl),
	}

	token, err := h.deps.Codec.Encode(NewPendingClaims(pending), ttl)
	if err != nil {
		return internalError(err, "failed to encode verification token")
	}

	link := VerificationLink(h.deps.Config.GetClientBaseURL(), token)
	body, err := renderVerificationEmail(h.deps.Views, pending.FullName, link)
	if err != nil {
		return internalError(err, "failed to render verification email")
	}

	if err := h.deps.Mailer.Send(ctx, pending.Email, VerificationEmailSubject, body); err != nil {
		return internalError(err, "failed to send verification email")
	}

	h.deps.Logger.Info("verification email sent", "email", pending.Email, "expires_at", pending.ExpiresAt)
	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityVerificationRequested,
		Email:     pending.Email,
		Metadata:  map[string]any{"expires_at": pending.ExpiresAt},
	})

	return nil
}

func (h *SignupHandler) pendingTTL() time.Duration {
	if ttl := h.deps.Config.GetPendingTokenTTL(); ttl > 0 {
		return ttl
	}
	return DefaultPendingTokenTTL
}

func signupValidationError(event SignupMessage, err error) error {
	msg := MsgAllFieldsRequired
	if event.FullName != "" && event.Email != "" && event.Password != "" {
		msg = MsgInvalidEmail
	}
	return withMessage(ErrValidation, msg).WithMetadata(map[string]any{
		"fields": err.Error(),
	})
}
