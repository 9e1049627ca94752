package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// CredentialAuthenticator checks login credentials against stored accounts.
// Unknown emails and wrong passwords fail the same way.
type CredentialAuthenticator struct {
	deps Dependencies
}

func NewCredentialAuthenticator(deps Dependencies) *CredentialAuthenticator {
	return &CredentialAuthenticator{deps: deps.withDefaults()}
}

// Login returns the account matching the credentials.
func (a *CredentialAuthenticator) Login(ctx context.Context, req LoginRequest) (*Account, error) {
	account, err := a.login(ctx, req)
	a.deps.Metrics.RecordOutcome(OpLogin, outcomeOf(err))

	switch {
	case err == nil:
		a.deps.recordActivity(ctx, ActivityEvent{
			EventType: ActivityLoginSuccess,
			AccountID: account.ID.String(),
			Email:     account.Email,
		})
	case HasTextCode(err, TextCodeInvalidCredentials), HasTextCode(err, TextCodeEmailUnverified):
		a.deps.recordActivity(ctx, ActivityEvent{
			EventType: ActivityLoginFailure,
			Email:     normalizeEmail(req.Email),
			Metadata:  map[string]any{"reason": textCodeOf(err)},
		})
	}

	return account, err
}

func (a *CredentialAuthenticator) login(ctx context.Context, req LoginRequest) (*Account, error) {
	req.Email = normalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, withMessage(ErrValidation, MsgAllFieldsRequired).WithMetadata(map[string]any{
			"fields": err.Error(),
		})
	}

	account, err := a.deps.Repo.Accounts().GetByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			a.deps.Logger.Debug("login for unknown email", "email", req.Email)
			return nil, ErrInvalidCredentials.Clone()
		}
		return nil, internalError(err, "failed to look up account by email")
	}

	if !account.IsVerified {
		return nil, ErrUnverified.Clone()
	}

	if err := a.deps.Passwords.ComparePasswordAndHash(req.Password, account.PasswordHash); err != nil {
		if HasTextCode(err, TextCodeInvalidCredentials) || goerrors.Is(err, bcrypt.ErrHashTooShort) {
			return nil, ErrInvalidCredentials.Clone()
		}
		return nil, internalError(err, "failed to compare password hash")
	}

	return account, nil
}
