package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type VerifyEmailMessage struct {
	Token string `query:"token" json:"token"`
	// OnAccount is called with the created account once the transaction commits.
	OnAccount func(*Account)
}

func (e VerifyEmailMessage) Type() string { return "account.verify_email" }

// VerifyEmailHandler redeems a verification token into a verified Account.
// Uniqueness of the email is left to the storage constraint.
type VerifyEmailHandler struct {
	deps Dependencies
}

func NewVerifyEmailHandler(deps Dependencies) *VerifyEmailHandler {
	return &VerifyEmailHandler{deps: deps.withDefaults()}
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		err := h.execute(ctx, event)
		h.deps.Metrics.RecordOutcome(OpVerifyEmail, outcomeOf(err))
		return err
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	token := strings.TrimSpace(event.Token)
	if token == "" {
		return withMessage(ErrValidation, MsgNoTokenProvided)
	}

	claims := &PendingClaims{}
	if err := h.deps.Codec.Decode(token, claims); err != nil {
		h.deps.Logger.Debug("verification token rejected", "error", err, "expired", IsTokenExpiredError(err))
		return sourced(ErrTokenError, err)
	}

	pending := claims.PendingRegistration()
	if pending.Email == "" || pending.PasswordHash == "" {
		return ErrTokenError.Clone()
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var account *Account
	err := h.deps.Repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.deps.Repo.Accounts().GetByEmailTx(ctx, tx, pending.Email)
		switch {
		case err == nil && existing.IsVerified:
			return withMessage(ErrConflict, MsgEmailAlreadyVerified).WithMetadata(map[string]any{
				"email": pending.Email,
			})
		case err == nil:
			// abandoned earlier attempt, replaced rather than merged
			if err := h.deps.Repo.Accounts().DeleteTx(ctx, tx, existing.ID); err != nil && !repository.IsRecordNotFound(err) {
				return err
			}
		case !repository.IsRecordNotFound(err):
			return err
		}

		account, err = h.deps.Repo.Accounts().CreateTx(ctx, tx, NewVerifiedAccount(pending))
		return err
	})

	if err != nil {
		if richErr, ok := asRichError(err); ok && richErr.Category == goerrors.CategoryConflict {
			return richErr
		}
		if IsUniqueViolation(err) {
			return withMessage(ErrConflict, MsgEmailAlreadyVerified)
		}
		return internalError(err, "email verification transaction failed")
	}

	h.deps.Logger.Info("account verified", "account_id", account.ID, "email", account.Email)
	h.deps.recordActivity(ctx, ActivityEvent{
		EventType: ActivityAccountCreated,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})

	if event.OnAccount != nil {
		event.OnAccount(account)
	}

	return nil
}
