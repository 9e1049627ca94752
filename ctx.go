package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var accountCtxKey = &contextKey{"account"}

const accountLocalsKey = "yapyap.account"

type contextKey struct {
	name string
}

// WithAccount sets the Account in the given context
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountCtxKey, account)
}

// AccountFromContext finds the account from the context.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	raw, ok := ctx.Value(accountCtxKey).(*Account)
	return raw, ok && raw != nil
}

// CurrentAccount returns the account the AuthGate attached to the request.
func CurrentAccount(ctx router.Context) (*Account, bool) {
	if account, ok := ctx.Locals(accountLocalsKey).(*Account); ok && account != nil {
		return account, true
	}
	return AccountFromContext(ctx.Context())
}
