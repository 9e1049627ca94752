package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// MessageResponse is the JSON body of acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

// AuthGate resolves the session cookie of protected requests to an Account.
type AuthGate struct {
	sessions     *SessionManager
	repo         RepositoryManager
	logger       Logger
	ErrorHandler router.ErrorHandler
}

func NewAuthGate(deps Dependencies, sessions *SessionManager) *AuthGate {
	deps = deps.withDefaults()
	if sessions == nil {
		sessions = NewSessionManager(deps)
	}
	return &AuthGate{
		sessions:     sessions,
		repo:         deps.Repo,
		logger:       deps.Logger,
		ErrorHandler: NewErrorHandler(deps.Logger),
	}
}

// Middleware rejects unauthenticated requests and stores the resolved
// account for the next handler. Handlers read it back with CurrentAccount.
func (g *AuthGate) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if _, err := g.attach(ctx); err != nil {
				return g.ErrorHandler(ctx, err)
			}
			return next(ctx)
		}
	}
}

// Protect runs handler with the resolved account as an explicit argument.
func (g *AuthGate) Protect(handler func(ctx router.Context, account *Account) error) router.HandlerFunc {
	return func(ctx router.Context) error {
		account, err := g.attach(ctx)
		if err != nil {
			return g.ErrorHandler(ctx, err)
		}
		return handler(ctx, account)
	}
}

func (g *AuthGate) attach(ctx router.Context) (*Account, error) {
	account, err := g.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Locals(accountLocalsKey, account)
	ctx.SetContext(WithAccount(ctx.Context(), account))
	return account, nil
}

// Authenticate validates the session cookie and loads its account.
func (g *AuthGate) Authenticate(ctx router.Context) (*Account, error) {
	token := ctx.Cookies(g.sessions.CookieName())
	if token == "" {
		return nil, withMessage(ErrUnauthenticated, MsgNoSessionToken)
	}

	id, err := g.sessions.Resolve(token)
	if err != nil {
		return nil, sourced(ErrUnauthenticated, err)
	}

	account, err := g.repo.Accounts().GetByID(ctx.Context(), id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, withMessage(ErrUnauthenticated, MsgAccountNotFound).WithMetadata(map[string]any{
				"account_id": id.String(),
			})
		}
		return nil, internalError(err, "failed to load session account")
	}

	return account, nil
}

// NewErrorHandler renders errors as JSON. Only rich errors outside the
// internal category expose their message; everything else is logged and
// reported as a generic 500.
func NewErrorHandler(logger Logger) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(ctx router.Context, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.JSON(fiberErr.Code, ErrorResponse{Message: fiberErr.Message})
		}

		richErr, ok := asRichError(err)
		if !ok || richErr.Category == errors.CategoryInternal || richErr.Code == 0 || richErr.Code >= http.StatusInternalServerError {
			args := []any{"error", err.Error(), "path", ctx.Path()}
			if ok {
				args = append(args,
					"text_code", richErr.TextCode,
					"details", print.MaybePrettyJSON(richErr.Metadata),
				)
				if richErr.Source != nil {
					args = append(args, "source", richErr.Source.Error())
				}
			}
			logger.Error("Internal error handling request", args...)
			return ctx.JSON(http.StatusInternalServerError, ErrorResponse{
				Message: MsgInternalServerError,
				Code:    TextCodeInternal,
			})
		}

		logger.Info(
			"Request rejected",
			"error", richErr.Message,
			"category", richErr.Category,
			"text_code", richErr.TextCode,
			"path", ctx.Path(),
		)

		return ctx.JSON(richErr.Code, ErrorResponse{
			Message: richErr.Message,
			Code:    richErr.TextCode,
		})
	}
}
