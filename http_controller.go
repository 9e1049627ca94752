package auth

import (
	"fmt"
	"net/http"

	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

type AuthControllerRoutes struct {
	Signup             string
	ResendVerification string
	VerifyEmail        string
	Login              string
	Logout             string
	UpdateProfile      string
	Check              string
}

type AuthController struct {
	Debug         bool
	Logger        Logger
	Routes        *AuthControllerRoutes
	Signup        *SignupHandler
	VerifyEmail   *VerifyEmailHandler
	UpdateProfile *UpdateProfileHandler
	Auther        *CredentialAuthenticator
	Sessions      *SessionManager
	Gate          *AuthGate
	// Limiter guards the unauthenticated write endpoints when set.
	Limiter      router.MiddlewareFunc
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithDebug dumps request payloads to stdout.
func WithDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

// WithLimiter guards signup, resend and login with the given middleware.
func WithLimiter(limiter router.MiddlewareFunc) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Limiter = limiter
		return ac
	}
}

// WithRoutes overrides the default route paths.
func WithRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if routes != nil {
			ac.Routes = routes
		}
		return ac
	}
}

func NewAuthController(deps Dependencies, opts ...AuthControllerOption) *AuthController {
	if err := deps.Validate(); err != nil {
		panic(fmt.Sprintf("Missing dependency in auth controller: %s", err))
	}

	deps = deps.withDefaults()
	sessions := NewSessionManager(deps)

	c := &AuthController{
		Debug:         deps.Config.GetDebug(),
		Logger:        deps.Logger,
		Signup:        NewSignupHandler(deps),
		VerifyEmail:   NewVerifyEmailHandler(deps),
		UpdateProfile: NewUpdateProfileHandler(deps),
		Auther:        NewCredentialAuthenticator(deps),
		Sessions:      sessions,
		Gate:          NewAuthGate(deps, sessions),
		ErrorHandler:  NewErrorHandler(deps.Logger),
		Routes: &AuthControllerRoutes{
			Signup:             "/signup",
			ResendVerification: "/resend-verification",
			VerifyEmail:        "/verify-email",
			Login:              "/login",
			Logout:             "/logout",
			UpdateProfile:      "/update-profile",
			Check:              "/check",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Gate.ErrorHandler = c.ErrorHandler

	return c
}

// RouteRegistrar is the part of router.Router the controller mounts on.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// RegisterAuthRoutes builds a controller and mounts it on app.
func RegisterAuthRoutes[T any](app router.Router[T], deps Dependencies, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(deps, opts...)
	controller.RegisterRoutes(app)
	return controller
}

// RegisterRoutes mounts the auth endpoints on the given router.
func (a *AuthController) RegisterRoutes(r RouteRegistrar) {
	limited := a.limited()

	r.Post(a.Routes.Signup, a.SignupPost, limited...)
	r.Post(a.Routes.ResendVerification, a.SignupPost, limited...)
	r.Get(a.Routes.VerifyEmail, a.VerifyEmailGet)
	r.Post(a.Routes.Login, a.LoginPost, limited...)
	r.Post(a.Routes.Logout, a.LogoutPost)

	r.Put(a.Routes.UpdateProfile, a.Gate.Protect(a.UpdateProfilePut))
	r.Get(a.Routes.Check, a.Gate.Protect(a.CheckGet))
}

func (a *AuthController) limited() []router.MiddlewareFunc {
	if a.Limiter == nil {
		return nil
	}
	return []router.MiddlewareFunc{a.Limiter}
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupMessage)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, withMessage(ErrValidation, MsgAllFieldsRequired))
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGNUP ======")
		fmt.Println(print.MaybePrettyJSON(SignupMessage{FullName: payload.FullName, Email: payload.Email}))
		fmt.Println("==========================")
	}

	if err := a.Signup.Execute(ctx.Context(), *payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, MessageResponse{Message: MsgVerificationEmailSent})
}

func (a *AuthController) VerifyEmailGet(ctx router.Context) error {
	msg := VerifyEmailMessage{Token: ctx.Query("token", "")}

	if err := a.VerifyEmail.Execute(ctx.Context(), msg); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, MessageResponse{Message: MsgAccountCreated})
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, withMessage(ErrValidation, MsgAllFieldsRequired))
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(LoginRequest{Email: payload.Email}))
		fmt.Println("=========================")
	}

	account, err := a.Auther.Login(ctx.Context(), *payload)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.Sessions.Issue(ctx, account); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, account.Profile())
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Sessions.Terminate(ctx)
	return ctx.JSON(router.StatusOK, MessageResponse{Message: MsgLoggedOut})
}

func (a *AuthController) UpdateProfilePut(ctx router.Context, account *Account) error {
	payload := UpdateProfileMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, withMessage(ErrValidation, MsgProfilePicRequired))
	}

	var updated *Account
	payload.Account = account
	payload.OnResponse = func(acc *Account) {
		updated = acc
	}

	if err := a.UpdateProfile.Execute(ctx.Context(), payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, updated.Profile())
}

// CheckGet returns the full account of the session. The password hash is
// never serialized.
func (a *AuthController) CheckGet(ctx router.Context, account *Account) error {
	return ctx.JSON(router.StatusOK, account)
}
