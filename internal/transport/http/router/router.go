package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/baechuer/otp-auth/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	IsAuth(w http.ResponseWriter, r *http.Request)

	// Email verification
	SendVerifyOTP(w http.ResponseWriter, r *http.Request)
	VerifyAccount(w http.ResponseWriter, r *http.Request)
	VerifyOTP(w http.ResponseWriter, r *http.Request)

	// Password reset
	SendResetOTP(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
}

type UserHandler interface {
	Data(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Auth   AuthHandler
	User   UserHandler

	SessionMW         Middleware
	OptionalSessionMW Middleware
	OriginMW          Middleware
	CORSMW            Middleware

	// nil limits disable rate limiting for that group
	RegisterLimitMW Middleware
	LoginLimitMW    Middleware
	OTPLimitMW      Middleware

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func orNoop(mw Middleware) Middleware {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("nil Auth handler")
	}
	if deps.User == nil {
		return nil, fmt.Errorf("nil User handler")
	}
	if deps.SessionMW == nil {
		return nil, fmt.Errorf("nil Session middleware")
	}

	optional := orNoop(deps.OptionalSessionMW)
	origin := orNoop(deps.OriginMW)
	registerLimit := orNoop(deps.RegisterLimitMW)
	loginLimit := orNoop(deps.LoginLimitMW)
	otpLimit := orNoop(deps.OTPLimitMW)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(orNoop(deps.CORSMW))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(origin)

		r.With(registerLimit).Post("/register", deps.Auth.Register)
		r.With(loginLimit).Post("/login", deps.Auth.Login)
		r.With(optional).Post("/logout", deps.Auth.Logout)

		// --- Session required ---
		r.Group(func(r chi.Router) {
			r.Use(deps.SessionMW)

			r.Get("/is-auth", deps.Auth.IsAuth)
			r.With(otpLimit).Post("/send-verify-otp", deps.Auth.SendVerifyOTP)
			r.With(otpLimit).Post("/verify-account", deps.Auth.VerifyAccount)
		})

		// --- Password reset / verification by email ---
		r.With(otpLimit).Post("/send-reset-otp", deps.Auth.SendResetOTP)
		r.With(otpLimit).Post("/reset-password", deps.Auth.ResetPassword)
		r.With(otpLimit).Post("/verify-otp", deps.Auth.VerifyOTP)
	})

	r.Route("/api/user", func(r chi.Router) {
		r.Use(deps.SessionMW)
		r.Get("/data", deps.User.Data)
	})

	return r, nil
}
