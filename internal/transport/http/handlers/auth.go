package http_handlers

import (
	"errors"
	"net/http"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/infrastructure/security"
	"github.com/baechuer/otp-auth/internal/logger"
	"github.com/baechuer/otp-auth/internal/transport/http/dto"
	"github.com/baechuer/otp-auth/internal/transport/http/middleware"
	"github.com/baechuer/otp-auth/internal/transport/http/response"
)

type AuthHandler struct {
	svc     *auth.Service
	cookies security.CookieConfig
}

func NewAuthHandler(svc *auth.Service, cookies security.CookieConfig) *AuthHandler {
	return &AuthHandler{svc: svc, cookies: cookies}
}

// decode reads and validates a request body; it writes the error response itself.
func decode[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, req T) bool {
	if err := response.DecodeJSON(w, r, req); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	return true
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Str("email", res.User.Email).
		Msg("user_registered")

	security.SetSessionCookie(w, res.Token, h.cookies)
	response.Created(w, "Registration successful")
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(errorCode(err)).Inc()
		response.WriteError(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	security.SetSessionCookie(w, res.Token, h.cookies)
	response.OK(w, "Login successful")
}

// Logout clears the cookie whether or not a valid session was presented.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	h.svc.Logout(r.Context(), userID)

	security.ClearSessionCookie(w, h.cookies)
	response.OK(w, "Logged out")
}

func (h *AuthHandler) SendVerifyOTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}

	err := h.svc.SendVerifyOTP(r.Context(), userID)
	middleware.OTPIssuedTotal.WithLabelValues(string(domain.OTPVerifyEmail), outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "OTP sent successfully")
}

func (h *AuthHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}

	var req dto.VerifyAccountRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), userID, req.OTP); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "Account verified successfully")
}

// IsAuth only runs behind the session gate, so reaching it means success.
func (h *AuthHandler) IsAuth(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, dto.IsAuthResponse{Success: true})
}

func (h *AuthHandler) SendResetOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.SendResetOTPRequest
	if !decode(w, r, &req) {
		return
	}

	err := h.svc.SendResetOTP(r.Context(), req.Email)
	middleware.OTPIssuedTotal.WithLabelValues(string(domain.OTPPasswordReset), outcome(err)).Inc()
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "OTP Sent to your email")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "Password has been reset successfully")
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.svc.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, "OTP verified successfully")
}

func errorCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return errorCode(err)
}
