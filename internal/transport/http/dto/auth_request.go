package dto

import "strings"

// Passwords are capped at 72 bytes (not runes), the bcrypt input limit.

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
	return Validate(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	return Validate(r)
}

// VerifyAccountRequest carries the OTP for the session user.
type VerifyAccountRequest struct {
	OTP string `json:"otp" validate:"required"`
}

func (r *VerifyAccountRequest) Validate() error {
	r.OTP = strings.TrimSpace(r.OTP)
	return Validate(r)
}

type SendResetOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *SendResetOTPRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	return Validate(r)
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	OTP         string `json:"otp" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,maxbytes=72"`
}

func (r *ResetPasswordRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
	return Validate(r)
}

// VerifyOTPRequest verifies an account by email instead of the session.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	OTP   string `json:"otp" validate:"required"`
}

func (r *VerifyOTPRequest) Validate() error {
	r.Email = normalizeEmail(r.Email)
	r.OTP = strings.TrimSpace(r.OTP)
	return Validate(r)
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
