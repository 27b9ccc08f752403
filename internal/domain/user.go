package domain

import (
	"crypto/subtle"
	"time"
)

// User is the persisted account record.
// OTP expiries are epoch milliseconds; zero means "no OTP pending".
type User struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	IsAccountVerified  bool
	VerifyOTP          string
	VerifyOTPExpiresAt int64
	ResetOTP           string
	ResetOTPExpiresAt  int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OTPKind selects which OTP slot on the user an operation reads or writes.
type OTPKind string

const (
	OTPVerifyEmail   OTPKind = "verify_email"
	OTPPasswordReset OTPKind = "password_reset"
)

// OTPSlot is one stored code with its expiry in epoch milliseconds.
type OTPSlot struct {
	Code      string
	ExpiresAt int64
}

// Slot returns the current contents of one OTP slot.
func (u User) Slot(kind OTPKind) OTPSlot {
	code, exp := u.otp(kind)
	return OTPSlot{Code: code, ExpiresAt: exp}
}

// SetOTP stores code and its expiry together.
func (u *User) SetOTP(kind OTPKind, code string, expiresAt time.Time) {
	ms := expiresAt.UnixMilli()
	switch kind {
	case OTPVerifyEmail:
		u.VerifyOTP, u.VerifyOTPExpiresAt = code, ms
	case OTPPasswordReset:
		u.ResetOTP, u.ResetOTPExpiresAt = code, ms
	}
}

// ClearOTP resets the slot to its empty/zero values, marking the code used.
func (u *User) ClearOTP(kind OTPKind) {
	switch kind {
	case OTPVerifyEmail:
		u.VerifyOTP, u.VerifyOTPExpiresAt = "", 0
	case OTPPasswordReset:
		u.ResetOTP, u.ResetOTPExpiresAt = "", 0
	}
}

func (u *User) otp(kind OTPKind) (string, int64) {
	switch kind {
	case OTPVerifyEmail:
		return u.VerifyOTP, u.VerifyOTPExpiresAt
	case OTPPasswordReset:
		return u.ResetOTP, u.ResetOTPExpiresAt
	}
	return "", 0
}

// MatchOTP checks a supplied code against the stored slot.
// An empty stored code or a mismatch is ErrInvalidOTP; a match past its expiry is ErrOTPExpired.
// On success the slot is cleared; the caller persists the user.
func (u *User) MatchOTP(kind OTPKind, supplied string, now time.Time) error {
	stored, expiresAt := u.otp(kind)
	if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		return ErrInvalidOTP()
	}
	if now.UnixMilli() > expiresAt {
		return ErrOTPExpired()
	}
	u.ClearOTP(kind)
	return nil
}
