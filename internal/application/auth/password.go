package auth

import (
	"context"
	"strings"

	"github.com/baechuer/otp-auth/internal/domain"
)

// SendResetOTP issues a password reset code to the account's email.
func (s *Service) SendResetOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.ErrMissingFields("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	return s.issueOTP(ctx, u, domain.OTPPasswordReset)
}

// ResetPassword consumes the reset code and stores the new password hash.
// A failed match, or a code replaced or used meanwhile, leaves the stored password untouched.
func (s *Service) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = normalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if m := missing("email", email, "otp", otp, "newPassword", newPassword); len(m) > 0 {
		return domain.ErrMissingFields(m...)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := u.MatchOTP(domain.OTPPasswordReset, otp, s.now()); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return hashError(err)
	}

	if err := s.users.ConsumeResetOTP(ctx, u.ID, otp, hash); err != nil {
		return err
	}

	s.audit("password_reset", map[string]string{"user_id": u.ID})
	return nil
}
