package auth

import (
	"context"
	"strings"

	"github.com/baechuer/otp-auth/internal/domain"
)

// SendVerifyOTP issues a verification code for the authenticated user.
func (s *Service) SendVerifyOTP(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrUnauthenticated()
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsAccountVerified {
		return domain.ErrAlreadyVerified()
	}

	return s.issueOTP(ctx, u, domain.OTPVerifyEmail)
}

// VerifyEmail consumes the verification code of the authenticated user.
func (s *Service) VerifyEmail(ctx context.Context, userID, otp string) error {
	otp = strings.TrimSpace(otp)
	if m := missing("userId", userID, "otp", otp); len(m) > 0 {
		return domain.ErrMissingFields(m...)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	return s.markVerified(ctx, u, otp)
}

// VerifyOTP is VerifyEmail addressed by email instead of the session.
func (s *Service) VerifyOTP(ctx context.Context, email, otp string) error {
	email = normalizeEmail(email)
	otp = strings.TrimSpace(otp)
	if m := missing("email", email, "otp", otp); len(m) > 0 {
		return domain.ErrMissingFields(m...)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.markVerified(ctx, u, otp)
}

func (s *Service) markVerified(ctx context.Context, u domain.User, otp string) error {
	if err := u.MatchOTP(domain.OTPVerifyEmail, otp, s.now()); err != nil {
		return err
	}
	if err := s.users.ConsumeVerifyOTP(ctx, u.ID, otp); err != nil {
		return err
	}

	s.audit("account_verified", map[string]string{"user_id": u.ID})
	return nil
}
