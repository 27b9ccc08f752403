package auth

import (
	"context"

	"github.com/baechuer/otp-auth/internal/domain"
)

// Login checks the password through the hasher and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = normalizeEmail(email)
	if m := missing("email", email, "password", password); len(m) > 0 {
		return AuthResult{}, domain.ErrMissingFields(m...)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return AuthResult{}, domain.ErrWrongPassword()
	}

	tok, err := s.issueToken(u.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.audit("login", map[string]string{"user_id": u.ID})
	return AuthResult{User: u, Token: tok}, nil
}
