package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/logger"
)

// Register creates the account, issues a session token and sends the welcome email.
// The welcome email is best-effort: the account already exists when it is sent.
func (s *Service) Register(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if m := missing("name", name, "email", email, "password", password); len(m) > 0 {
		return AuthResult{}, domain.ErrMissingFields(m...)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return AuthResult{}, domain.ErrEmailAlreadyExists()
	} else if !domain.Is(err, "user_not_found") {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return AuthResult{}, hashError(err)
	}

	now := s.now()
	created, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return AuthResult{}, err
	}

	tok, err := s.issueToken(created.ID)
	if err != nil {
		return AuthResult{}, err
	}

	s.sendWelcome(ctx, created)
	s.audit("register", map[string]string{"user_id": created.ID, "email": created.Email})

	return AuthResult{User: created, Token: tok}, nil
}

func (s *Service) sendWelcome(ctx context.Context, u domain.User) {
	msg, err := s.mails.Welcome(u.Name, u.Email)
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err != nil {
		logger.WithCtx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("welcome email failed")
	}
}
