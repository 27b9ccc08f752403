package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/logger"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers creates a verified and an unverified demo account. Duplicates are ignored.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) int {
	type seedUser struct {
		Name     string
		Email    string
		Pass     string
		Verified bool
	}

	seeds := []seedUser{
		{Name: "Demo User", Email: "user@example.com", Pass: "UserPassword123!", Verified: true},
		{Name: "New User", Email: "new@example.com", Pass: "NewPassword123!", Verified: false},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			logger.Logger.Warn().Err(err).Str("email", s.Email).Msg("seed hash failed")
			continue
		}

		u := domain.User{
			ID:                uuid.NewString(),
			Name:              s.Name,
			Email:             s.Email,
			PasswordHash:      hash,
			IsAccountVerified: s.Verified,
		}

		if _, err := repo.Create(ctx, u); err != nil {
			// ignore duplicates (restart safe)
			continue
		}
		created++
	}

	logger.Logger.Info().Int("created", created).Msg("users seeded")
	return created
}
