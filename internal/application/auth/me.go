package auth

import (
	"context"

	"github.com/baechuer/otp-auth/internal/domain"
)

// UserData is the profile view returned to the client.
type UserData struct {
	Name              string
	IsAccountVerified bool
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) GetUserData(ctx context.Context, userID string) (UserData, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return UserData{}, err
	}
	return UserData{Name: u.Name, IsAccountVerified: u.IsAccountVerified}, nil
}
