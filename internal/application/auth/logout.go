package auth

import "context"

// Logout has no server-side state to revoke; the handler clears the cookie.
// userID is empty when the caller had no valid session.
func (s *Service) Logout(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.audit("logout", map[string]string{"user_id": userID})
}
