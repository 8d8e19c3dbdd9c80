package auth

import "context"

// Logout is an acknowledgement only; clients discard the token.
func (s *Service) Logout(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.audit(ctx, "auth.logout", map[string]string{"user_id": userID, "result": "success"})
}
