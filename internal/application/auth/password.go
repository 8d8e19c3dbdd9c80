package auth

import (
	"context"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

const minPasswordLen = 6

// ForgotPassword emails a one-hour reset link to approved, verified accounts.
// IMPORTANT: non-enumerating. Unknown and ineligible emails get the same nil.
// The only visible failure is a reset link that could not be delivered, in
// which case the token is withdrawn again.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return nil
		}
		return err
	}
	if !u.CanLogin() {
		s.log.Info().Str("user_id", u.ID).Str("status", string(u.VerificationStatus)).
			Msg("password reset ignored for unverified account")
		return nil
	}

	token, err := newOpaqueToken(32)
	if err != nil {
		return domain.ErrRandomFailed(err)
	}
	expires := s.now().Add(s.passwordResetTTL).UTC()

	if err := s.users.SetPasswordReset(ctx, u.ID, token, expires); err != nil {
		return err
	}

	err = s.notify.SendPasswordReset(ctx, domain.PasswordResetNotice{
		Email:     u.Email,
		FirstName: u.FirstName,
		ResetURL:  s.passwordResetBaseURL + token,
		ExpiresIn: s.passwordResetTTL,
	})
	if err != nil {
		if cerr := s.users.ClearPasswordReset(ctx, u.ID); cerr != nil {
			s.log.Error().Err(cerr).Str("user_id", u.ID).Msg("reset token rollback failed")
		}
		s.audit(ctx, "auth.password_reset_request", map[string]string{
			"user_id": u.ID, "result": "error", "error_code": "notification_failed",
		})
		return domain.ErrNotificationFailed(err)
	}

	s.audit(ctx, "auth.password_reset_request", map[string]string{"user_id": u.ID, "result": "success"})
	return nil
}

// ResetPassword consumes an unexpired reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrMissingField("token")
	}
	if newPassword == "" {
		return domain.ErrMissingField("password")
	}
	if len(newPassword) < minPasswordLen {
		return domain.ErrWeakPassword("min length 6")
	}

	u, err := s.users.GetByResetToken(ctx, token, s.now())
	if err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return domain.ErrHashFailed(err)
	}

	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.audit(ctx, "auth.password_reset", map[string]string{"user_id": u.ID, "result": "success"})
	return nil
}
