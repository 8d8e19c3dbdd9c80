package auth

import (
	"context"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

const minContactMessageLen = 10

type ContactInput struct {
	Email   string
	Message string
	Name    string
}

// SubmitContact forwards a contact-form message to the admin and confirms
// receipt to the sender. sender is the authenticated user, if any.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput, sender *domain.User) error {
	email := strings.TrimSpace(in.Email)
	message := strings.TrimSpace(in.Message)

	if email == "" {
		return domain.ErrMissingField("email")
	}
	if in.Message == "" {
		return domain.ErrMissingField("message")
	}
	if !domain.IsValidEmail(email) {
		return domain.ErrInvalidField("email", "invalid format")
	}
	if len([]rune(message)) < minContactMessageLen {
		return domain.ErrInvalidField("message", "min length 10")
	}

	msg := domain.ContactMessage{
		AdminEmail:  s.adminEmail,
		FromName:    s.contactName(ctx, strings.TrimSpace(in.Name), email, sender),
		FromEmail:   email,
		Message:     message,
		SubmittedAt: s.now().UTC(),
	}

	if err := s.notify.SendContactMessage(ctx, msg); err != nil {
		return domain.ErrNotificationFailed(err)
	}
	if err := s.notify.SendContactConfirmation(ctx, msg); err != nil {
		s.log.Warn().Err(err).Msg("contact confirmation not delivered")
	}
	return nil
}

func (s *Service) contactName(ctx context.Context, given, email string, sender *domain.User) string {
	if given != "" {
		return given
	}
	if sender != nil && sender.FullName() != "" {
		return sender.FullName()
	}
	if u, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email)); err == nil {
		return u.FullName()
	}
	return ""
}
