package auth

import (
	"context"

	"github.com/baechuer/member-portal/internal/domain"
)

func (s *Service) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, domain.ErrTokenMissing()
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.profileOf(ctx, u)
}

// UpdateProfile applies a partial update of first/last name, phone and timezone.
// Blank fields are ignored; nothing else on the account can change here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.Profile, error) {
	if userID == "" {
		return domain.Profile{}, domain.ErrTokenMissing()
	}

	patch = patch.Normalize()
	if patch.Timezone != nil && !domain.IsValidTimezone(*patch.Timezone) {
		return domain.Profile{}, domain.ErrInvalidField("timezone", "unsupported timezone")
	}

	var (
		u   domain.User
		err error
	)
	if patch.Empty() {
		u, err = s.users.GetByID(ctx, userID)
	} else {
		u, err = s.users.UpdateProfile(ctx, userID, patch)
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return s.profileOf(ctx, u)
}
