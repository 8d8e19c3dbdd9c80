package verification

import (
	"context"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

// AssignRepresentative links a user to a representative regardless of the
// user's verification status.
func (w *Workflow) AssignRepresentative(ctx context.Context, userID, representativeID string) (domain.Profile, error) {
	userID = strings.TrimSpace(userID)
	representativeID = strings.TrimSpace(representativeID)
	if userID == "" {
		return domain.Profile{}, domain.ErrMissingField("userId")
	}
	if representativeID == "" {
		return domain.Profile{}, domain.ErrMissingField("representativeId")
	}

	if _, err := w.users.GetByID(ctx, userID); err != nil {
		return domain.Profile{}, err
	}
	rep, err := w.reps.GetByID(ctx, representativeID)
	if err != nil {
		return domain.Profile{}, err
	}

	u, err := w.users.SetRepresentative(ctx, userID, domain.RefTo(&rep))
	if err != nil {
		return domain.Profile{}, err
	}

	w.audit(ctx, "verification.assign_representative", map[string]string{
		"user_id":           u.ID,
		"representative_id": rep.ID,
		"result":            "success",
	})
	return domain.NewProfile(u, &rep), nil
}

// ListPending returns users still awaiting a decision, newest first.
func (w *Workflow) ListPending(ctx context.Context) ([]domain.Profile, error) {
	users, err := w.users.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, domain.NewProfile(u, nil))
	}
	return out, nil
}
