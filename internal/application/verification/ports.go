package verification

import (
	"context"

	"github.com/baechuer/member-portal/internal/domain"
)

// UserRepo is the slice of user persistence the workflow needs.
// Create assigns the ID when it is empty and returns
// domain.ErrEmailAlreadyExists on a (case-insensitive) email clash.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.User, error)

	// Resolve persists a decision only while the user is still pending and
	// clears the verification token. A user that is no longer pending yields
	// domain.ErrAlreadyResolved.
	Resolve(ctx context.Context, userID string, res domain.Resolution) (domain.User, error)
	SetRepresentative(ctx context.Context, userID string, ref domain.RepresentativeRef) (domain.User, error)
}

type RepresentativeRepo interface {
	GetByID(ctx context.Context, id string) (domain.Representative, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Notifier interface {
	SendAdminReviewRequest(ctx context.Context, req domain.ReviewRequest) error
	SendDecision(ctx context.Context, n domain.DecisionNotice) error
}
