package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/member-portal/internal/domain"
)

// UserRepo keeps users in process memory. Used for local development and
// for tests that need the full store contract without a database.
type UserRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string // normalized email -> userID
	now     func() time.Time
}

func NewUserRepo() *UserRepo {
	return &UserRepo{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return r.byID[id], nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (r *UserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token != "" {
		for _, u := range r.byID {
			if u.VerificationToken == token {
				return u, nil
			}
		}
	}
	return domain.User{}, domain.ErrVerifyTokenNotFound()
}

func (r *UserRepo) GetByResetToken(_ context.Context, token string, now time.Time) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if token != "" {
		for _, u := range r.byID {
			if u.PasswordResetToken == token && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now) {
				return u, nil
			}
		}
	}
	return domain.User{}, domain.ErrResetTokenInvalid()
}

func (r *UserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = domain.NormalizeEmail(u.Email)
	if _, exists := r.byEmail[u.Email]; exists {
		return domain.User{}, domain.ErrEmailAlreadyExists()
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.VerificationStatus == "" {
		u.VerificationStatus = domain.StatusPending
	}
	if u.Timezone == "" {
		u.Timezone = domain.DefaultTimezone
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.now().UTC()
	}
	u.UpdatedAt = u.CreatedAt

	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *UserRepo) List(_ context.Context) ([]domain.User, error) {
	return r.filter(func(domain.User) bool { return true }), nil
}

func (r *UserRepo) ListByStatus(_ context.Context, status domain.VerificationStatus) ([]domain.User, error) {
	return r.filter(func(u domain.User) bool { return u.VerificationStatus == status }), nil
}

// filter returns matching users, newest first.
func (r *UserRepo) filter(keep func(domain.User) bool) []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		if keep(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// mutate applies fn to the stored user under the write lock.
func (r *UserRepo) mutate(id string, fn func(u *domain.User) error) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if err := fn(&u); err != nil {
		return domain.User{}, err
	}
	u.UpdatedAt = r.now().UTC()
	r.byID[id] = u
	return u, nil
}

func (r *UserRepo) Resolve(_ context.Context, userID string, res domain.Resolution) (domain.User, error) {
	return r.mutate(userID, func(u *domain.User) error {
		if u.VerificationStatus != domain.StatusPending {
			return domain.ErrAlreadyResolved(u.VerificationStatus)
		}
		at := res.VerifiedAt
		u.VerificationStatus = res.Status
		u.EmailVerified = res.EmailVerified
		u.VerifiedBy = res.VerifiedBy
		u.VerifiedAt = &at
		u.VerificationToken = ""
		if res.Representative.IsSet() {
			u.Representative = res.Representative
		}
		return nil
	})
}

func (r *UserRepo) SetRepresentative(_ context.Context, userID string, ref domain.RepresentativeRef) (domain.User, error) {
	return r.mutate(userID, func(u *domain.User) error {
		u.Representative = ref
		return nil
	})
}

func (r *UserRepo) UpdateProfile(_ context.Context, userID string, patch domain.ProfilePatch) (domain.User, error) {
	return r.mutate(userID, func(u *domain.User) error {
		patch.Apply(u)
		return nil
	})
}

func (r *UserRepo) SetPasswordReset(_ context.Context, userID, token string, expires time.Time) error {
	_, err := r.mutate(userID, func(u *domain.User) error {
		u.PasswordResetToken = token
		u.PasswordResetExpires = &expires
		return nil
	})
	return err
}

func (r *UserRepo) ClearPasswordReset(_ context.Context, userID string) error {
	_, err := r.mutate(userID, func(u *domain.User) error {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		return nil
	})
	return err
}

func (r *UserRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	_, err := r.mutate(userID, func(u *domain.User) error {
		u.PasswordHash = hash
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		return nil
	})
	return err
}

func (r *UserRepo) UpdatePasswordHash(_ context.Context, userID, hash string) error {
	_, err := r.mutate(userID, func(u *domain.User) error {
		u.PasswordHash = hash
		return nil
	})
	return err
}

func (r *UserRepo) SetAdmin(ctx context.Context, email string, isAdmin bool) (domain.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	return r.mutate(u.ID, func(u *domain.User) error {
		u.IsAdmin = isAdmin
		return nil
	})
}

func (r *UserRepo) Ping(context.Context) error { return nil }
