package auth

import (
	"context"
	"time"

	"github.com/baechuer/member-portal/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Only describes WHAT the auth service needs, not HOW it's stored.
*/
type UserRepo interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByResetToken matches only tokens whose expiry is after now.
	GetByResetToken(ctx context.Context, token string, now time.Time) (domain.User, error)

	UpdateProfile(ctx context.Context, userID string, patch domain.ProfilePatch) (domain.User, error)
	SetPasswordReset(ctx context.Context, userID, token string, expires time.Time) error
	ClearPasswordReset(ctx context.Context, userID string) error
	// UpdatePassword stores the new hash and clears any pending reset.
	UpdatePassword(ctx context.Context, userID, hash string) error
	// UpdatePasswordHash replaces only the stored hash. A pending reset
	// stays valid.
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

type RepresentativeRepo interface {
	GetByID(ctx context.Context, id string) (domain.Representative, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies session tokens (JWT).
Used by the service and, through Authenticate, by the auth middleware.
*/
type TokenClaims struct {
	UserID string
	Exp    time.Time
}

type TokenSigner interface {
	SignSessionToken(userID string, ttl time.Duration) (string, error)
	VerifySessionToken(token string) (TokenClaims, error)
}

/*
Notifier
--------
Outbound email. Reset links must be delivered; contact confirmations are best effort.
*/
type Notifier interface {
	SendPasswordReset(ctx context.Context, n domain.PasswordResetNotice) error
	SendContactMessage(ctx context.Context, m domain.ContactMessage) error
	SendContactConfirmation(ctx context.Context, m domain.ContactMessage) error
}
