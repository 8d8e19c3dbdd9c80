package memory

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/baechuer/member-portal/internal/domain"
)

// Hasher is the minimal surface we need for seeding.
type Hasher interface {
	Hash(password string) (string, error)
}

// DevAdminPassword is the password of the seeded development admin.
const DevAdminPassword = "AdminPassword123!"

// SeedDev creates an approved admin and the default representative roster for
// local development. Safe to call multiple times (duplicates ignored).
func SeedDev(ctx context.Context, users *UserRepo, reps *RepresentativeRepo, hasher Hasher, adminEmail string) {
	hash, err := hasher.Hash(DevAdminPassword)
	if err != nil {
		log.Warn().Err(err).Msg("seed: hash failed")
		return
	}

	now := time.Now().UTC()
	_, err = users.Create(ctx, domain.User{
		FirstName:          "Portal",
		LastName:           "Admin",
		Email:              adminEmail,
		PasswordHash:       hash,
		Timezone:           domain.DefaultTimezone,
		VerificationStatus: domain.StatusApproved,
		EmailVerified:      true,
		IsAdmin:            true,
		VerifiedBy:         "seed",
		VerifiedAt:         &now,
	})
	if err != nil && !domain.Is(err, "email_already_exists") {
		log.Warn().Err(err).Msg("seed: admin create failed")
	}

	if n, _ := reps.Count(ctx); n == 0 {
		roster := domain.DefaultRepresentatives()
		for i := range roster {
			roster[i].IsActive = true
			roster[i].CreatedAt = now
			roster[i].UpdatedAt = now
		}
		if _, err := reps.InsertMany(ctx, roster); err != nil {
			log.Warn().Err(err).Msg("seed: representatives insert failed")
		}
	}

	log.Info().Str("admin_email", adminEmail).Msg("seed: in-memory store seeded")
}
