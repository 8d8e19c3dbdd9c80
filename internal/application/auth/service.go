package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/baechuer/member-portal/internal/domain"
)

type Service struct {
	users  UserRepo
	reps   RepresentativeRepo
	hasher PasswordHasher
	signer TokenSigner
	notify Notifier

	sessionTTL time.Duration
	adminEmail string

	// e.g. https://frontend/reset-password?token=
	passwordResetBaseURL string
	passwordResetTTL     time.Duration

	log   zerolog.Logger
	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)
}

type Config struct {
	SessionTTL            time.Duration
	AdminEmail            string
	PasswordResetBaseURL  string
	PasswordResetTokenTTL time.Duration
}

func NewService(
	users UserRepo,
	reps RepresentativeRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	notify Notifier,
	cfg Config,
) *Service {
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	resetTTL := cfg.PasswordResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		users:  users,
		reps:   reps,
		hasher: hasher,
		signer: signer,
		notify: notify,

		sessionTTL: sessionTTL,
		adminEmail: cfg.AdminEmail,

		passwordResetBaseURL: cfg.PasswordResetBaseURL,
		passwordResetTTL:     resetTTL,

		log:   zerolog.Nop(),
		now:   time.Now,
		audit: func(context.Context, string, map[string]string) {},
	}
}

// SessionToken is the token output for handlers/DTO mapping.
type SessionToken struct {
	AccessToken string
	ExpiresIn   int64  // seconds
	TokenType   string // "Bearer"
}

type LoginResult struct {
	Profile domain.Profile
	Token   SessionToken
}

func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithLogger(l zerolog.Logger) *Service {
	s.log = l.With().Str("component", "auth").Logger()
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) issueToken(userID string) (SessionToken, error) {
	tok, err := s.signer.SignSessionToken(userID, s.sessionTTL)
	if err != nil {
		return SessionToken{}, domain.ErrTokenSignFailed(err)
	}
	return SessionToken{
		AccessToken: tok,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.sessionTTL.Seconds()),
	}, nil
}

// profileOf resolves the user's representative reference.
func (s *Service) profileOf(ctx context.Context, u domain.User) (domain.Profile, error) {
	if !u.Representative.IsSet() {
		return domain.NewProfile(u, nil), nil
	}
	rep, err := s.reps.GetByID(ctx, u.Representative.ID())
	if err != nil {
		if domain.Is(err, "representative_not_found") {
			return domain.NewProfile(u, nil), nil
		}
		return domain.Profile{}, err
	}
	return domain.NewProfile(u, &rep), nil
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", errors.New("invalid token length")
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}
