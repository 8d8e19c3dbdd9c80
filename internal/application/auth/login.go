package auth

import (
	"context"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

// Login authenticates a user and issues a session token.
// IMPORTANT: an unknown email and a wrong password produce the same error.
// Status errors are only reported once the password matched.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = domain.NormalizeEmail(email)

	fields := map[string]string{}
	fail := func(err error) (LoginResult, error) {
		fields["result"] = "error"
		fields["error_code"] = domainCode(err)
		s.audit(ctx, "auth.login", fields)
		return LoginResult{}, err
	}

	if email == "" || password == "" {
		return fail(domain.ErrInvalidCredentials())
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return fail(domain.ErrInvalidCredentials())
		}
		return fail(err)
	}
	fields["user_id"] = u.ID

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return fail(domain.ErrInvalidCredentials())
	}

	if err := u.LoginGate(); err != nil {
		return fail(err)
	}
	s.upgradeHash(ctx, u, password)

	tok, err := s.issueToken(u.ID)
	if err != nil {
		return fail(err)
	}

	p, err := s.profileOf(ctx, u)
	if err != nil {
		return fail(err)
	}

	fields["result"] = "success"
	s.audit(ctx, "auth.login", fields)
	return LoginResult{Profile: p, Token: tok}, nil
}

// Authenticate verifies a session token and returns the current profile.
// There is no server-side session: a valid signature and expiry is enough,
// provided the user still exists.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Profile{}, domain.ErrTokenMissing()
	}

	claims, err := s.signer.VerifySessionToken(token)
	if err != nil {
		return domain.Profile{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			return domain.Profile{}, domain.ErrSessionUserGone()
		}
		return domain.Profile{}, err
	}
	return s.profileOf(ctx, u)
}

type costChecker interface {
	NeedsRehash(hash string) bool
}

// upgradeHash re-hashes a stale credential at the configured cost. It never
// fails the login.
func (s *Service) upgradeHash(ctx context.Context, u domain.User, password string) {
	cc, ok := s.hasher.(costChecker)
	if !ok || !cc.NeedsRehash(u.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, u.ID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", u.ID).Msg("password rehash failed")
		return
	}
	s.log.Info().Str("user_id", u.ID).Msg("password rehashed at current cost")
}
