// Package admin holds the privileged operations behind /api/admin. Every
// entry point re-checks that the actor is an admin, independent of the HTTP
// middleware that normally guards it.
package admin

import (
	"context"
	"sort"
	"time"

	"github.com/baechuer/member-portal/internal/application/verification"
	"github.com/baechuer/member-portal/internal/domain"
)

type UserRepo interface {
	List(ctx context.Context) ([]domain.User, error)
	ListByStatus(ctx context.Context, status domain.VerificationStatus) ([]domain.User, error)
	SetAdmin(ctx context.Context, email string, isAdmin bool) (domain.User, error)
}

type RepresentativeRepo interface {
	ListActive(ctx context.Context) ([]domain.Representative, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Representative, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, reps []domain.Representative) ([]domain.Representative, error)
}

// Workflow is the part of the verification workflow admins drive.
type Workflow interface {
	ResolveByAdminDecision(ctx context.Context, d verification.AdminDecision) (domain.Profile, error)
	AssignRepresentative(ctx context.Context, userID, representativeID string) (domain.Profile, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID  string
	Email   string
	IsAdmin bool
}

type Service struct {
	users    UserRepo
	reps     RepresentativeRepo
	workflow Workflow

	now   func() time.Time
	audit func(ctx context.Context, action string, fields map[string]string)
}

func NewService(users UserRepo, reps RepresentativeRepo, wf Workflow) *Service {
	return &Service{
		users:    users,
		reps:     reps,
		workflow: wf,
		now:      time.Now,
		audit:    func(context.Context, string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(ctx context.Context, action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func requireAdmin(a Actor) error {
	if a.UserID == "" {
		return domain.ErrTokenMissing()
	}
	if !a.IsAdmin {
		return domain.ErrAdminRequired()
	}
	return nil
}

// ListRepresentatives returns the active roster sorted by name.
func (s *Service) ListRepresentatives(ctx context.Context, actor Actor) ([]domain.Representative, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.activeRoster(ctx)
}

func (s *Service) activeRoster(ctx context.Context) ([]domain.Representative, error) {
	reps, err := s.reps.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reps, func(i, j int) bool { return reps[i].Name < reps[j].Name })
	return reps, nil
}

// SeedRepresentatives inserts the default roster once. Any existing
// representative makes it fail without writing.
func (s *Service) SeedRepresentatives(ctx context.Context, actor Actor) ([]domain.Representative, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.seed(ctx, actor.Email)
}

func (s *Service) seed(ctx context.Context, actor string) ([]domain.Representative, error) {
	n, err := s.reps.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, domain.ErrAlreadySeeded()
	}

	now := s.now().UTC()
	roster := domain.DefaultRepresentatives()
	for i := range roster {
		roster[i].Email = domain.NormalizeEmail(roster[i].Email)
		roster[i].IsActive = true
		roster[i].CreatedAt = now
		roster[i].UpdatedAt = now
	}

	created, err := s.reps.InsertMany(ctx, roster)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "admin.seed_representatives", map[string]string{"actor": actor, "result": "success"})
	return created, nil
}

// ListUsers returns every user, newest first, with representatives resolved.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]domain.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	reps, err := s.representativesOf(ctx, users)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Profile, 0, len(users))
	for _, u := range users {
		var rep *domain.Representative
		if r, ok := reps[u.Representative.ID()]; ok && u.Representative.IsSet() {
			rep = &r
		}
		out = append(out, domain.NewProfile(u, rep))
	}
	return out, nil
}

func (s *Service) representativesOf(ctx context.Context, users []domain.User) (map[string]domain.Representative, error) {
	seen := map[string]bool{}
	var ids []string
	for _, u := range users {
		if id := u.Representative.ID(); id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	out := make(map[string]domain.Representative, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	reps, err := s.reps.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range reps {
		out[r.ID] = r
	}
	return out, nil
}

type PendingOverview struct {
	Users           []domain.Profile
	Representatives []domain.Representative
}

// ListPending returns pending users together with the roster to pick from.
func (s *Service) ListPending(ctx context.Context, actor Actor) (PendingOverview, error) {
	if err := requireAdmin(actor); err != nil {
		return PendingOverview{}, err
	}

	users, err := s.users.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		return PendingOverview{}, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })

	reps, err := s.activeRoster(ctx)
	if err != nil {
		return PendingOverview{}, err
	}

	out := PendingOverview{Users: make([]domain.Profile, 0, len(users)), Representatives: reps}
	for _, u := range users {
		out.Users = append(out.Users, domain.NewProfile(u, nil))
	}
	return out, nil
}

// VerifyUser resolves a pending user from the admin panel. Approvals must
// name a representative.
func (s *Service) VerifyUser(ctx context.Context, actor Actor, userID, action, representativeID string) (domain.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Profile{}, err
	}
	return s.workflow.ResolveByAdminDecision(ctx, verification.AdminDecision{
		UserID:                userID,
		Action:                action,
		RepresentativeID:      representativeID,
		Actor:                 actor.Email,
		RequireRepresentative: true,
	})
}

func (s *Service) AssignRepresentative(ctx context.Context, actor Actor, userID, representativeID string) (domain.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return domain.Profile{}, err
	}
	return s.workflow.AssignRepresentative(ctx, userID, representativeID)
}

// PromoteAdmin grants admin rights by email. It is reachable only from the
// operator CLI, so it carries no actor.
func (s *Service) PromoteAdmin(ctx context.Context, email string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	u, err := s.users.SetAdmin(ctx, email, true)
	if err != nil {
		return domain.User{}, err
	}
	s.audit(ctx, "admin.promote", map[string]string{"user_id": u.ID, "result": "success"})
	return u, nil
}

// SeedDefaultRepresentatives is the CLI entry point for the one-time seed.
func (s *Service) SeedDefaultRepresentatives(ctx context.Context) ([]domain.Representative, error) {
	return s.seed(ctx, "cli")
}
