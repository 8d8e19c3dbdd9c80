package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/baechuer/member-portal/internal/domain"
)

type RepresentativeRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.Representative
}

func NewRepresentativeRepo() *RepresentativeRepo {
	return &RepresentativeRepo{byID: make(map[string]domain.Representative)}
}

func (r *RepresentativeRepo) GetByID(_ context.Context, id string) (domain.Representative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.byID[id]
	if !ok {
		return domain.Representative{}, domain.ErrRepresentativeNotFound()
	}
	return rep, nil
}

func (r *RepresentativeRepo) ListActive(_ context.Context) ([]domain.Representative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Representative, 0, len(r.byID))
	for _, rep := range r.byID {
		if rep.IsActive {
			out = append(out, rep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *RepresentativeRepo) ListByIDs(_ context.Context, ids []string) ([]domain.Representative, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Representative, 0, len(ids))
	for _, id := range ids {
		if rep, ok := r.byID[id]; ok {
			out = append(out, rep)
		}
	}
	return out, nil
}

func (r *RepresentativeRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.byID)), nil
}

// InsertMany stores all representatives or none (email is unique).
func (r *RepresentativeRepo) InsertMany(_ context.Context, reps []domain.Representative) ([]domain.Representative, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	emails := make(map[string]bool, len(r.byID)+len(reps))
	for _, rep := range r.byID {
		emails[rep.Email] = true
	}

	out := make([]domain.Representative, 0, len(reps))
	for _, rep := range reps {
		rep.Email = domain.NormalizeEmail(rep.Email)
		if emails[rep.Email] {
			return nil, domain.WithMeta(domain.New(domain.KindConflict, "representative_exists", "representative email already exists"),
				map[string]string{"email": rep.Email})
		}
		emails[rep.Email] = true
		if rep.ID == "" {
			rep.ID = uuid.NewString()
		}
		out = append(out, rep)
	}
	for _, rep := range out {
		r.byID[rep.ID] = rep
	}
	return out, nil
}
