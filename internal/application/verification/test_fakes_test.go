package verification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/member-portal/internal/domain"
)

type auditEntry struct {
	action string
	fields map[string]string
}

type fakeUserRepo struct {
	mu sync.Mutex

	byID   map[string]domain.User
	nextID int

	createErr  error
	resolveErr error
	getErr     error

	// beforeResolve runs inside Resolve before the pending check, to simulate races.
	beforeResolve func(id string)
	resolveCalls  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == "" {
		f.nextID++
		u.ID = fmt.Sprintf("u%d", f.nextID)
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.User{}, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == domain.NormalizeEmail(email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByVerificationToken(_ context.Context, token string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.VerificationToken != "" && u.VerificationToken == token {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrVerifyTokenNotFound()
}

func (f *fakeUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	return f.put(u), nil
}

func (f *fakeUserRepo) ListByStatus(_ context.Context, status domain.VerificationStatus) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, u := range f.byID {
		if u.VerificationStatus == status {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeUserRepo) Resolve(_ context.Context, id string, res domain.Resolution) (domain.User, error) {
	if f.beforeResolve != nil {
		f.beforeResolve(id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolveCalls++
	if f.resolveErr != nil {
		return domain.User{}, f.resolveErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	if u.VerificationStatus != domain.StatusPending {
		return domain.User{}, domain.ErrAlreadyResolved(u.VerificationStatus)
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
	f.byID[id] = u
	return u, nil
}

func (f *fakeUserRepo) SetRepresentative(_ context.Context, id string, ref domain.RepresentativeRef) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u.Representative = ref
	f.byID[id] = u
	return u, nil
}

type fakeReps struct {
	byID map[string]domain.Representative
	err  error
}

func (f *fakeReps) GetByID(_ context.Context, id string) (domain.Representative, error) {
	if f.err != nil {
		return domain.Representative{}, f.err
	}
	r, ok := f.byID[id]
	if !ok {
		return domain.Representative{}, domain.ErrRepresentativeNotFound()
	}
	return r, nil
}

type fakeHasher struct {
	err error
}

func (h *fakeHasher) Hash(pw string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + pw, nil
}

type fakeNotifier struct {
	mu sync.Mutex

	reviewErr   error
	decisionErr error

	reviews   []domain.ReviewRequest
	decisions []domain.DecisionNotice
}

func (n *fakeNotifier) SendAdminReviewRequest(_ context.Context, req domain.ReviewRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reviews = append(n.reviews, req)
	return n.reviewErr
}

func (n *fakeNotifier) SendDecision(_ context.Context, d domain.DecisionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.decisions = append(n.decisions, d)
	return n.decisionErr
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	wf     *Workflow
	users  *fakeUserRepo
	reps   *fakeReps
	hasher *fakeHasher
	notify *fakeNotifier
	audits *[]auditEntry
}

func newHarness(t *testing.T) harness {
	t.Helper()

	users := newFakeUserRepo()
	reps := &fakeReps{byID: map[string]domain.Representative{
		"r1": {ID: "r1", Name: "Rep One", Phone: "555-0001", Email: "r1@reps.example", IsActive: true},
		"r2": {ID: "r2", Name: "Rep Two", Phone: "555-0002", Email: "r2@reps.example", IsActive: true},
	}}
	hasher := &fakeHasher{}
	notify := &fakeNotifier{}
	audits := &[]auditEntry{}

	wf := NewWorkflow(users, reps, hasher, notify, Config{
		AdminEmail:  "admin@portal.example",
		BackendURL:  "https://api.portal.example/",
		FrontendURL: "https://portal.example",
	}).
		WithClock(func() time.Time { return fixedNow }).
		WithAudit(func(_ context.Context, action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*audits = append(*audits, auditEntry{action: action, fields: cp})
		})

	return harness{wf: wf, users: users, reps: reps, hasher: hasher, notify: notify, audits: audits}
}

func (h harness) pendingUser(email string) domain.User {
	return h.users.put(domain.User{
		FirstName:          "Alice",
		LastName:           "Liddell",
		Email:              email,
		PasswordHash:       "hashed:pw",
		VerificationStatus: domain.StatusPending,
		VerificationToken:  "tok-" + email,
		CreatedAt:          fixedNow,
	})
}

func validRegistration() Registration {
	return Registration{
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     "alice@example.com",
		Password:  "s3cret!",
		Phone:     "555-1234",
		Company:   "Wonderland LLC",
		Timezone:  "America/Chicago",
	}
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error code=%q, got nil", code)
	}
	if !domain.Is(err, code) {
		t.Fatalf("expected code=%q, got err=%v", code, err)
	}
}

func lastAudit(t *testing.T, audits *[]auditEntry) auditEntry {
	t.Helper()
	if len(*audits) == 0 {
		t.Fatalf("expected an audit entry")
	}
	return (*audits)[len(*audits)-1]
}
