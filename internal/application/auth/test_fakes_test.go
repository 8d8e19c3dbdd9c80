package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/member-portal/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	// injected errors (if set, method returns error)
	getByIDErr       error
	getByEmailErr    error
	setResetErr      error
	clearResetErr    error
	updatePwdErr     error
	updateProfileErr error

	// record calls
	clearedResets  []string
	updatedPwd     []struct{ id, hash string }
	rehashed       []struct{ id, hash string }
	profileUpdates int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
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

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByResetToken(_ context.Context, token string, now time.Time) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range f.byID {
		if u.PasswordResetToken == token && u.PasswordResetExpires != nil && now.Before(*u.PasswordResetExpires) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrResetTokenInvalid()
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id string, patch domain.ProfilePatch) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updateProfileErr != nil {
		return domain.User{}, f.updateProfileErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	patch.Apply(&u)
	f.byID[id] = u
	f.profileUpdates++
	return u, nil
}

func (f *fakeUserRepo) SetPasswordReset(_ context.Context, id, token string, expires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setResetErr != nil {
		return f.setResetErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordResetToken = token
	u.PasswordResetExpires = &expires
	f.byID[id] = u
	return nil
}

func (f *fakeUserRepo) ClearPasswordReset(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearedResets = append(f.clearedResets, id)
	if f.clearResetErr != nil {
		return f.clearResetErr
	}
	u := f.byID[id]
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	f.byID[id] = u
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = hash
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	f.byID[id] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{id, hash})
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = hash
	f.byID[id] = u
	f.rehashed = append(f.rehashed, struct{ id, hash string }{id, hash})
	return nil
}

type fakeReps struct {
	byID map[string]domain.Representative
}

func (f *fakeReps) GetByID(_ context.Context, id string) (domain.Representative, error) {
	r, ok := f.byID[id]
	if !ok {
		return domain.Representative{}, domain.ErrRepresentativeNotFound()
	}
	return r, nil
}

type fakeHasher struct {
	hashFn func(pw string) (string, error)
	stale  func(hash string) bool
}

func (h *fakeHasher) NeedsRehash(hash string) bool {
	return h.stale != nil && h.stale(hash)
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Compare(hash string, password string) error {
	if hash != "hash:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type fakeSigner struct {
	signErr  error
	signed   []string
	lastTTL  time.Duration
	verifyFn func(token string) (TokenClaims, error)
}

func (s *fakeSigner) SignSessionToken(userID string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	s.signed = append(s.signed, userID)
	s.lastTTL = ttl
	return "tok:" + userID, nil
}

func (s *fakeSigner) VerifySessionToken(token string) (TokenClaims, error) {
	if s.verifyFn != nil {
		return s.verifyFn(token)
	}
	if !strings.HasPrefix(token, "tok:") {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	return TokenClaims{UserID: strings.TrimPrefix(token, "tok:"), Exp: time.Now().Add(time.Hour)}, nil
}

type fakeNotifier struct {
	mu sync.Mutex

	resetErr   error
	contactErr error
	confirmErr error

	resets   []domain.PasswordResetNotice
	contacts []domain.ContactMessage
	confirms []domain.ContactMessage
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, r domain.PasswordResetNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, r)
	return n.resetErr
}

func (n *fakeNotifier) SendContactMessage(_ context.Context, m domain.ContactMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.contacts = append(n.contacts, m)
	return n.contactErr
}

func (n *fakeNotifier) SendContactConfirmation(_ context.Context, m domain.ContactMessage) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirms = append(n.confirms, m)
	return n.confirmErr
}

var testNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type svcDeps struct {
	users  *fakeUserRepo
	hasher *fakeHasher
	signer *fakeSigner
	notify *fakeNotifier
	audits *[]auditEntry
	now    *time.Time
}

func newSvcForTest(t *testing.T) (*Service, svcDeps) {
	t.Helper()

	d := svcDeps{
		users:  newFakeUserRepo(),
		hasher: &fakeHasher{},
		signer: &fakeSigner{},
		notify: &fakeNotifier{},
		audits: &[]auditEntry{},
	}
	now := testNow
	d.now = &now

	reps := &fakeReps{byID: map[string]domain.Representative{
		"r1": {ID: "r1", Name: "Rep One", Phone: "555-0001", Email: "r1@reps.example", IsActive: true},
	}}

	cfg := Config{
		SessionTTL:            24 * time.Hour,
		AdminEmail:            "admin@portal.example",
		PasswordResetBaseURL:  "https://fe/reset-password?token=",
		PasswordResetTokenTTL: time.Hour,
	}

	svc := NewService(d.users, reps, d.hasher, d.signer, d.notify, cfg).
		WithClock(func() time.Time { return *d.now }).
		WithAudit(func(_ context.Context, action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			*d.audits = append(*d.audits, auditEntry{action: action, fields: cp})
		})

	if svc == nil {
		t.Fatalf("service should not be nil")
	}
	return svc, d
}

// approvedUser is an account that is allowed to log in, with password "pw".
func approvedUser(id, email string) domain.User {
	return domain.User{
		ID:                 id,
		FirstName:          "Alice",
		LastName:           "Liddell",
		Email:              email,
		PasswordHash:       "hash:pw",
		Phone:              "555-1234",
		Company:            "Wonderland LLC",
		Timezone:           domain.DefaultTimezone,
		VerificationStatus: domain.StatusApproved,
		EmailVerified:      true,
		CreatedAt:          testNow.Add(-48 * time.Hour),
	}
}

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireErrCode(t *testing.T, err error, code string) {
	t.Helper()
	if !domain.Is(err, code) {
		t.Fatalf("want error %q, got %v", code, err)
	}
}

func requireErrKind(t *testing.T, err error, kind domain.ErrKind) {
	t.Helper()
	if err == nil || domain.KindOf(err) != kind {
		t.Fatalf("want %s error, got %v", kind, err)
	}
}
