package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/member-portal/internal/application/admin"
	"github.com/baechuer/member-portal/internal/application/auth"
	"github.com/baechuer/member-portal/internal/application/verification"
	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/infrastructure/memory"
	"github.com/baechuer/member-portal/internal/infrastructure/security"
	"github.com/baechuer/member-portal/internal/transport/http/middleware"
	"github.com/baechuer/member-portal/internal/transport/http/response"
)

const testAdminEmail = "admin@portal.test"

// fixture wires the real services over in-memory adapters.
type fixture struct {
	users  *memory.UserRepo
	reps   *memory.RepresentativeRepo
	notify *memory.LogNotifier
	hasher *security.BcryptHasher

	authSvc  *auth.Service
	workflow *verification.Workflow
	adminSvc *admin.Service

	userH  *UserHandler
	adminH *AdminHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:  memory.NewUserRepo(),
		reps:   memory.NewRepresentativeRepo(),
		notify: memory.NewLogNotifier(zerolog.Nop()),
		hasher: security.NewBcryptHasher(bcrypt.MinCost),
	}
	signer := security.NewJWTSigner("test-secret", "member-portal-test")

	f.workflow = verification.NewWorkflow(f.users, f.reps, f.hasher, f.notify, verification.Config{
		AdminEmail:  testAdminEmail,
		BackendURL:  "http://api.test",
		FrontendURL: "http://app.test",
	})
	f.authSvc = auth.NewService(f.users, f.reps, f.hasher, signer, f.notify, auth.Config{
		AdminEmail:           testAdminEmail,
		PasswordResetBaseURL: "http://app.test/reset-password?token=",
	})
	f.adminSvc = admin.NewService(f.users, f.reps, f.workflow)

	f.userH = NewUserHandler(f.authSvc, f.workflow)
	f.adminH = NewAdminHandler(f.adminSvc)
	return f
}

// seedUser stores a user with the given status directly in the repo.
func (f *fixture) seedUser(t *testing.T, email, password string, status domain.VerificationStatus, isAdmin bool) domain.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := f.users.Create(context.Background(), domain.User{
		FirstName:          "Test",
		LastName:           "User",
		Email:              email,
		PasswordHash:       hash,
		Phone:              "555-0100",
		Company:            "Acme",
		Timezone:           "UTC",
		VerificationStatus: status,
		EmailVerified:      status == domain.StatusApproved,
		VerificationToken:  "vt-" + email,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if isAdmin {
		if u, err = f.users.SetAdmin(context.Background(), email, true); err != nil {
			t.Fatalf("set admin: %v", err)
		}
	}
	return u
}

func (f *fixture) seedReps(t *testing.T) []domain.Representative {
	t.Helper()
	reps, err := f.adminSvc.SeedDefaultRepresentatives(context.Background())
	if err != nil {
		t.Fatalf("seed reps: %v", err)
	}
	return reps
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes {"data": ...} into out.
func mustReadData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil || len(env.Data) == 0 {
		t.Fatalf("decode json failed; body=%s", rr.Body.String())
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", rr.Body.String(), err)
	}
}

// mustErrorCode asserts status and the error code in the body.
func mustErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) response.ErrorBody {
	t.Helper()

	if rr.Code != status {
		t.Fatalf("expected status %d, got %d; body=%s", status, rr.Code, rr.Body.String())
	}
	var body response.ErrorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v; body=%s", err, rr.Body.String())
	}
	if body.Error.Code != code {
		t.Fatalf("expected code %q, got %q", code, body.Error.Code)
	}
	return body
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = mustJSONBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser injects the profile of u into the request like the Auth middleware does.
func asUser(req *http.Request, u domain.User) *http.Request {
	return req.WithContext(middleware.WithProfile(req.Context(), domain.NewProfile(u, nil)))
}
