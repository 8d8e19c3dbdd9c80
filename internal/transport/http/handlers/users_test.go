package http_handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/transport/http/dto"
	"github.com/baechuer/member-portal/internal/transport/http/response"
)

func registerBody(email string) map[string]any {
	return map[string]any{
		"firstName": "Alice",
		"lastName":  "Smith",
		"email":     email,
		"password":  "secret1",
		"phone":     "555-0101",
		"company":   "Acme",
		"timezone":  "America/Chicago",
	}
}

func TestUserHandler_Register_InvalidJSON(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(`{"email":`))
	rr := httptest.NewRecorder()
	f.userH.Register(rr, req)

	mustErrorCode(t, rr, http.StatusBadRequest, "invalid_json")
}

func TestUserHandler_Register_MissingField(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	body := registerBody("alice@x.com")
	delete(body, "company")
	rr := httptest.NewRecorder()
	f.userH.Register(rr, newJSONRequest(t, http.MethodPost, "/api/users/register", body))

	eb := mustErrorCode(t, rr, http.StatusBadRequest, "missing_field")
	if eb.Error.Meta["field"] != "company" {
		t.Fatalf("expected field company, got %+v", eb.Error.Meta)
	}
}

func TestUserHandler_Register_CreatesPendingAndNotifiesAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.userH.Register(rr, newJSONRequest(t, http.MethodPost, "/api/users/register", registerBody("Alice@X.com")))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var got dto.VerificationResponse
	mustReadData(t, rr, &got)
	if got.User.VerificationStatus != "pending" || got.User.IsEmailVerified {
		t.Fatalf("expected pending/unverified, got %+v", got.User)
	}
	if got.User.Email != "alice@x.com" {
		t.Fatalf("expected normalized email, got %q", got.User.Email)
	}
	if strings.Contains(rr.Body.String(), "password") || strings.Contains(rr.Body.String(), "verificationToken") {
		t.Fatalf("response leaks secrets: %s", rr.Body.String())
	}

	sent := f.notify.Sent()
	if len(sent) != 1 || sent[0].Kind != "admin_review_request" || sent[0].To != testAdminEmail {
		t.Fatalf("expected one review request to admin, got %+v", sent)
	}
}

func TestUserHandler_Register_DuplicateEmail_Returns400(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedUser(t, "alice@x.com", "secret1", domain.StatusPending, false)

	rr := httptest.NewRecorder()
	f.userH.Register(rr, newJSONRequest(t, http.MethodPost, "/api/users/register", registerBody("ALICE@x.com")))

	mustErrorCode(t, rr, http.StatusBadRequest, "email_already_exists")
}

func TestUserHandler_Login(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedUser(t, "ok@x.com", "secret1", domain.StatusApproved, false)
	f.seedUser(t, "wait@x.com", "secret1", domain.StatusPending, false)
	f.seedUser(t, "no@x.com", "secret1", domain.StatusRejected, false)

	cases := []struct {
		name, email, password string
		status                int
		code                  string
		verification          string
	}{
		{"unknown email", "ghost@x.com", "secret1", http.StatusUnauthorized, "invalid_credentials", ""},
		{"wrong password", "ok@x.com", "nope123", http.StatusUnauthorized, "invalid_credentials", ""},
		{"pending", "wait@x.com", "secret1", http.StatusUnauthorized, "pending_approval", "pending"},
		{"rejected", "no@x.com", "secret1", http.StatusUnauthorized, "account_rejected", "rejected"},
		{"wrong password on pending hides status", "wait@x.com", "bad", http.StatusUnauthorized, "invalid_credentials", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			f.userH.Login(rr, newJSONRequest(t, http.MethodPost, "/api/users/login",
				map[string]string{"email": tc.email, "password": tc.password}))

			eb := mustErrorCode(t, rr, tc.status, tc.code)
			if eb.Error.Meta["verificationStatus"] != tc.verification {
				t.Fatalf("expected verificationStatus %q, got %+v", tc.verification, eb.Error.Meta)
			}
		})
	}

	t.Run("approved", func(t *testing.T) {
		rr := httptest.NewRecorder()
		f.userH.Login(rr, newJSONRequest(t, http.MethodPost, "/api/users/login",
			map[string]string{"email": " OK@x.com ", "password": "secret1"}))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
		}
		var got dto.LoginResponse
		mustReadData(t, rr, &got)
		if got.Token == "" || got.TokenType != "Bearer" || got.ExpiresIn != 86400 {
			t.Fatalf("unexpected token fields: %+v", got)
		}
		if got.User.Email != "ok@x.com" {
			t.Fatalf("unexpected user %+v", got.User)
		}
	})
}

func TestUserHandler_Logout_Returns200(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.userH.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/users/logout", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var msg response.Message
	mustReadData(t, rr, &msg)
	if msg.Message == "" {
		t.Fatalf("expected message")
	}
}

func TestUserHandler_AdminVerify_ApproveThenAlreadyResolved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	reps := f.seedReps(t)
	u := f.seedUser(t, "bob@x.com", "secret1", domain.StatusPending, false)

	url := "/api/users/admin-verify?token=" + u.VerificationToken + "&action=approve&representativeId=" + reps[0].ID
	rr := httptest.NewRecorder()
	f.userH.AdminVerify(rr, httptest.NewRequest(http.MethodGet, url, nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var got dto.VerificationResponse
	mustReadData(t, rr, &got)
	if got.User.VerificationStatus != "approved" || !got.User.IsEmailVerified {
		t.Fatalf("expected approved+verified, got %+v", got.User)
	}
	if got.User.AssignedRepresentative == nil || got.User.AssignedRepresentative.ID != reps[0].ID {
		t.Fatalf("expected representative %s, got %+v", reps[0].ID, got.User.AssignedRepresentative)
	}
	if got.User.VerifiedBy != testAdminEmail {
		t.Fatalf("expected actor %s, got %q", testAdminEmail, got.User.VerifiedBy)
	}

	// the token is consumed by the first decision
	rr = httptest.NewRecorder()
	f.userH.AdminVerify(rr, httptest.NewRequest(http.MethodGet, "/api/users/admin-verify?token="+u.VerificationToken+"&action=reject", nil))
	mustErrorCode(t, rr, http.StatusNotFound, "verify_token_not_found")
}

func TestUserHandler_AdminVerify_BadQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.userH.AdminVerify(rr, httptest.NewRequest(http.MethodGet, "/api/users/admin-verify?token=abc&action=delete", nil))
	mustErrorCode(t, rr, http.StatusBadRequest, "invalid_action")

	rr = httptest.NewRecorder()
	f.userH.AdminVerify(rr, httptest.NewRequest(http.MethodGet, "/api/users/admin-verify?action=approve", nil))
	mustErrorCode(t, rr, http.StatusBadRequest, "missing_field")

	rr = httptest.NewRecorder()
	f.userH.AdminVerify(rr, httptest.NewRequest(http.MethodGet, "/api/users/admin-verify?token=unknown&action=approve", nil))
	mustErrorCode(t, rr, http.StatusNotFound, "verify_token_not_found")
}

func TestUserHandler_ForgotPassword_GenericForUnknownAndKnown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedUser(t, "known@x.com", "secret1", domain.StatusApproved, false)

	var bodies []string
	for _, email := range []string{"unknown@x.com", "known@x.com"} {
		rr := httptest.NewRecorder()
		f.userH.ForgotPassword(rr, newJSONRequest(t, http.MethodPost, "/api/users/forgot-password", map[string]string{"email": email}))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", email, rr.Code)
		}
		bodies = append(bodies, rr.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("responses differ:\n%s\n%s", bodies[0], bodies[1])
	}

	sent := f.notify.Sent()
	if len(sent) != 1 || sent[0].Kind != "password_reset" || sent[0].To != "known@x.com" {
		t.Fatalf("expected one reset email to known@x.com, got %+v", sent)
	}
}

func TestUserHandler_ResetPassword(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.seedUser(t, "reset@x.com", "secret1", domain.StatusApproved, false)

	rr := httptest.NewRecorder()
	f.userH.ForgotPassword(rr, newJSONRequest(t, http.MethodPost, "/api/users/forgot-password", map[string]string{"email": "reset@x.com"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("forgot: expected 200, got %d", rr.Code)
	}

	u, err := f.users.GetByEmail(context.Background(), "reset@x.com")
	if err != nil || u.PasswordResetToken == "" {
		t.Fatalf("expected stored reset token, err=%v", err)
	}

	rr = httptest.NewRecorder()
	f.userH.ResetPassword(rr, newJSONRequest(t, http.MethodPost, "/api/users/reset-password",
		map[string]string{"token": u.PasswordResetToken, "password": "abc"}))
	mustErrorCode(t, rr, http.StatusBadRequest, "weak_password")

	rr = httptest.NewRecorder()
	f.userH.ResetPassword(rr, newJSONRequest(t, http.MethodPost, "/api/users/reset-password",
		map[string]string{"token": u.PasswordResetToken, "password": "newsecret"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}

	// token is single use
	rr = httptest.NewRecorder()
	f.userH.ResetPassword(rr, newJSONRequest(t, http.MethodPost, "/api/users/reset-password",
		map[string]string{"token": u.PasswordResetToken, "password": "another1"}))
	mustErrorCode(t, rr, http.StatusBadRequest, "invalid_or_expired_token")

	rr = httptest.NewRecorder()
	f.userH.Login(rr, newJSONRequest(t, http.MethodPost, "/api/users/login",
		map[string]string{"email": "reset@x.com", "password": "newsecret"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rr.Code)
	}
}

func TestUserHandler_Contact(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rr := httptest.NewRecorder()
	f.userH.Contact(rr, newJSONRequest(t, http.MethodPost, "/api/users/contact",
		map[string]string{"email": "guest@x.com", "message": "too short"}))
	mustErrorCode(t, rr, http.StatusBadRequest, "invalid_field")

	u := f.seedUser(t, "member@x.com", "secret1", domain.StatusApproved, false)
	req := asUser(newJSONRequest(t, http.MethodPost, "/api/users/contact",
		map[string]string{"email": "member@x.com", "message": "I would like to talk to my rep."}), u)
	rr = httptest.NewRecorder()
	f.userH.Contact(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}

	sent := f.notify.Sent()
	if len(sent) != 2 || sent[0].Kind != "contact_message" || sent[1].Kind != "contact_confirmation" {
		t.Fatalf("expected message + confirmation, got %+v", sent)
	}
	msg, ok := sent[0].Payload.(domain.ContactMessage)
	if !ok || msg.FromName != "Test User" {
		t.Fatalf("expected sender name from session, got %+v", sent[0].Payload)
	}
}

func TestUserHandler_Profile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seedUser(t, "carol@x.com", "secret1", domain.StatusApproved, false)

	rr := httptest.NewRecorder()
	f.userH.GetProfile(rr, httptest.NewRequest(http.MethodGet, "/api/users/profile", nil))
	mustErrorCode(t, rr, http.StatusUnauthorized, "token_missing")

	rr = httptest.NewRecorder()
	f.userH.UpdateProfile(rr, asUser(newJSONRequest(t, http.MethodPut, "/api/users/profile",
		map[string]string{"firstName": "  Caroline ", "phone": "", "timezone": "UTC"}), u))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var got dto.UserView
	mustReadData(t, rr, &got)
	if got.FirstName != "Caroline" || got.Phone != "555-0100" || got.Timezone != "UTC" {
		t.Fatalf("unexpected profile after update: %+v", got)
	}

	rr = httptest.NewRecorder()
	f.userH.UpdateProfile(rr, asUser(newJSONRequest(t, http.MethodPut, "/api/users/profile",
		map[string]string{"email": "hijack@x.com"}), u))
	mustErrorCode(t, rr, http.StatusBadRequest, "invalid_json")

	rr = httptest.NewRecorder()
	f.userH.GetProfile(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/profile", nil), u))
	mustReadData(t, rr, &got)
	if got.Email != "carol@x.com" || got.FirstName != "Caroline" {
		t.Fatalf("unexpected profile: %+v", got)
	}
}

func TestUserHandler_CheckAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.seedUser(t, "dave@x.com", "secret1", domain.StatusApproved, false)

	rr := httptest.NewRecorder()
	f.userH.CheckAuth(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/check-auth", nil), u))

	var got dto.UserView
	mustReadData(t, rr, &got)
	if got.ID != u.ID {
		t.Fatalf("expected %s, got %s", u.ID, got.ID)
	}
}

func TestUserHandler_PendingAndManualVerify(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	caller := f.seedUser(t, "staff@x.com", "secret1", domain.StatusApproved, false)
	pending := f.seedUser(t, "erin@x.com", "secret1", domain.StatusPending, false)

	rr := httptest.NewRecorder()
	f.userH.PendingUsers(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/users/pending-users", nil), caller))
	var list dto.PendingUsersResponse
	mustReadData(t, rr, &list)
	if list.Count != 1 || list.Users[0].ID != pending.ID {
		t.Fatalf("unexpected pending list %+v", list)
	}

	rr = httptest.NewRecorder()
	f.userH.ManualVerify(rr, asUser(newJSONRequest(t, http.MethodPost, "/api/users/manual-verify",
		map[string]string{"userId": pending.ID, "action": "reject"}), caller))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rr.Code, rr.Body.String())
	}
	var got dto.VerificationResponse
	mustReadData(t, rr, &got)
	if got.User.VerificationStatus != "rejected" || got.User.IsEmailVerified {
		t.Fatalf("expected rejected, got %+v", got.User)
	}

	rr = httptest.NewRecorder()
	f.userH.ManualVerify(rr, asUser(newJSONRequest(t, http.MethodPost, "/api/users/manual-verify",
		map[string]string{"userId": pending.ID, "action": "approve"}), caller))
	mustErrorCode(t, rr, http.StatusBadRequest, "already_resolved")

	rr = httptest.NewRecorder()
	f.userH.ManualVerify(rr, asUser(newJSONRequest(t, http.MethodPost, "/api/users/manual-verify",
		map[string]string{"userId": "missing", "action": "approve"}), caller))
	mustErrorCode(t, rr, http.StatusNotFound, "user_not_found")
}
