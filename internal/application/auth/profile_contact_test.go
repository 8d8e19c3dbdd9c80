package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/member-portal/internal/domain"
)

func strp(s string) *string { return &s }

func TestUpdateProfile_PartialTrimmed(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	before := approvedUser("u1", "alice@example.com")
	before.IsAdmin = true
	before.Representative = domain.RestoreRepresentativeRef("r1")
	d.users.put(before)

	p, err := svc.UpdateProfile(context.Background(), "u1", domain.ProfilePatch{
		FirstName: strp("  Alicia "),
		LastName:  strp(""),
		Timezone:  strp("UTC"),
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if p.User.FirstName != "Alicia" || p.User.LastName != "Liddell" || p.User.Timezone != "UTC" {
		t.Fatalf("unexpected profile %+v", p.User)
	}

	after := d.users.get("u1")
	if after.Email != before.Email || after.PasswordHash != before.PasswordHash ||
		after.VerificationStatus != before.VerificationStatus || !after.IsAdmin ||
		after.Representative != before.Representative || after.Phone != before.Phone {
		t.Fatalf("update touched protected fields: %+v", after)
	}
	if p.Representative == nil || p.Representative.ID != "r1" {
		t.Fatalf("expected representative populated")
	}
}

func TestUpdateProfile_InvalidTimezone(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(approvedUser("u1", "alice@example.com"))

	_, err := svc.UpdateProfile(context.Background(), "u1", domain.ProfilePatch{Timezone: strp("Mars/Olympus")})
	requireDomainCode(t, err, "invalid_field")
	if d.users.profileUpdates != 0 {
		t.Fatalf("store must not be called")
	}
}

func TestUpdateProfile_EmptyPatch_ReturnsCurrent(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(approvedUser("u1", "alice@example.com"))

	p, err := svc.UpdateProfile(context.Background(), "u1", domain.ProfilePatch{Phone: strp("   ")})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if p.User.Phone != "555-1234" || d.users.profileUpdates != 0 {
		t.Fatalf("empty patch must be a no-op")
	}
}

func TestUpdateProfile_UserVanished(t *testing.T) {
	t.Parallel()

	svc, _ := newSvcForTest(t)
	_, err := svc.UpdateProfile(context.Background(), "ghost", domain.ProfilePatch{FirstName: strp("X")})
	requireDomainCode(t, err, "user_not_found")
	requireErrKind(t, err, domain.KindNotFound)
}

func TestGetProfile(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(approvedUser("u1", "alice@example.com"))

	p, err := svc.GetProfile(context.Background(), "u1")
	if err != nil || p.User.Email != "alice@example.com" {
		t.Fatalf("unexpected %+v err=%v", p, err)
	}
	_, err = svc.GetProfile(context.Background(), "")
	requireDomainCode(t, err, "token_missing")
}

func TestSubmitContact_Validation(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)

	cases := []struct {
		in   ContactInput
		code string
	}{
		{ContactInput{Message: "hello there friend"}, "missing_field"},
		{ContactInput{Email: "a@b.co"}, "missing_field"},
		{ContactInput{Email: "not-an-email", Message: "hello there friend"}, "invalid_field"},
		{ContactInput{Email: "a@b.co", Message: "   short    "}, "invalid_field"},
	}
	for _, c := range cases {
		requireDomainCode(t, svc.SubmitContact(context.Background(), c.in, nil), c.code)
	}
	if len(d.notify.contacts) != 0 {
		t.Fatalf("invalid input must not send")
	}
}

func TestSubmitContact_SendsToAdminAndConfirms(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)

	err := svc.SubmitContact(context.Background(), ContactInput{
		Email:   "visitor@example.com",
		Message: "  I would like to know more.  ",
		Name:    "Visitor",
	}, nil)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if len(d.notify.contacts) != 1 || len(d.notify.confirms) != 1 {
		t.Fatalf("expected message and confirmation")
	}
	m := d.notify.contacts[0]
	if m.AdminEmail != "admin@portal.example" || m.FromEmail != "visitor@example.com" ||
		m.Message != "I would like to know more." || m.FromName != "Visitor" {
		t.Fatalf("unexpected message %+v", m)
	}
}

func TestSubmitContact_NameFromSessionOrDirectory(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.users.put(approvedUser("u1", "alice@example.com"))

	err := svc.SubmitContact(context.Background(), ContactInput{Email: "Alice@example.com", Message: "a long enough message"}, nil)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if d.notify.contacts[0].FromName != "Alice Liddell" {
		t.Fatalf("expected name looked up, got %q", d.notify.contacts[0].FromName)
	}

	sender := &domain.User{FirstName: "Bob", LastName: "Builder"}
	err = svc.SubmitContact(context.Background(), ContactInput{Email: "other@example.com", Message: "a long enough message"}, sender)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if d.notify.contacts[1].FromName != "Bob Builder" {
		t.Fatalf("expected session name, got %q", d.notify.contacts[1].FromName)
	}
}

func TestSubmitContact_AdminSendFails(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.notify.contactErr = errors.New("smtp")

	err := svc.SubmitContact(context.Background(), ContactInput{Email: "a@b.co", Message: "a long enough message"}, nil)
	requireDomainCode(t, err, "notification_failed")
	if len(d.notify.confirms) != 0 {
		t.Fatalf("no confirmation when the message itself failed")
	}
}

func TestSubmitContact_ConfirmationFailureSwallowed(t *testing.T) {
	t.Parallel()

	svc, d := newSvcForTest(t)
	d.notify.confirmErr = errors.New("smtp")

	if err := svc.SubmitContact(context.Background(), ContactInput{Email: "a@b.co", Message: "a long enough message"}, nil); err != nil {
		t.Fatalf("confirmation failure must be swallowed, got %v", err)
	}
}
