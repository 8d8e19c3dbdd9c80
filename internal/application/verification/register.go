package verification

import (
	"context"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

type Registration struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Company   string
	Timezone  string
}

func (r Registration) normalize() Registration {
	return Registration{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Email:     domain.NormalizeEmail(r.Email),
		Password:  r.Password,
		Phone:     strings.TrimSpace(r.Phone),
		Company:   strings.TrimSpace(r.Company),
		Timezone:  strings.TrimSpace(r.Timezone),
	}
}

func (r Registration) validate() error {
	required := []struct{ field, value string }{
		{"firstName", r.FirstName},
		{"lastName", r.LastName},
		{"email", r.Email},
		{"password", r.Password},
		{"phone", r.Phone},
		{"company", r.Company},
		{"timezone", r.Timezone},
	}
	for _, f := range required {
		if f.value == "" {
			return domain.ErrMissingField(f.field)
		}
	}
	if !domain.IsValidEmail(r.Email) {
		return domain.ErrInvalidField("email", "invalid format")
	}
	if !domain.IsValidTimezone(r.Timezone) {
		return domain.ErrInvalidField("timezone", "unsupported timezone")
	}
	return nil
}

// SubmitRegistration creates a pending account and asks the admin to review it.
// The review email is best effort: a delivery failure is logged, not returned.
func (w *Workflow) SubmitRegistration(ctx context.Context, reg Registration) (domain.Profile, error) {
	reg = reg.normalize()
	if err := reg.validate(); err != nil {
		return domain.Profile{}, err
	}

	if _, err := w.users.GetByEmail(ctx, reg.Email); err == nil {
		return domain.Profile{}, domain.ErrEmailAlreadyExists()
	} else if !domain.Is(err, "user_not_found") {
		return domain.Profile{}, err
	}

	hash, err := w.hasher.Hash(reg.Password)
	if err != nil {
		return domain.Profile{}, domain.ErrHashFailed(err)
	}

	token, err := newVerificationToken()
	if err != nil {
		return domain.Profile{}, domain.ErrRandomFailed(err)
	}

	now := w.now().UTC()
	created, err := w.users.Create(ctx, domain.User{
		FirstName:          reg.FirstName,
		LastName:           reg.LastName,
		Email:              reg.Email,
		PasswordHash:       hash,
		Phone:              reg.Phone,
		Company:            reg.Company,
		Timezone:           reg.Timezone,
		VerificationStatus: domain.StatusPending,
		VerificationToken:  token,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		return domain.Profile{}, err
	}

	w.audit(ctx, "user.registered", map[string]string{"user_id": created.ID, "result": "success"})

	err = w.notify.SendAdminReviewRequest(ctx, domain.ReviewRequest{
		AdminEmail:    w.cfg.AdminEmail,
		UserID:        created.ID,
		FullName:      created.FullName(),
		Email:         created.Email,
		Phone:         created.Phone,
		Company:       created.Company,
		Timezone:      created.Timezone,
		RegisteredAt:  created.CreatedAt,
		ApproveURL:    w.decisionURL(token, domain.ActionApprove),
		RejectURL:     w.decisionURL(token, domain.ActionReject),
		AdminPanelURL: w.cfg.FrontendURL + "/admin/pending-verifications",
	})
	if err != nil {
		w.log.Error().Err(err).Str("user_id", created.ID).Msg("admin review request not delivered")
	}

	return domain.NewProfile(created, nil), nil
}
