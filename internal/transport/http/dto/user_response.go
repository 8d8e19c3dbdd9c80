package dto

import (
	"time"

	"github.com/baechuer/member-portal/internal/application/admin"
	"github.com/baechuer/member-portal/internal/application/auth"
	"github.com/baechuer/member-portal/internal/domain"
)

type RepresentativeView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// UserView is the sanitized user returned by every endpoint.
// Credentials and one-time tokens are never part of it.
type UserView struct {
	ID                     string              `json:"id"`
	FirstName              string              `json:"firstName"`
	LastName               string              `json:"lastName"`
	Email                  string              `json:"email"`
	Phone                  string              `json:"phone"`
	Company                string              `json:"company"`
	Timezone               string              `json:"timezone"`
	VerificationStatus     string              `json:"verificationStatus"`
	IsEmailVerified        bool                `json:"isEmailVerified"`
	IsAdmin                bool                `json:"isAdmin"`
	VerifiedBy             string              `json:"verifiedBy,omitempty"`
	VerifiedAt             *time.Time          `json:"verifiedAt,omitempty"`
	AssignedRepresentative *RepresentativeView `json:"assignedRepresentative"`
	CreatedAt              time.Time           `json:"createdAt"`
	UpdatedAt              time.Time           `json:"updatedAt"`
}

func NewRepresentativeView(r domain.Representative) RepresentativeView {
	return RepresentativeView{ID: r.ID, Name: r.Name, Phone: r.Phone, Email: r.Email}
}

func NewRepresentativeViews(reps []domain.Representative) []RepresentativeView {
	out := make([]RepresentativeView, 0, len(reps))
	for _, r := range reps {
		out = append(out, NewRepresentativeView(r))
	}
	return out
}

func NewUserView(p domain.Profile) UserView {
	u := p.User
	v := UserView{
		ID:                 u.ID,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		Email:              u.Email,
		Phone:              u.Phone,
		Company:            u.Company,
		Timezone:           u.Timezone,
		VerificationStatus: string(u.VerificationStatus),
		IsEmailVerified:    u.EmailVerified,
		IsAdmin:            u.IsAdmin,
		VerifiedBy:         u.VerifiedBy,
		VerifiedAt:         u.VerifiedAt,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
	if p.Representative != nil {
		rv := NewRepresentativeView(*p.Representative)
		v.AssignedRepresentative = &rv
	}
	return v
}

func NewUserViews(ps []domain.Profile) []UserView {
	out := make([]UserView, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewUserView(p))
	}
	return out
}

type LoginResponse struct {
	Token     string   `json:"token"`
	TokenType string   `json:"tokenType"`
	ExpiresIn int64    `json:"expiresIn"` // seconds
	User      UserView `json:"user"`
}

func NewLoginResponse(res auth.LoginResult) LoginResponse {
	return LoginResponse{
		Token:     res.Token.AccessToken,
		TokenType: res.Token.TokenType,
		ExpiresIn: res.Token.ExpiresIn,
		User:      NewUserView(res.Profile),
	}
}

type VerificationResponse struct {
	Message string   `json:"message"`
	User    UserView `json:"user"`
}

type PendingUsersResponse struct {
	Count int        `json:"count"`
	Users []UserView `json:"users"`
}

type AdminPendingResponse struct {
	Users           []UserView           `json:"users"`
	Representatives []RepresentativeView `json:"representatives"`
}

func NewAdminPendingResponse(o admin.PendingOverview) AdminPendingResponse {
	return AdminPendingResponse{
		Users:           NewUserViews(o.Users),
		Representatives: NewRepresentativeViews(o.Representatives),
	}
}
