package dto

import "github.com/baechuer/member-portal/internal/domain"

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=6,max=128"`
	Phone     string `json:"phone" validate:"required,max=40"`
	Company   string `json:"company" validate:"required,max=200"`
	Timezone  string `json:"timezone" validate:"required,timezone"`
}

func (r *RegisterRequest) Validate() error {
	trim(&r.FirstName, &r.LastName, &r.Email, &r.Phone, &r.Company, &r.Timezone)
	return validateStruct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	trim(&r.Email)
	return validateStruct(r)
}

type ContactRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
	Name    string `json:"name,omitempty" validate:"max=200"`
}

func (r *ContactRequest) Validate() error {
	trim(&r.Email, &r.Message, &r.Name)
	return validateStruct(r)
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *ForgotPasswordRequest) Validate() error {
	trim(&r.Email)
	return validateStruct(r)
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (r *ResetPasswordRequest) Validate() error {
	trim(&r.Token)
	return validateStruct(r)
}

// AdminVerifyQuery is read from the emailed approve/reject link.
type AdminVerifyQuery struct {
	Token            string `query:"token" validate:"required"`
	Action           string `query:"action" validate:"required,action"`
	RepresentativeID string `query:"representativeId"`
}

func (q *AdminVerifyQuery) Validate() error {
	trim(&q.Token, &q.Action, &q.RepresentativeID)
	return validateStruct(q)
}

// UpdateProfileRequest is a partial update. Omitted and blank fields are left alone.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Timezone  *string `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

func (r *UpdateProfileRequest) Validate() error {
	trimOptional(r.FirstName, r.LastName, r.Phone, r.Timezone)
	if r.Timezone != nil && *r.Timezone == "" {
		r.Timezone = nil
	}
	return validateStruct(r)
}

func (r *UpdateProfileRequest) Patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Timezone:  r.Timezone,
	}.Normalize()
}

// ManualVerifyRequest is the session shortcut used by the legacy admin screen.
type ManualVerifyRequest struct {
	UserID           string `json:"userId" validate:"required"`
	Action           string `json:"action" validate:"required,action"`
	RepresentativeID string `json:"representativeId,omitempty"`
}

func (r *ManualVerifyRequest) Validate() error {
	trim(&r.UserID, &r.Action, &r.RepresentativeID)
	return validateStruct(r)
}
