package http_handlers

import (
	"net/http"

	"github.com/baechuer/member-portal/internal/application/auth"
	"github.com/baechuer/member-portal/internal/application/verification"
	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/logger"
	"github.com/baechuer/member-portal/internal/transport/http/dto"
	"github.com/baechuer/member-portal/internal/transport/http/middleware"
	"github.com/baechuer/member-portal/internal/transport/http/response"
)

const forgotPasswordMessage = "If an account with that email exists, a password reset link has been sent."

// UserHandler serves /api/users.
type UserHandler struct {
	auth     *auth.Service
	workflow *verification.Workflow
}

func NewUserHandler(authSvc *auth.Service, wf *verification.Workflow) *UserHandler {
	return &UserHandler{auth: authSvc, workflow: wf}
}

// decode reads and validates a request body in one step.
func decode[T interface{ Validate() error }](w http.ResponseWriter, r *http.Request, req T) bool {
	if err := response.DecodeJSON(w, r, req); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return false
	}
	return true
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.workflow.SubmitRegistration(r.Context(), verification.Registration{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Company:   req.Company,
		Timezone:  req.Timezone,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", p.User.ID).
		Msg("user_registered")

	response.Created(w, dto.VerificationResponse{
		Message: "Registration submitted. Your account is pending admin approval.",
		User:    dto.NewUserView(p),
	})
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	middleware.RecordLogin(err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.NewLoginResponse(res))
}

// Logout is an acknowledgement; the client discards its token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, _ := middleware.UserIDFromContext(r.Context())
	h.auth.Logout(r.Context(), uid)
	response.Ack(w, "Logged out successfully")
}

func (h *UserHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req dto.ContactRequest
	if !decode(w, r, &req) {
		return
	}

	var sender *domain.User
	if p, ok := middleware.ProfileFromContext(r.Context()); ok {
		sender = &p.User
	}

	err := h.auth.SubmitContact(r.Context(), auth.ContactInput{
		Email:   req.Email,
		Message: req.Message,
		Name:    req.Name,
	}, sender)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Ack(w, "Your message has been sent. We will get back to you soon.")
}

func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Ack(w, forgotPasswordMessage)
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Ack(w, "Password has been reset successfully. You can now log in.")
}

// AdminVerify handles the approve/reject links from the review email.
// GET /admin-verify?token=...&action=approve|reject[&representativeId=...]
func (h *UserHandler) AdminVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dto.AdminVerifyQuery{
		Token:            q.Get("token"),
		Action:           q.Get("action"),
		RepresentativeID: q.Get("representativeId"),
	}
	if err := req.Validate(); err != nil {
		response.WriteError(w, r, err)
		return
	}

	p, err := h.workflow.ResolveByToken(r.Context(), req.Token, req.Action, req.RepresentativeID)
	middleware.RecordVerification(middleware.SourceEmailLink, err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.VerificationResponse{
		Message: decisionMessage(p.User.VerificationStatus),
		User:    dto.NewUserView(p),
	})
}

func (h *UserHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}
	response.OK(w, dto.NewUserView(p))
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	p, err := h.auth.GetProfile(r.Context(), uid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(p))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.auth.UpdateProfile(r.Context(), uid, req.Patch())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserView(p))
}

func (h *UserHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	ps, err := h.workflow.ListPending(r.Context())
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.PendingUsersResponse{Count: len(ps), Users: dto.NewUserViews(ps)})
}

// ManualVerify resolves a pending user for any signed-in caller. The
// configured admin identity is recorded as the actor.
func (h *UserHandler) ManualVerify(w http.ResponseWriter, r *http.Request) {
	var req dto.ManualVerifyRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.workflow.ResolveByAdminDecision(r.Context(), verification.AdminDecision{
		UserID:           req.UserID,
		Action:           req.Action,
		RepresentativeID: req.RepresentativeID,
		Actor:            h.workflow.AdminEmail(),
	})
	middleware.RecordVerification(middleware.SourceManual, err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.VerificationResponse{
		Message: decisionMessage(p.User.VerificationStatus),
		User:    dto.NewUserView(p),
	})
}

func decisionMessage(s domain.VerificationStatus) string {
	if s == domain.StatusApproved {
		return "User approved successfully"
	}
	return "User rejected successfully"
}
