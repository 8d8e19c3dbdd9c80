package http_handlers

import (
	"net/http"

	"github.com/baechuer/member-portal/internal/application/admin"
	"github.com/baechuer/member-portal/internal/domain"
	"github.com/baechuer/member-portal/internal/transport/http/dto"
	"github.com/baechuer/member-portal/internal/transport/http/middleware"
	"github.com/baechuer/member-portal/internal/transport/http/response"
)

// AdminHandler serves /api/admin. Routes are mounted behind Auth and
// RequireAdmin; the service checks the actor again.
type AdminHandler struct {
	svc *admin.Service
}

func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func actorOf(r *http.Request) (admin.Actor, error) {
	p, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		return admin.Actor{}, domain.ErrTokenMissing()
	}
	return admin.Actor{UserID: p.User.ID, Email: p.User.Email, IsAdmin: p.User.IsAdmin}, nil
}

func (h *AdminHandler) Representatives(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	reps, err := h.svc.ListRepresentatives(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewRepresentativeViews(reps))
}

func (h *AdminHandler) SeedRepresentatives(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	reps, err := h.svc.SeedRepresentatives(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.Created(w, dto.NewRepresentativeViews(reps))
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	users, err := h.svc.ListUsers(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewUserViews(users))
}

func (h *AdminHandler) PendingUsers(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	o, err := h.svc.ListPending(r.Context(), actor)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.NewAdminPendingResponse(o))
}

func (h *AdminHandler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.VerifyUserRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.svc.VerifyUser(r.Context(), actor, req.UserID, req.Action, req.RepresentativeID)
	middleware.RecordVerification(middleware.SourceAdmin, err)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.VerificationResponse{
		Message: decisionMessage(p.User.VerificationStatus),
		User:    dto.NewUserView(p),
	})
}

func (h *AdminHandler) AssignRepresentative(w http.ResponseWriter, r *http.Request) {
	actor, err := actorOf(r)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	var req dto.AssignRepresentativeRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := h.svc.AssignRepresentative(r.Context(), actor, req.UserID, req.RepresentativeID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.VerificationResponse{
		Message: "Representative assigned successfully",
		User:    dto.NewUserView(p),
	})
}
