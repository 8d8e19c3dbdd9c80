package verification

import (
	"context"
	"errors"
	"strings"

	"github.com/baechuer/member-portal/internal/domain"
)

// decision is a single pending -> approved/rejected transition request.
// Every entry point (emailed link, admin panel, session shortcut) is expressed
// as one of these and run through resolve.
type decision struct {
	lookup func(ctx context.Context) (domain.User, error)

	action           domain.Action
	actor            string
	representativeID string
	// requireRepresentative rejects an approval that names no representative.
	requireRepresentative bool
}

// AdminDecision is an admin-panel or session-initiated decision addressed by user id.
type AdminDecision struct {
	UserID                string
	Action                string
	RepresentativeID      string
	Actor                 string
	RequireRepresentative bool
}

// ResolveByToken applies a decision carried by the emailed admin link.
// The configured admin email is recorded as the actor.
func (w *Workflow) ResolveByToken(ctx context.Context, token, action, representativeID string) (domain.Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Profile{}, domain.ErrMissingField("token")
	}
	if action == "" {
		return domain.Profile{}, domain.ErrMissingField("action")
	}
	act, err := domain.ParseAction(action)
	if err != nil {
		return domain.Profile{}, err
	}

	return w.resolve(ctx, decision{
		lookup: func(ctx context.Context) (domain.User, error) {
			return w.users.GetByVerificationToken(ctx, token)
		},
		action:           act,
		actor:            w.cfg.AdminEmail,
		representativeID: strings.TrimSpace(representativeID),
	})
}

// ResolveByAdminDecision applies a decision addressed by user id.
func (w *Workflow) ResolveByAdminDecision(ctx context.Context, d AdminDecision) (domain.Profile, error) {
	userID := strings.TrimSpace(d.UserID)
	if userID == "" {
		return domain.Profile{}, domain.ErrMissingField("userId")
	}
	if d.Action == "" {
		return domain.Profile{}, domain.ErrMissingField("action")
	}
	act, err := domain.ParseAction(d.Action)
	if err != nil {
		return domain.Profile{}, err
	}

	actor := strings.TrimSpace(d.Actor)
	if actor == "" {
		actor = "admin"
	}

	return w.resolve(ctx, decision{
		lookup: func(ctx context.Context) (domain.User, error) {
			return w.users.GetByID(ctx, userID)
		},
		action:                act,
		actor:                 actor,
		representativeID:      strings.TrimSpace(d.RepresentativeID),
		requireRepresentative: d.RequireRepresentative,
	})
}

func (w *Workflow) resolve(ctx context.Context, d decision) (domain.Profile, error) {
	const action = "verification.resolve"

	fields := map[string]string{
		"decision": string(d.action),
		"actor":    d.actor,
	}
	fail := func(err error) (domain.Profile, error) {
		fields["result"] = "error"
		fields["error_code"] = errorCode(err)
		w.audit(ctx, action, fields)
		return domain.Profile{}, err
	}

	approving := d.action == domain.ActionApprove
	if approving && d.requireRepresentative && d.representativeID == "" {
		return fail(domain.ErrRepresentativeRequired())
	}

	u, err := d.lookup(ctx)
	if err != nil {
		return fail(err)
	}
	fields["user_id"] = u.ID

	if u.VerificationStatus != domain.StatusPending {
		return fail(domain.ErrAlreadyResolved(u.VerificationStatus))
	}

	var rep *domain.Representative
	if approving && d.representativeID != "" {
		r, err := w.reps.GetByID(ctx, d.representativeID)
		if err != nil {
			if domain.Is(err, "representative_not_found") {
				return fail(domain.ErrInvalidRepresentative(d.representativeID))
			}
			return fail(err)
		}
		rep = &r
		fields["representative_id"] = r.ID
	}

	resolved, err := w.users.Resolve(ctx, u.ID, domain.Resolution{
		Status:         d.action.Status(),
		EmailVerified:  approving,
		VerifiedBy:     d.actor,
		VerifiedAt:     w.now().UTC(),
		Representative: domain.RefTo(rep),
	})
	if err != nil {
		return fail(err)
	}

	fields["result"] = "success"
	fields["status"] = string(resolved.VerificationStatus)
	w.audit(ctx, action, fields)

	notice := domain.DecisionNotice{
		Email:          resolved.Email,
		FirstName:      resolved.FirstName,
		Status:         resolved.VerificationStatus,
		Representative: domain.ContactOf(rep),
	}
	if approving {
		notice.LoginURL = w.cfg.FrontendURL + "/login"
	}
	if err := w.notify.SendDecision(ctx, notice); err != nil {
		w.log.Error().Err(err).Str("user_id", resolved.ID).Str("status", string(resolved.VerificationStatus)).
			Msg("decision notice not delivered")
	}

	if rep == nil && resolved.Representative.IsSet() {
		return w.loadProfile(ctx, resolved)
	}
	return domain.NewProfile(resolved, rep), nil
}

func errorCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}
