package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/baechuer/member-portal/internal/transport/http/middleware"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type UserHandler interface {
	// Public
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Contact(w http.ResponseWriter, r *http.Request)
	ForgotPassword(w http.ResponseWriter, r *http.Request)
	ResetPassword(w http.ResponseWriter, r *http.Request)
	AdminVerify(w http.ResponseWriter, r *http.Request)

	// Session
	CheckAuth(w http.ResponseWriter, r *http.Request)
	GetProfile(w http.ResponseWriter, r *http.Request)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	PendingUsers(w http.ResponseWriter, r *http.Request)
	ManualVerify(w http.ResponseWriter, r *http.Request)
}

type AdminHandler interface {
	Representatives(w http.ResponseWriter, r *http.Request)
	SeedRepresentatives(w http.ResponseWriter, r *http.Request)
	Users(w http.ResponseWriter, r *http.Request)
	PendingUsers(w http.ResponseWriter, r *http.Request)
	VerifyUser(w http.ResponseWriter, r *http.Request)
	AssignRepresentative(w http.ResponseWriter, r *http.Request)
}

type Middleware = func(http.Handler) http.Handler

type Deps struct {
	Health HealthHandler
	Users  UserHandler
	Admin  AdminHandler

	RequestIDMW    Middleware
	AuthMW         Middleware
	OptionalAuthMW Middleware
	AdminMW        Middleware

	CORSOrigins []string

	// Metrics serves /metrics; nil leaves it unmounted.
	Metrics http.Handler

	// Rate limits; nil means unlimited.
	RLRegister       Middleware
	RLLogin          Middleware
	RLContact        Middleware
	RLForgotPassword Middleware
	RLResetPassword  Middleware
	RLAdminVerify    Middleware
	RLAdminActions   Middleware
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.Admin == nil {
		return nil, fmt.Errorf("nil Admin handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.OptionalAuthMW == nil {
		return nil, fmt.Errorf("nil OptionalAuth middleware")
	}
	if deps.AdminMW == nil {
		return nil, fmt.Errorf("nil Admin middleware")
	}

	r := chi.NewRouter()
	if deps.RequestIDMW != nil {
		r.Use(deps.RequestIDMW)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(deps.CORSOrigins))

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/users", func(r chi.Router) {
		// --- Public ---
		r.With(use(deps.RLRegister)...).Post("/register", deps.Users.Register)
		r.With(use(deps.RLLogin)...).Post("/login", deps.Users.Login)
		r.With(deps.OptionalAuthMW).Post("/logout", deps.Users.Logout)
		r.With(use(deps.OptionalAuthMW, deps.RLContact)...).Post("/contact", deps.Users.Contact)
		r.With(use(deps.RLForgotPassword)...).Post("/forgot-password", deps.Users.ForgotPassword)
		r.With(use(deps.RLResetPassword)...).Post("/reset-password", deps.Users.ResetPassword)

		// --- Emailed review links ---
		r.With(use(deps.RLAdminVerify)...).Get("/admin-verify", deps.Users.AdminVerify)

		// --- Session ---
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)
			r.Get("/check-auth", deps.Users.CheckAuth)
			r.Get("/profile", deps.Users.GetProfile)
			r.Put("/profile", deps.Users.UpdateProfile)
			r.Get("/pending-users", deps.Users.PendingUsers)
			r.Post("/manual-verify", deps.Users.ManualVerify)
		})
	})

	// --- Admin (privileged) ---
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(deps.AuthMW)
		r.Use(deps.AdminMW)
		r.Use(use(deps.RLAdminActions)...)

		r.Get("/representatives", deps.Admin.Representatives)
		r.Post("/seed-representatives", deps.Admin.SeedRepresentatives)
		r.Get("/users", deps.Admin.Users)
		r.Get("/pending-users", deps.Admin.PendingUsers)
		r.Post("/verify-user", deps.Admin.VerifyUser)
		r.Post("/assign-representative", deps.Admin.AssignRepresentative)
	})

	return r, nil
}

// use drops nil middlewares so optional ones can be passed unconditionally.
func use(mws ...Middleware) []Middleware {
	out := make([]Middleware, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}
