package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/teamspace/internal"
	"github.com/frahmantamala/teamspace/internal/auth"
	"github.com/frahmantamala/teamspace/internal/conversation"
	"github.com/frahmantamala/teamspace/internal/directory"
	"github.com/frahmantamala/teamspace/internal/transport/middleware"
	"github.com/frahmantamala/teamspace/internal/transport/swagger"
	"github.com/frahmantamala/teamspace/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Routes struct {
	Health       *HealthHandler
	Auth         *auth.Handler
	RBAC         *auth.RBACAuthorization
	User         *user.Handler
	Members      *directory.MemberHandler
	Departments  *directory.Handler
	Groups       *directory.Handler
	Conversation *conversation.Handler

	AllowedOrigins []string
	OpenAPI        []byte
	// Metrics is nil when metrics are disabled.
	Metrics     *middleware.HTTPMetrics
	MetricsPath string
	Gatherer    prometheus.Gatherer
}

func RegisterAllRoutes(router *chi.Mux, routes Routes, logger *slog.Logger) {
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   routes.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.TraceHeader},
		ExposedHeaders:   []string{middleware.TraceHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if routes.Metrics != nil {
		router.Use(routes.Metrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware())

	if routes.OpenAPI != nil {
		router.Handle("/openapi.yml", swagger.DocumentHandler(routes.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}
	if routes.Gatherer != nil {
		router.Handle(routes.MetricsPath, promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", routes.Health.Ping)
		r.Get("/health", routes.Health.Health)

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/signup", routes.Auth.Signup)
			ar.Post("/login", routes.Auth.Login)
			ar.Post("/logout", routes.Auth.Logout)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(routes.Auth.SessionMiddleware)
			rbac := routes.RBAC

			pr.Get("/auth/me", routes.Auth.Me)

			pr.Route("/users/me", func(ur chi.Router) {
				ur.Get("/", routes.User.GetCurrentUser)
				ur.With(rbac.Middleware(auth.CapProfileUpdate)).Patch("/", routes.User.UpdateCurrentUser)
			})

			pr.Route("/members", func(mr chi.Router) {
				mr.With(rbac.Middleware(auth.CapUsersView)).Get("/", routes.Members.List)
				mr.With(rbac.Middleware(auth.CapUsersInvite)).Post("/", routes.Members.Invite)
				mr.With(rbac.Middleware(auth.CapUsersUpdateRole)).Patch("/{userID}", routes.Members.ChangeRole)
				mr.With(rbac.Middleware(auth.CapUsersDelete)).Delete("/{userID}", routes.Members.Remove)
			})

			pr.Route("/departments", containerRoutes(routes.Departments))
			pr.Route("/groups", containerRoutes(routes.Groups))

			pr.Route("/threads", func(tr chi.Router) {
				tr.Use(rbac.Middleware(auth.CapThreadsView))
				tr.Get("/", routes.Conversation.ListThreads)
				tr.With(rbac.Middleware(auth.CapThreadsCreate)).Post("/", routes.Conversation.CreateThread)
				tr.Get("/{id}", routes.Conversation.GetThread)
				tr.Get("/{id}/messages", routes.Conversation.ListMessages)
				tr.With(rbac.Middleware(auth.CapMessagesSend)).Post("/{id}/messages", routes.Conversation.PostMessage)
				tr.Put("/{id}/read", routes.Conversation.MarkRead)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		routes.Health.WriteAppError(w, internal.NewNotFoundError("route not found", "ROUTE_NOT_FOUND"))
	})
}

// containerRoutes mounts one container kind. Capability checks live in the
// directory service, which knows the kind.
func containerRoutes(h *directory.Handler) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Rename)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/members", h.ListMembers)
		r.Post("/{id}/members", h.AddMember)
		r.Delete("/{id}/members/{userID}", h.RemoveMember)
	}
}
