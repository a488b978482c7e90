package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/studymatch/backend/internal"
	"github.com/studymatch/backend/internal/auth"
	"github.com/studymatch/backend/internal/matcher"
	"github.com/studymatch/backend/internal/permission"
	"github.com/studymatch/backend/internal/transport/middleware"
	"github.com/studymatch/backend/internal/transport/swagger"
	"github.com/studymatch/backend/internal/user"
)

// RegisterAllRoutes wires every route. The gate layering mirrors the
// authorization model: RequireAuth resolves the principal, RequireActive
// guards resources that consume a permission grant, RequireAdmin guards
// the admin surface.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	cfg *internal.Config,
	authHandler *auth.Handler,
	gate *auth.Gate,
	userHandler *user.Handler,
	permissionHandler *permission.Handler,
	matchHandler *matcher.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/register", userHandler.Register)
			sr.Post("/login", authHandler.Login)
			sr.Post("/logout", authHandler.Logout)
			sr.Post("/forgot-password", userHandler.ForgotPassword)
			sr.Post("/reset-password", userHandler.ResetPassword)
		})

		// Routes behind the base principal resolver.
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.RequireAuth)

			pr.Get("/users/me", userHandler.Me)
			pr.Patch("/users/me", userHandler.UpdateMe)
			pr.Post("/users/me/password", userHandler.ChangePassword)

			// Pending users must be able to apply, so these sit outside
			// the active gate.
			pr.Route("/permissions", func(mr chi.Router) {
				mr.Post("/request", permissionHandler.CreateRequest)
				mr.Post("/extend", permissionHandler.RequestExtension)
				mr.Get("/my-requests", permissionHandler.MyRequests)
			})

			// Grant-consuming resources.
			pr.Group(func(ar chi.Router) {
				ar.Use(gate.RequireActive)
				ar.Post("/match", matchHandler.Match)
			})

			// Admin surface.
			pr.Group(func(adm chi.Router) {
				adm.Use(gate.RequireAdmin)

				adm.Get("/admin/stats", userHandler.AdminStats)
				adm.Get("/admin/users", userHandler.AdminListUsers)
				adm.Delete("/admin/users/{id}", userHandler.AdminDeleteUser)
				adm.Patch("/admin/users/{id}/status", userHandler.AdminSetStatus)
				adm.Post("/admin/users/{id}/grant", permissionHandler.AdminGrant)

				adm.Get("/admin/requests", permissionHandler.AdminListRequests)
				adm.Post("/admin/requests/{id}/review", permissionHandler.AdminReviewRequest)
				adm.Delete("/admin/requests/{id}", permissionHandler.AdminDeleteRequest)
			})
		})
	})
}
