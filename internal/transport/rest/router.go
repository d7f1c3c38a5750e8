package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/expensio/expense-service/internal/analytics"
	"github.com/expensio/expense-service/internal/auth"
	"github.com/expensio/expense-service/internal/category"
	"github.com/expensio/expense-service/internal/expense"
	"github.com/expensio/expense-service/internal/transport/middleware"
	"github.com/expensio/expense-service/internal/transport/swagger"
	"github.com/expensio/expense-service/internal/user"
)

// RegisterAllRoutes mounts the full API surface under /api/v1.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	categoryHandler *category.Handler,
	expenseHandler *expense.Handler,
	analyticsHandler *analytics.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve the OpenAPI document at root (outside the API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		// Category browsing is public; mutations are authenticated below.
		r.Get("/categories", categoryHandler.GetCategories)
		r.Get("/categories/{id}", categoryHandler.GetCategory)

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", userHandler.ListUsers)
				ur.Post("/", userHandler.CreateUser)
				ur.Get("/{id}", userHandler.GetUser)
				ur.Put("/{id}", userHandler.UpdateUser)
				ur.Delete("/{id}", userHandler.DeactivateUser)
				ur.Get("/{id}/summary", analyticsHandler.GetUserSummary)
			})

			pr.Route("/categories", func(cr chi.Router) {
				cr.Post("/", categoryHandler.CreateCategory)
				cr.Put("/{id}", categoryHandler.UpdateCategory)
				cr.Delete("/{id}", categoryHandler.DeleteCategory)
			})

			pr.Route("/expenses", func(er chi.Router) {
				er.Post("/", expenseHandler.CreateExpense)
				er.Get("/", expenseHandler.ListExpenses)
				er.Get("/{id}", expenseHandler.GetExpense)
				er.Put("/{id}", expenseHandler.UpdateExpense)
				er.Delete("/{id}", expenseHandler.DeleteExpense)
				er.Patch("/{id}/approve", expenseHandler.ApproveExpense)
				er.Patch("/{id}/reject", expenseHandler.RejectExpense)
			})

			pr.Route("/analytics", func(ar chi.Router) {
				ar.Get("/dashboard", analyticsHandler.GetDashboard)
				ar.Get("/reports", analyticsHandler.GetReport)
				ar.Get("/trends", analyticsHandler.GetTrends)
				ar.Get("/categories", analyticsHandler.GetCategoryStats)
			})
		})
	})
}
