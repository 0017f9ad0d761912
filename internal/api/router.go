package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nextudy/nextudy-api/internal/api/middleware"
	"github.com/nextudy/nextudy-api/internal/api/shared"
)

// RouterDeps are the collaborators mounted by NewRouter.
type RouterDeps struct {
	Logger         *slog.Logger
	Auth           *middleware.AuthMiddleware
	Accounts       AccountService
	Chat           ChatService
	Conversations  ConversationService
	Study          StudyService
	Documents      DocumentService
	Todos          TodoService
	Billing        BillingService
	Admin          AdminService
	RequestTimeout time.Duration

	// Optional.
	Metrics     Instrumentation
	HealthCheck func(ctx context.Context) error
}

// Instrumentation exposes HTTP metrics.
type Instrumentation interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
}

// NewRouter builds the HTTP handler for the whole API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewTraceMiddleware(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authHandler := NewAuthHandler(deps.Accounts, deps.Logger)
	chatHandler := NewChatHandler(deps.Chat, deps.Conversations, deps.Logger)
	studyHandler := NewStudyHandler(deps.Study, deps.Logger)
	documentHandler := NewDocumentHandler(deps.Documents, deps.Logger)
	todoHandler := NewTodoHandler(deps.Todos, deps.Logger)
	billingHandler := NewBillingHandler(deps.Billing, deps.Logger)
	adminHandler := NewAdminHandler(deps.Admin, deps.Logger)

	r.Get("/health", healthHandler(deps.HealthCheck, deps.Logger))

	r.Route("/api", func(r chi.Router) {
		// Generation runs in the background, so a request deadline only
		// bounds the synchronous study endpoints and uploads.
		if deps.RequestTimeout > 0 {
			r.Use(chimw.Timeout(deps.RequestTimeout))
		}

		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/activate", authHandler.Activate)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)
		r.Post("/auth/login-code/request", authHandler.RequestLoginCode)
		r.Post("/auth/login-code/verify", authHandler.VerifyLoginCode)
		r.Post("/billing/webhook", billingHandler.Webhook)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)

			r.Get("/me", authHandler.Me)
			r.Patch("/me", authHandler.UpdateMe)

			r.Post("/chat", chatHandler.StartGeneration)
			r.Get("/generation-tasks/{messageID}", chatHandler.GetTask)

			r.Get("/conversations", chatHandler.ListConversations)
			r.Post("/conversations", chatHandler.CreateConversation)
			r.Get("/conversations/{id}", chatHandler.GetConversation)
			r.Patch("/conversations/{id}", chatHandler.RenameConversation)
			r.Delete("/conversations/{id}", chatHandler.DeleteConversation)

			r.Post("/summaries", studyHandler.CreateSummary)
			r.Get("/summaries", studyHandler.ListSummaries)
			r.Get("/summaries/{id}", studyHandler.GetSummary)
			r.Delete("/summaries/{id}", studyHandler.DeleteSummary)

			r.Post("/flashcards", studyHandler.CreateFlashcards)
			r.Get("/flashcards", studyHandler.ListFlashcards)
			r.Get("/flashcards/{id}", studyHandler.GetFlashcards)
			r.Delete("/flashcards/{id}", studyHandler.DeleteFlashcards)

			r.Post("/qcm", studyHandler.CreateQuiz)
			r.Get("/qcm", studyHandler.ListQuizzes)
			r.Get("/qcm/{id}", studyHandler.GetQuiz)
			r.Delete("/qcm/{id}", studyHandler.DeleteQuiz)

			r.Post("/documents", documentHandler.Upload)
			r.Get("/documents", documentHandler.List)
			r.Get("/documents/{id}", documentHandler.Get)
			r.Delete("/documents/{id}", documentHandler.Delete)

			r.Get("/todos", todoHandler.List)
			r.Post("/todos", todoHandler.Create)
			r.Patch("/todos/{id}", todoHandler.Update)
			r.Delete("/todos/{id}", todoHandler.Delete)

			r.Post("/billing/checkout", billingHandler.Checkout)
			r.Post("/billing/portal", billingHandler.Portal)
			r.Get("/billing/subscription", billingHandler.Subscription)

			r.Route("/admin", func(r chi.Router) {
				r.Use(deps.Auth.RequireAdmin)
				r.Get("/users/pending", adminHandler.ListPending)
				r.Post("/users/{id}/approve", adminHandler.Approve)
				r.Post("/users/{id}/reject", adminHandler.Reject)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	return r
}

func healthHandler(check func(ctx context.Context) error, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service indisponible", err)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error("failed to write health check response", "error", err)
		}
	}
}
