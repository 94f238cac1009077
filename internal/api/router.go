package api

import (
	"net/http"
	"time"

	"gauntlet/internal/api/handler"
	"gauntlet/internal/app/service"
	"gauntlet/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	progressionService *service.ProgressionService,
	questionService *service.QuestionService,
	submissionService *service.SubmissionService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(120 * time.Second))

	// Puts verified claims in the request context; enforcement happens in
	// the per-route Authenticator.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		examHandler := handler.NewExamHandler(progressionService, questionService, submissionService)
		v1.Route("/levels", examHandler.RegisterRoutes)

		judgeHandler := handler.NewJudgeHandler(submissionService)
		v1.Route("/questions", judgeHandler.RegisterRoutes)
	})

	return r
}
