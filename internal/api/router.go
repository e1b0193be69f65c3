package api

import (
	"net/http"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/api/handler"
	"github.com/BytePitApp/bytepit-api/internal/api/middleware"
	"github.com/BytePitApp/bytepit-api/internal/app/service"
	"github.com/BytePitApp/bytepit-api/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
)

// Services groups everything the HTTP layer calls into.
type Services struct {
	Auth        *service.AuthService
	Admin       *service.AdminService
	Problem     *service.ProblemService
	Submission  *service.SubmissionService
	Competition *service.CompetitionService
}

type Options struct {
	AllowedOrigins []string
	CookieSecure   bool
}

func NewRouter(
	services Services,
	jwt *security.JWTManager,
	log *httplog.Logger,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(httplog.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	// Submissions run every test case synchronously, so the budget is generous.
	r.Use(chiMiddleware.Timeout(120 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Bearer header first, then the access_token cookie set at login.
	r.Use(middleware.Verifier(jwt.Auth()))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(services.Auth, opts.CookieSecure).RegisterRoutes)
		v1.Route("/users", handler.NewUserHandler(services.Auth, services.Problem, services.Competition).RegisterRoutes)
		v1.Route("/admin", handler.NewAdminHandler(services.Admin).RegisterRoutes)
		v1.Route("/problems", handler.NewProblemHandler(services.Problem).RegisterRoutes)
		v1.Route("/submissions", handler.NewSubmissionHandler(services.Submission).RegisterRoutes)
		v1.Route("/competitions", handler.NewCompetitionHandler(services.Competition).RegisterRoutes)
	})

	return r
}
