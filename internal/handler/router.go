package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/onlinecourse/catalog/internal/auth"
	"github.com/onlinecourse/catalog/internal/metrics"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Lectures       *LectureHandler
	Accounts       *AccountHandler
	Tokens         *auth.TokenManager
	Limiter        *RateLimiter
	LoginLimit     int
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

const loginWindow = time.Minute

// NewRouter builds the chi router with the global middleware stack and all routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler)
	r.Use(Authenticate(cfg.Tokens))
	r.Use(Instrument(cfg.Log, cfg.Metrics))

	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/lectures", func(r chi.Router) {
		r.Get("/", cfg.Lectures.List)
		r.Post("/", cfg.Lectures.Create)
		r.Get("/{id}", cfg.Lectures.Detail)
		r.Put("/{id}", cfg.Lectures.Update)
		r.Delete("/{id}", cfg.Lectures.Delete)
		r.Patch("/{id}", cfg.Lectures.Publish)
	})

	login := cfg.Limiter.Limit("login", cfg.LoginLimit, loginWindow)

	r.With(login).Post("/admins/login", cfg.Accounts.AdminLogin)
	r.With(login).Post("/students/login", cfg.Accounts.StudentLogin)
	r.Route("/members", func(r chi.Router) {
		r.Post("/signup", cfg.Accounts.SignUp)
		r.Delete("/{id}", cfg.Accounts.Withdraw)
	})

	return r
}
