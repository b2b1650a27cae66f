// Package server собирает HTTP-поверхность бэкенда: chi-роутер,
// сессионный middleware и метрики запросов.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/infra"
	"github.com/LaithAlz/me-agent/internal/infra/auth"
	"github.com/LaithAlz/me-agent/internal/server/handler"
)

type Server struct {
	router  *chi.Mux
	logger  *zap.Logger
	metrics *infra.Metrics

	sessions *auth.SessionManager

	authHandler      *handler.AuthHandler
	policyHandler    *handler.PolicyHandler
	authorityHandler *handler.AuthorityHandler
	auditHandler     *handler.AuditHandler
	agentHandler     *handler.AgentHandler
	shopifyHandler   *handler.ShopifyHandler
}

func New(
	logger *zap.Logger,
	metrics *infra.Metrics,
	sessions *auth.SessionManager,
	authH *handler.AuthHandler,
	policyH *handler.PolicyHandler,
	authorityH *handler.AuthorityHandler,
	auditH *handler.AuditHandler,
	agentH *handler.AgentHandler,
	shopifyH *handler.ShopifyHandler,
) *Server {
	s := &Server{
		router:           chi.NewRouter(),
		logger:           logger.Named("http"),
		metrics:          metrics,
		sessions:         sessions,
		authHandler:      authH,
		policyHandler:    policyH,
		authorityHandler: authorityH,
		auditHandler:     auditH,
		agentHandler:     agentH,
		shopifyHandler:   shopifyH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	// Healthcheck и метрики — вне /api и без сессии
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	// --- Основная поверхность под /api: личность из куки (с demo-fallback'ом) ---
	r.Route("/api", func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.authHandler.Login)
			r.Post("/logout", s.authHandler.Logout)
			r.Get("/session", s.authHandler.Session)
		})

		r.Route("/policy", func(r chi.Router) {
			r.Get("/", s.policyHandler.Get)
			r.Post("/", s.policyHandler.Update)
			r.Delete("/", s.policyHandler.Reset)
		})

		r.Route("/authority", func(r chi.Router) {
			r.Post("/check", s.authorityHandler.Check)
			r.Get("/status", s.authorityHandler.Status)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", s.auditHandler.List)
			r.Post("/", s.auditHandler.Create)
			r.Get("/summary", s.auditHandler.Summary)
		})

		r.Route("/agent", func(r chi.Router) {
			r.Get("/health", s.agentHandler.Health)
			r.Post("/recommend", s.agentHandler.Recommend)
			r.Post("/feedback", s.agentHandler.Feedback)
			r.Post("/bundle", s.agentHandler.Bundle)
			r.Post("/explain", s.agentHandler.Explain)
		})

		r.Route("/shopify", func(r chi.Router) {
			r.Get("/products/search", s.shopifyHandler.Search)
			r.Get("/personas/{id}/history", s.shopifyHandler.History)
			r.Post("/cart/create", s.shopifyHandler.CartCreate)
			r.Post("/cart/lines/add", s.shopifyHandler.CartLinesAdd)
		})
	})
}

// metricsMiddleware меряет длительность запроса по паттерну роута.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.RequestDuration.
			WithLabelValues(route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
