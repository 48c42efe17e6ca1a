package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"storefront-automation/internal/usecase"
)

type ctxKey int

const accountIDKey ctxKey = iota

// AccountID returns the session's account id from the request context.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

// Server exposes the dashboard API: quota, stores, checkout, automation
// control, and the run callback endpoints used by external executors.
type Server struct {
	quotaUC    *usecase.QuotaUseCase
	storeUC    *usecase.StoreUseCase
	autoUC     *usecase.AutomationUseCase
	checkoutUC *usecase.CheckoutUseCase
	catalogUC  *usecase.CatalogUseCase
	auth       *AuthManager
	serviceKey string // shared secret for session mint and executor callbacks
	log        *zerolog.Logger
}

func NewServer(
	quotaUC *usecase.QuotaUseCase,
	storeUC *usecase.StoreUseCase,
	autoUC *usecase.AutomationUseCase,
	checkoutUC *usecase.CheckoutUseCase,
	catalogUC *usecase.CatalogUseCase,
	auth *AuthManager,
	serviceKey string,
	logger *zerolog.Logger,
) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		quotaUC:    quotaUC,
		storeUC:    storeUC,
		autoUC:     autoUC,
		checkoutUC: checkoutUC,
		catalogUC:  catalogUC,
		auth:       auth,
		serviceKey: serviceKey,
		log:        &srvLog,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.healthHandler)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/session", s.sessionHandler)

		// Provider redirects land here without a session.
		r.Get("/checkout/callback", s.checkoutCallbackHandler)

		// Executor callbacks authenticate with the service key.
		r.Route("/automation/runs/{runID}", func(r chi.Router) {
			r.Use(s.serviceKeyMiddleware)
			r.Post("/complete", s.runCompleteHandler)
			r.Post("/fail", s.runFailHandler)
		})

		// Dashboard routes require a session.
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Get("/plans", s.plansHandler)
			r.Get("/quota", s.quotaHandler)

			r.Get("/stores", s.storesListHandler)
			r.Post("/stores", s.storeCreateHandler)
			r.Delete("/stores/{storeID}", s.storeDeleteHandler)
			r.Post("/stores/{storeID}/automation/reset", s.automationResetHandler)

			r.Post("/checkout", s.checkoutStartHandler)
		})
	})

	return r
}

// sessionMiddleware resolves the JWT session and scopes the request to its
// account.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid session")
			return
		}
		ctx := context.WithValue(r.Context(), accountIDKey, claims.AccountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// serviceKeyMiddleware guards service-to-service endpoints with a bearer key.
func (s *Server) serviceKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.serviceKey == "" {
			s.log.Error().Msg("service key is not configured")
			writeError(w, http.StatusForbidden, "forbidden", "service key not configured")
			return
		}
		if !bearerMatches(r.Header.Get("Authorization"), s.serviceKey) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid service key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
