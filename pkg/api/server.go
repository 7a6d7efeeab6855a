package api

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/messaging"
	"github.com/platinummonkey/tenancy/pkg/middleware"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/relations"
	"github.com/platinummonkey/tenancy/pkg/storage/objects"
	"github.com/platinummonkey/tenancy/pkg/users"
)

const (
	// Prefix is the path every API route lives under
	Prefix = "/api/v1"

	DefaultMaxBodyBytes = 1 << 20
	// DefaultMaxUploadBytes leaves room for the multipart framing around
	// the largest accepted image
	DefaultMaxUploadBytes = objects.MaxImageSize + 64<<10

	avatarRoute = "users.avatar"
)

// Services is the set of domain services the API exposes
type Services struct {
	Users            *users.Service
	Admins           *admins.Service
	Organizations    *orgs.OrganizationService
	Branches         *orgs.BranchService
	Relations        *relations.Service
	TelegramGroups   *messaging.TelegramGroupService
	FCMSubscriptions *messaging.FCMSubscriptionService
	Subscriptions    *messaging.SubscriptionService
}

// Options configures the HTTP surface
type Options struct {
	Tokens *auth.TokenManager
	// Limiter guards signin, signup and password reset; nil disables it
	Limiter        middleware.Limiter
	Metrics        *observability.Metrics
	Health         *observability.HealthChecker
	Logger         *observability.Logger
	CORSOrigins    []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// Server is the tenancy HTTP API
type Server struct {
	router  *mux.Router
	handler http.Handler
	opts    Options
}

// NewServer builds the router and the middleware stack around it
func NewServer(services Services, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		router: mux.NewRouter(),
		opts:   opts,
	}

	g := guard{
		users:   middleware.NewAuthenticator(opts.Tokens, auth.AudienceUser),
		admins:  middleware.NewAuthenticator(opts.Tokens, auth.AudienceAdmin),
		limiter: opts.Limiter,
	}
	if opts.Metrics != nil {
		g.recorder = opts.Metrics
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	s.router.Use(s.bodyLimit)

	s.setupRoutes(services, g)

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware(opts.Logger),
		httputil.RecoveryMiddleware,
		httputil.LoggingMiddleware,
		cors.Handler(corsOptions(opts.CORSOrigins)),
	)(otelhttp.NewHandler(s.router, "tenancy-api",
		otelhttp.WithSpanNameFormatter(spanName),
	))
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes(services Services, g guard) {
	if s.opts.Health != nil {
		s.router.HandleFunc("/health/live", s.opts.Health.Liveness).Methods(http.MethodGet)
		s.router.HandleFunc("/health/ready", s.opts.Health.Readiness).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix(Prefix).Subrouter()
	registrars := []RouteRegistrar{
		NewUserHandlers(services.Users, g),
		NewAdminHandlers(services.Admins, g),
		NewOrganizationHandlers(services.Organizations, services.Branches, g),
		NewRelationHandlers(services.Relations, g),
		NewMessagingHandlers(services.TelegramGroups, services.FCMSubscriptions, services.Subscriptions, g),
	}
	for _, registrar := range registrars {
		registrar.RegisterRoutes(api)
	}

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the bare router, mostly for route listing
func (s *Server) Router() *mux.Router {
	return s.router
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// bodyLimit caps request bodies. The avatar upload gets the larger limit.
func (s *Server) bodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := s.opts.MaxBodyBytes
		if route := mux.CurrentRoute(r); route != nil && route.GetName() == avatarRoute {
			limit = s.opts.MaxUploadBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			middleware.OrganizationHeader,
			middleware.BranchHeader,
			httputil.RequestIDHeader,
		},
		ExposedHeaders: []string{httputil.RequestIDHeader},
		MaxAge:         300,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else if origins[0] != "*" {
		opts.AllowCredentials = true
	}
	return opts
}

func spanName(_ string, r *http.Request) string {
	return r.Method + " " + r.URL.Path
}
