package account

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/skybi/gatekeeper/internal/api/gate"
	"github.com/skybi/gatekeeper/internal/api/schema"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/config"
	"github.com/skybi/gatekeeper/internal/verification"
)

// The scopes required by the privileged endpoints
const (
	ScopeMintToken = "token.mint"
	ScopeReadAudit = "audit.read"
)

const shutdownTimeout = 5 * time.Second

// Service represents the account API service
type Service struct {
	server *http.Server

	Config   *config.Config
	Verifier *verification.Verifier

	// Audit is optional; the audit endpoint is only served if it is set
	Audit audit.Repository

	writer *schema.Writer
	gate   *gate.Gate
}

// Startup starts up the account API.
// The server is set up before Startup returns; only serving happens in the background. Unexpected serving errors
// are sent to errs.
func (service *Service) Startup(errs chan<- error) {
	server := &http.Server{
		Addr:              service.Config.ListenAddress,
		Handler:           service.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.server = server

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
}

// Shutdown shuts down the account API, waiting up to a few seconds for in-flight requests
func (service *Service) Shutdown() {
	if service.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := service.server.Shutdown(ctx); err != nil {
			service.server.Close()
		}
		service.server = nil
	}
}

// Handler builds the HTTP handler serving the account API
func (service *Service) Handler() http.Handler {
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the account API experienced an unexpected error")
		},
	}
	service.gate = &gate.Gate{
		Verifier: service.Verifier,
		Writer:   service.writer,
		Audit:    service.Audit,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(gate.MiddlewareLogger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: service.Config.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	service.registerEndpoints(router)
	return router
}

func (service *Service) registerEndpoints(router chi.Router) {
	// Register the caller information endpoints
	router.Get("/v1/me", withMiddlewares(
		service.EndpointGetMe,
		service.gate.MiddlewareVerifySession(),
	))
	router.Get("/v1/me/scopes", withMiddlewares(
		service.EndpointGetScopes,
		service.gate.MiddlewareVerifySession(),
	))
	router.Get("/v1/me/token", withMiddlewares(
		service.EndpointGetToken,
		service.gate.MiddlewareVerifySession(ScopeMintToken),
	))

	// Register the audit endpoint
	if service.Audit != nil {
		router.Get("/v1/audit", withMiddlewares(
			service.EndpointGetAudit,
			service.gate.MiddlewareVerifySession(ScopeReadAudit),
		))
	}
}

// withMiddlewares wraps final so that the first middleware runs first
func withMiddlewares(final http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	handler := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// writeUpstreamError reports a failed Authlander request after a successful session check
func (service *Service) writeUpstreamError(writer http.ResponseWriter, request *http.Request, err error) {
	log.Ctx(request.Context()).Error().Err(err).Msg("the Authlander server could not serve a request")
	service.writer.WriteErrors(writer, http.StatusBadGateway, schema.ErrUpstreamUnavailable)
}
