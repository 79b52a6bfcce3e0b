// Package server wires the OAuth login, webhook, and GraphQL handlers onto
// a chi router and runs them until shutdown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/robby/leander/internal/apperror"
	"github.com/robby/leander/internal/auth"
	"github.com/robby/leander/internal/gateway"
	"github.com/robby/leander/internal/registry"
	"github.com/robby/leander/internal/server/middleware"
	"github.com/robby/leander/internal/store"
	"github.com/robby/leander/internal/webhook"
)

// Config holds server configuration.
type Config struct {
	Port            int
	BasePath        string
	CORSOrigin      string
	ShutdownTimeout time.Duration
	WebhookSecret   []byte
	// Debug mounts /debug/stores for authenticated callers.
	Debug bool
}

// OAuth is the authorization code flow used by /login.
type OAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
}

// Deps are the components the routes are built from.
type Deps struct {
	OAuth    OAuth
	Sessions *auth.Sessions
	Registry *registry.Registry
	// NewStore builds the store for an access token seen for the first time.
	NewStore func(token string) *store.UserStore
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.OAuth == nil || deps.Sessions == nil || deps.Registry == nil || deps.NewStore == nil {
		return nil, errors.New("server: missing dependencies")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts, under BasePath:
//
//	GET      /login            OAuth redirect
//	GET      /login/callback   OAuth code exchange, sets the session cookie
//	GET|POST /logout           clears the session and drops the cached store
//	POST     /webhook          GitHub webhook deliveries
//	GET|POST /graphql          gateway
//	GET      /healthz
//	GET      /debug/stores     registry size and per-store counts (Debug only, authenticated)
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.CORS(s.config.CORSOrigin))

	schema, err := gateway.NewSchema()
	if err != nil {
		return fmt.Errorf("building schema: %w", err)
	}
	graphqlHandler := gateway.NewHandler(schema, s.logger)

	dispatcher := webhook.NewDispatcher(s.deps.Registry, s.logger)
	webhookHandler := webhook.NewHandler(s.config.WebhookSecret, dispatcher, s.logger)

	routes := func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/login/callback", s.handleCallback)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
		r.Method(http.MethodPost, "/webhook", webhookHandler)
		r.Get("/healthz", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.deps.Sessions.Middleware)
			r.Use(s.withStore)
			r.Method(http.MethodGet, "/graphql", graphqlHandler)
			r.Method(http.MethodPost, "/graphql", graphqlHandler)
			if s.config.Debug {
				r.Get("/debug/stores", s.handleDebugStores)
			}
		})
	}

	if s.config.BasePath == "" {
		routes(s.router)
	} else {
		s.router.Route(s.config.BasePath, routes)
	}
	return nil
}

// withStore puts the caller's store, created on first use, into the request
// context. Session tokens get a store directly; a bearer token gets one only
// once GitHub accepts it for the viewer query. Otherwise the request goes on
// anonymous.
func (s *Server) withStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token, ok := auth.AccessTokenFrom(ctx)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		st, ok := s.deps.Registry.Get(token)
		if !ok {
			if auth.FromBearer(ctx) {
				st, ok = s.verifyBearer(ctx, token)
				if !ok {
					next.ServeHTTP(w, r)
					return
				}
			} else {
				st = s.deps.Registry.GetOrCreate(token, func() *store.UserStore {
					return s.deps.NewStore(token)
				})
			}
		}
		next.ServeHTTP(w, r.WithContext(gateway.WithStore(ctx, st)))
	})
}

func (s *Server) verifyBearer(ctx context.Context, token string) (*store.UserStore, bool) {
	st := s.deps.NewStore(token)
	if _, err := st.GetViewer(ctx); err != nil {
		s.logger.Warn("bearer token rejected", slog.String("error", err.Error()))
		return nil, false
	}
	return s.deps.Registry.GetOrCreate(token, func() *store.UserStore { return st }), true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState(r.URL.Query().Get("returnTo"))
	s.deps.Sessions.SetStateCookie(w, state.Nonce)
	http.Redirect(w, r, s.deps.OAuth.AuthURL(state.Encode()), http.StatusTemporaryRedirect)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nonce := s.deps.Sessions.TakeStateCookie(w, r)

	state, err := auth.DecodeState(q.Get("state"), nonce)
	if err != nil {
		s.logger.Warn("login callback: invalid state")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	if e := q.Get("error"); e != "" {
		s.logger.Info("login callback: authorization denied", slog.String("error", e))
		writeError(w, apperror.Unauthorized())
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	token, err := s.deps.OAuth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("login callback: exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Upstream("exchange OAuth code", err))
		return
	}

	if err := s.deps.Sessions.SetCookie(w, token); err != nil {
		s.logger.Error("login callback: session failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	s.logger.Info("user logged in")
	if state.ReturnTo != "" {
		http.Redirect(w, r, state.ReturnTo, http.StatusSeeOther)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Ok"))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, err := s.deps.Sessions.AccessToken(r); err == nil {
		s.deps.Registry.Remove(token)
	}
	s.deps.Sessions.ClearCookie(w)

	if returnTo := auth.SafeReturnTo(r.URL.Query().Get("returnTo")); returnTo != "" {
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type storesResponse struct {
	Size   int           `json:"size"`
	Stores []store.Stats `json:"stores"`
}

func (s *Server) handleDebugStores(w http.ResponseWriter, r *http.Request) {
	if _, ok := gateway.StoreFrom(r.Context()); !ok {
		writeError(w, apperror.Unauthorized())
		return
	}
	stores := s.deps.Registry.Stores()
	resp := storesResponse{Size: len(stores), Stores: make([]store.Stats, 0, len(stores))}
	for _, st := range stores {
		resp.Stores = append(resp.Stores, st.Snapshot())
	}
	writeJSON(w, http.StatusOK, resp)
}

// Start serves until ctx is cancelled, then drains in-flight requests for
// up to ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d%s", s.config.Port, s.config.BasePath)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := apperror.HTTPStatus(err)
	kind := "internal"
	switch status {
	case http.StatusBadRequest:
		kind = "validation"
	case http.StatusUnauthorized:
		kind = "unauthorized"
	case http.StatusNotFound:
		kind = "not_found"
	case http.StatusBadGateway:
		kind = "upstream"
	}
	message := "internal error"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	writeJSON(w, status, errorResponse{Error: kind, Message: message})
}
