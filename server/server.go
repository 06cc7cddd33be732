// Package server hosts the login flow over HTTP: one server-held flow per
// login attempt, one key space per browser in the configured storage.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-login/identity"
	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/jrsteele09/go-auth-login/server/authflowrepo"
	"github.com/rs/zerolog/log"
)

// Deps holds the collaborators of a Server.
type Deps struct {
	Storage  kvstore.Storage
	Provider identity.Provider
	Flows    authflowrepo.Repo
	// RedirectPolicy, if set, vets every decoded redirect_uri.
	RedirectPolicy func(redirectURI string) error
}

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	config         config.Config
	storage        kvstore.Storage
	provider       identity.Provider
	flows          authflowrepo.Repo
	redirectPolicy func(string) error
	limiter        *clientLimiter
	trustedProxies []netip.Prefix
	nowTime        func() time.Time
}

type Option func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func New(cfg config.Config, deps Deps, options ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if deps.Storage == nil {
		return nil, errors.New("[Server New] storage is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("[Server New] identity provider is required")
	}
	if deps.Flows == nil {
		deps.Flows = authflowrepo.NewInMemoryRepo()
	}

	s := &Server{
		env:            cfg.GetEnv(),
		mux:            http.NewServeMux(),
		config:         cfg,
		storage:        deps.Storage,
		provider:       deps.Provider,
		flows:          deps.Flows,
		redirectPolicy: deps.RedirectPolicy,
		nowTime:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	trusted, err := parseTrustedProxies(cfg.GetTrustedProxies())
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.trustedProxies = trusted
	if cfg.GetEnableRateLimiting() {
		s.limiter = newClientLimiter(cfg.GetRateLimitPerMinute())
	}

	if err := s.initRoutes(); err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}
	s.logRoutes()

	return s, nil
}

// Flows returns the repository of live login flows.
func (s *Server) Flows() authflowrepo.Repo {
	return s.flows
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColours[method]; ok {
		return colour + paddedMethod + resetColour
	}
	return grey + paddedMethod + resetColour
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func logError(method, path, message string) {
	log.Error().Msgf("[%-19s] %s %s", colouredMethod(method), path, red+message+resetColour)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
