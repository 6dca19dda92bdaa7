package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-tenant-server/accounts"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/store"
	"github.com/jrsteele09/go-tenant-server/workingset"
)

// Persister wraps a durable upsert/delete with bounded retry.
type Persister interface {
	Persist(ctx context.Context, table string, row map[string]any) store.Outcome
	Delete(ctx context.Context, table, id string) store.Outcome
}

// SchemaEnsurer applies additive schema changes a pending write depends on.
type SchemaEnsurer interface {
	EnsureColumns(ctx context.Context, table string, required []store.ColumnSpec) error
}

// TenantHydrator lazily refreshes a tenant working set.
type TenantHydrator interface {
	EnsureHydrated(ctx context.Context, tenantID, groupID string) error
}

// Deps holds all dependencies for the Server.
type Deps struct {
	Sessions *sessions.Store
	Accounts accounts.Repo
	Registry *workingset.Registry
	Hydrator TenantHydrator
	Writer   Persister
	Evolver  SchemaEnsurer
}

// Server is the business-route layer over the tenant state core. Handlers
// read and mutate the caller's working set directly; durability is a
// best-effort side effect surfaced through response warnings.
type Server struct {
	env    string
	mux    *http.ServeMux
	routes []string
	config config.Config
	deps   Deps

	nowTime func() time.Time
	log     zerolog.Logger
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the server logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New wires the route layer over its dependencies.
func New(cfg config.Config, deps Deps, options ...Option) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("[server.New] Sessions store is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("[server.New] Accounts repo is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("[server.New] Registry is required")
	}
	if deps.Hydrator == nil {
		return nil, errors.New("[server.New] Hydrator is required")
	}
	if deps.Writer == nil {
		return nil, errors.New("[server.New] Writer is required")
	}
	if deps.Evolver == nil {
		return nil, errors.New("[server.New] Evolver is required")
	}

	s := &Server{
		env:     cfg.Env,
		mux:     http.NewServeMux(),
		config:  cfg,
		deps:    deps,
		nowTime: time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
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
			s.log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route")
		} else {
			s.log.Info().Str("path", parts[0]).Msg("route")
		}
	}
}
