// Package httpapi exposes the account administration operations and the
// login check over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/useradmin/internal/logging"
	"github.com/dmitrijs2005/useradmin/internal/server/models"
	"github.com/dmitrijs2005/useradmin/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// AccountManager is the subset of services.AccountService the API uses.
type AccountManager interface {
	List(ctx context.Context) ([]models.PublicAccount, error)
	Get(ctx context.Context, id string) (*models.PublicAccount, error)
	Create(ctx context.Context, username, password string, roles []string) (uuid.UUID, error)
	Update(ctx context.Context, id, username string, roles []string, newPassword string) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
	Purge(ctx context.Context, id string) error
	Status(ctx context.Context) (*services.Status, error)
}

// Authenticator is implemented by services.CredentialService.
type Authenticator interface {
	Authenticate(ctx context.Context, username, plaintext string) (*models.PublicAccount, error)
}

type Server struct {
	address   string
	accounts  AccountManager
	creds     Authenticator
	adminRole string
	logger    logging.Logger
	metrics   *Collector
	gatherer  prometheus.Gatherer

	shutdownTimeout time.Duration
}

// NewServer builds the API. The metrics are registered with reg, which is
// also served on /metrics.
func NewServer(addr string, l logging.Logger, accounts AccountManager, creds Authenticator, adminRole string, reg *prometheus.Registry) *Server {
	return &Server{
		address:         addr,
		accounts:        accounts,
		creds:           creds,
		adminRole:       adminRole,
		logger:          l.With("module", "http_server"),
		metrics:         NewCollector(reg),
		gatherer:        reg,
		shutdownTimeout: 10 * time.Second,
	}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(s.recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", MetricsHandler(s.gatherer))
	r.Post("/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.listAccounts)
			r.Post("/", s.createAccount)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getAccount)
				r.Put("/", s.updateAccount)
				r.Delete("/", s.purgeAccount)
				r.Post("/delete", s.softDeleteAccount)
				r.Post("/restore", s.restoreAccount)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		done <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return <-done
}
