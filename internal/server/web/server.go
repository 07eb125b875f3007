// Package web exposes credential registration, verification, token issuance
// and key introspection over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/throttle"
	"github.com/veronewra/openverse/internal/server/tokens"
	"github.com/veronewra/openverse/internal/server/verifications"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address       string
	logger        logging.Logger
	registrations *applications.Service
	activations   *verifications.Service
	tokens        *tokens.Service
	throttle      *throttle.Service
	jwtSecret     []byte
}

func NewServer(a string, l logging.Logger, rs *applications.Service, vs *verifications.Service,
	ts *tokens.Service, th *throttle.Service, secretKey string) (*Server, error) {
	return &Server{
		address:       a,
		logger:        l.With("module", "http_server"),
		registrations: rs,
		activations:   vs,
		tokens:        ts,
		throttle:      th,
		jwtSecret:     []byte(secretKey),
	}, nil
}

// Router wires the endpoint table. Registration is throttled by caller IP at
// the anonymous tier; key introspection is throttled at the tier carried in
// the bearer token.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	auth := r.PathPrefix("/v1/auth").Subrouter()
	auth.Handle("/register", s.throttleByIP(http.HandlerFunc(s.handleRegister))).Methods(http.MethodPost)
	auth.Handle("/verify/{code}", http.HandlerFunc(s.handleVerify)).Methods(http.MethodGet)
	auth.Handle("/tokens", http.HandlerFunc(s.handleToken)).Methods(http.MethodPost)
	auth.Handle("/key_info", s.requireBearer(s.throttleByClaims(http.HandlerFunc(s.handleKeyInfo)))).Methods(http.MethodGet)

	return r
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
