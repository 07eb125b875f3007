// Package server initializes and runs the API credential server. It wires
// configuration, storage, the Redis-backed throttle machinery and the HTTP
// endpoint, and handles graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/config"
	"github.com/veronewra/openverse/internal/server/locks"
	"github.com/veronewra/openverse/internal/server/mail"
	"github.com/veronewra/openverse/internal/server/shared/db"
	"github.com/veronewra/openverse/internal/server/throttle"
	"github.com/veronewra/openverse/internal/server/tokens"
	"github.com/veronewra/openverse/internal/server/verifications"
	"github.com/veronewra/openverse/internal/server/web"
)

type App struct {
	config        *config.Config
	logger        logging.Logger
	registrations *applications.Service
	activations   *verifications.Service
	tokens        *tokens.Service
	throttle      *throttle.Service
	dispatcher    *mail.Dispatcher
}

func NewApp(cfg *config.Config) (*App, error) {

	slog := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slog)

	rm, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	counterStore, err := throttle.NewRedisStore(rdb)
	if err != nil {
		return nil, fmt.Errorf("counter store init error: %w", err)
	}

	lockSvc, err := locks.NewRedisService(rdb)
	if err != nil {
		return nil, fmt.Errorf("lock service init error: %w", err)
	}

	throttleSvc := throttle.NewService(counterStore, lockSvc, logger, throttle.Options{
		AnonBurstLimit:      cfg.AnonBurstLimit,
		AnonBurstWindow:     cfg.AnonBurstWindow,
		AnonSustainedLimit:  cfg.AnonSustainedLimit,
		AnonSustainedWindow: cfg.AnonSustainedWindow,
		FailOpen:            cfg.ThrottleFailOpen,
	})

	mailer := mail.NewSMTPMailer(cfg.SMTPAddr, cfg.EmailSender)
	dispatcher := mail.NewDispatcher(mailer, logger, cfg.PublicBaseURL)

	rs := applications.NewService(rm.Applications(), rm.Verifications(), dispatcher, logger,
		cfg.VerificationCodeValidityDuration)
	vs := verifications.NewService(rm.Verifications())
	ts := tokens.NewService(rm.Applications(), cfg)

	return &App{
		config:        cfg,
		logger:        logger,
		registrations: rs,
		activations:   vs,
		tokens:        ts,
		throttle:      throttleSvc,
		dispatcher:    dispatcher,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := web.NewServer(app.config.EndpointAddrHTTP, app.logger,
		app.registrations, app.activations, app.tokens, app.throttle, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	// Let in-flight verification emails finish before exiting.
	app.dispatcher.Wait()
}
