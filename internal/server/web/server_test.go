package web

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/applications"
	"github.com/veronewra/openverse/internal/server/config"
	"github.com/veronewra/openverse/internal/server/locks"
	"github.com/veronewra/openverse/internal/server/throttle"
	"github.com/veronewra/openverse/internal/server/tokens"
	"github.com/veronewra/openverse/internal/server/verifications"
)

const testSecretKey = "test-secret-key"

// memStore backs the fake repositories with shared state, so a consumed
// verification code is visible as a verified application on the token path.
type memStore struct {
	mu         sync.Mutex
	seq        int
	byClientID map[string]*applications.Application
	byID       map[string]*applications.Application
	codes      map[string]*verifications.VerificationCode
}

func newMemStore() *memStore {
	return &memStore{
		byClientID: make(map[string]*applications.Application),
		byID:       make(map[string]*applications.Application),
		codes:      make(map[string]*verifications.VerificationCode),
	}
}

type memAppRepo struct{ s *memStore }

func (r *memAppRepo) Create(_ context.Context, app *applications.Application) (*applications.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	app.ID = strconv.Itoa(r.s.seq)
	app.CreatedAt = time.Now()
	r.s.byClientID[app.ClientID] = app
	r.s.byID[app.ID] = app
	return app, nil
}

func (r *memAppRepo) GetByClientID(_ context.Context, clientID string) (*applications.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	app, ok := r.s.byClientID[clientID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	copied := *app
	return &copied, nil
}

type memCodeRepo struct{ s *memStore }

func (r *memCodeRepo) Create(_ context.Context, code *verifications.VerificationCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.codes[code.Code] = code
	return nil
}

func (r *memCodeRepo) Consume(_ context.Context, code string, now time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vc, ok := r.s.codes[code]
	if !ok || !vc.ExpiresAt.After(now) {
		return "", common.ErrorInvalidCode
	}
	delete(r.s.codes, code)
	if app, ok := r.s.byID[vc.ApplicationID]; ok {
		app.Verified = true
	}
	return vc.ApplicationID, nil
}

type sentMail struct {
	Email string
	Code  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) DispatchVerification(email, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{Email: email, Code: code})
}

func (n *recordingNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type webTestEnv struct {
	server   *Server
	store    *memStore
	notifier *recordingNotifier
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T, anonBurst int) *webTestEnv {
	t.Helper()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counterStore, err := throttle.NewRedisStore(client)
	require.NoError(t, err)

	lockSvc, err := locks.NewRedisService(client)
	require.NoError(t, err)

	throttleSvc := throttle.NewService(counterStore, lockSvc, logger, throttle.Options{
		AnonBurstLimit:      anonBurst,
		AnonBurstWindow:     time.Hour,
		AnonSustainedLimit:  10 * anonBurst,
		AnonSustainedWindow: 24 * time.Hour,
	})

	store := newMemStore()
	notifier := &recordingNotifier{}

	appRepo := &memAppRepo{s: store}
	codeRepo := &memCodeRepo{s: store}

	registrations := applications.NewService(appRepo, codeRepo, notifier, logger, 72*time.Hour)
	activations := verifications.NewService(codeRepo)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = testSecretKey
	tokenSvc := tokens.NewService(appRepo, cfg)

	server, err := NewServer("127.0.0.1:0", logger, registrations, activations, tokenSvc, throttleSvc, testSecretKey)
	require.NoError(t, err)

	return &webTestEnv{server: server, store: store, notifier: notifier, mr: mr}
}
