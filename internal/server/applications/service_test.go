package applications

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/verifications"
)

type fakeAppRepo struct {
	mu   sync.Mutex
	apps map[string]*Application // keyed by client_id
	seq  int
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{apps: make(map[string]*Application)}
}

func (r *fakeAppRepo) Create(_ context.Context, app *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	app.ID = "app-" + strconv.Itoa(r.seq)
	app.CreatedAt = time.Now()
	r.apps[app.ClientID] = app
	return app, nil
}

func (r *fakeAppRepo) GetByClientID(_ context.Context, clientID string) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[clientID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return app, nil
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*verifications.VerificationCode
}

func (r *fakeCodeRepo) Create(_ context.Context, code *verifications.VerificationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, code)
	return nil
}

func (r *fakeCodeRepo) Consume(_ context.Context, _ string, _ time.Time) (string, error) {
	return "", common.ErrorInvalidCode
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string // "email code" pairs
	codes []string
}

func (n *recordingNotifier) DispatchVerification(email, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	n.codes = append(n.codes, code)
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestService() (*Service, *fakeAppRepo, *fakeCodeRepo, *recordingNotifier) {
	apps := newFakeAppRepo()
	codes := &fakeCodeRepo{}
	notifier := &recordingNotifier{}
	svc := NewService(apps, codes, notifier, testLogger(), 72*time.Hour)
	return svc, apps, codes, notifier
}

func TestRegister_Success(t *testing.T) {
	svc, apps, codes, notifier := newTestService()

	res, err := svc.Register(context.Background(), "Acme", "a@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, res.ClientID)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, "Acme", res.Name)

	stored, err := apps.GetByClientID(context.Background(), res.ClientID)
	require.NoError(t, err)

	// The stored record never contains the cleartext secret, only a hash
	// that verifies against it.
	assert.NotContains(t, stored.SecretHash, res.ClientSecret)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.SecretHash), []byte(res.ClientSecret)))

	assert.False(t, stored.Verified)
	assert.Equal(t, TierStandard, stored.RateTier)

	require.Len(t, codes.codes, 1)
	assert.Equal(t, stored.ID, codes.codes[0].ApplicationID)
	assert.True(t, codes.codes[0].ExpiresAt.After(time.Now().Add(71*time.Hour)))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "a@example.com", notifier.sent[0])
	assert.Equal(t, codes.codes[0].Code, notifier.codes[0])
}

func TestRegister_ValidationErrors_NoStateMutated(t *testing.T) {
	svc, apps, codes, notifier := newTestService()

	tests := []struct {
		name      string
		appName   string
		email     string
		wantField string
	}{
		{"empty name", "", "a@example.com", "name"},
		{"blank name", "   ", "a@example.com", "name"},
		{"bad email", "Acme", "not-an-email", "email"},
		{"empty email", "Acme", "", "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.appName, tt.email)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)
		})
	}

	assert.Empty(t, apps.apps, "validation failure must not persist applications")
	assert.Empty(t, codes.codes, "validation failure must not persist codes")
	assert.Empty(t, notifier.sent, "validation failure must not send email")
}

func TestRegister_BothFieldsInvalid_ReportsBoth(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Register(context.Background(), "", "nope")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestRegister_SecretsAreUnique(t *testing.T) {
	svc, _, _, _ := newTestService()

	a, err := svc.Register(context.Background(), "One", "one@example.com")
	require.NoError(t, err)
	b, err := svc.Register(context.Background(), "Two", "two@example.com")
	require.NoError(t, err)

	assert.NotEqual(t, a.ClientID, b.ClientID)
	assert.NotEqual(t, a.ClientSecret, b.ClientSecret)
}
