// Package applications owns registration of API client applications: the
// credential records themselves plus the one-time issuance of client
// secrets.
package applications

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/verifications"
)

// secret and verification code sizes, in random bytes before encoding
const (
	secretRandBytes = 32
	codeRandBytes   = 64
)

// VerificationNotifier hands a verification email off for delivery. The
// handoff must not block and must not fail registration; transport errors
// are the implementation's problem to log and retry.
type VerificationNotifier interface {
	DispatchVerification(email, code string)
}

// RegistrationResult carries the only cleartext exposure of the client
// secret. Once returned, the secret is not retrievable through any path.
type RegistrationResult struct {
	ClientID     string
	ClientSecret string
	Name         string
}

// ValidationError reports per-field registration problems. No state is
// mutated when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type Service struct {
	repo             Repository
	verificationRepo verifications.Repository
	notifier         VerificationNotifier
	logger           logging.Logger
	verificationTTL  time.Duration
	now              func() time.Time
}

func NewService(repo Repository, verificationRepo verifications.Repository, notifier VerificationNotifier, logger logging.Logger, verificationTTL time.Duration) *Service {
	return &Service{
		repo:             repo,
		verificationRepo: verificationRepo,
		notifier:         notifier,
		logger:           logger,
		verificationTTL:  verificationTTL,
		now:              time.Now,
	}
}

func validateRegistration(name, email string) *ValidationError {
	fields := make(map[string]string)

	if strings.TrimSpace(name) == "" {
		fields["name"] = "this field is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "enter a valid email address"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Register validates the input, mints a client identity and secret, persists
// the unverified application together with its verification code, and hands
// the verification email to the notifier. The returned secret is stored only
// as a bcrypt hash.
//
// Email delivery trouble never fails a registration: the notifier is
// asynchronous and the caller keeps the issued credentials either way.
func (s *Service) Register(ctx context.Context, name, email string) (*RegistrationResult, error) {

	if verr := validateRegistration(name, email); verr != nil {
		return nil, verr
	}

	clientSecret, err := common.MakeRandURLSafeString(secretRandBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating client secret: %w", err)
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte(clientSecret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing client secret: %w", err)
	}

	app := &Application{
		ClientID:     uuid.NewString(),
		SecretHash:   string(secretHash),
		Name:         strings.TrimSpace(name),
		ContactEmail: email,
		Verified:     false,
		RateTier:     TierStandard,
	}

	app, err = s.repo.Create(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("error creating application: %w", err)
	}

	code, err := common.MakeRandURLSafeString(codeRandBytes)
	if err != nil {
		return nil, fmt.Errorf("error generating verification code: %w", err)
	}

	err = s.verificationRepo.Create(ctx, &verifications.VerificationCode{
		Code:          code,
		ApplicationID: app.ID,
		ExpiresAt:     s.now().Add(s.verificationTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("error creating verification code: %w", err)
	}

	s.notifier.DispatchVerification(app.ContactEmail, code)

	s.logger.Info(ctx, "application registered", "client_id", app.ClientID, "name", app.Name)

	return &RegistrationResult{
		ClientID:     app.ClientID,
		ClientSecret: clientSecret,
		Name:         app.Name,
	}, nil
}
