package mail

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"

	"github.com/veronewra/openverse/internal/logging"
)

const (
	verificationSubject = "Verify your API credentials"

	sendAttempts = 3
	sendDelay    = 2 * time.Second
)

// Dispatcher turns verification codes into emails and hands them to the
// Mailer in the background, retrying transient relay failures. It satisfies
// the notifier contract of the registration service.
type Dispatcher struct {
	mailer  Mailer
	logger  logging.Logger
	baseURL string

	attempts uint
	delay    time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(mailer Mailer, logger logging.Logger, baseURL string) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		logger:   logger,
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: sendAttempts,
		delay:    sendDelay,
	}
}

// VerificationLink builds the external activation URL for a code.
func (d *Dispatcher) VerificationLink(code string) string {
	return d.baseURL + "/v1/auth/verify/" + code
}

func verificationBody(link string) string {
	return fmt.Sprintf(
		"To verify your Openverse API credentials, click on the following link:\n\n%s\n\nIf you believe you received this message in error, please disregard it.\n",
		link,
	)
}

// DispatchVerification queues a verification email for delivery and returns
// immediately. Delivery failures are logged, never surfaced to the caller.
func (d *Dispatcher) DispatchVerification(email, code string) {
	body := verificationBody(d.VerificationLink(code))

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		err := retry.New(
			retry.Attempts(d.attempts),
			retry.Delay(d.delay),
			retry.LastErrorOnly(true),
		).Do(func() error {
			return d.mailer.Send(email, verificationSubject, body)
		})
		if err != nil {
			d.logger.Error(context.Background(), "failed to send verification email", "to", email, "error", err.Error())
		}
	}()
}

// Wait blocks until all queued emails have been attempted. Called during
// shutdown so in-flight deliveries are not cut off.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
