// Package throttle enforces the tiered sliding-window rate limits applied
// to every API credential, with windows shared across workers through the
// counter store.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veronewra/openverse/internal/common"
	"github.com/veronewra/openverse/internal/logging"
	"github.com/veronewra/openverse/internal/server/locks"
)

// leaseTTL bounds how long a crashed worker can keep an identity's
// check-and-record section locked.
const leaseTTL = 2 * time.Second

// RateLimitedError reports a rejected request and when the caller may
// retry. It is a normal throttling outcome, distinct from internal errors.
type RateLimitedError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited on %s, retry after %s", e.Scope, e.RetryAfter)
}

// Usage is a read-only snapshot of the two windows of an identity.
type Usage struct {
	Burst     int
	Sustained int
}

type Service struct {
	store         Store
	locks         locks.Service
	logger        logging.Logger
	anonBurst     rate
	anonSustained rate
	failOpen      bool
	now           func() time.Time
}

// Options carries the configurable part of the tier table and the policy
// for counter store outages.
type Options struct {
	AnonBurstLimit      int
	AnonBurstWindow     time.Duration
	AnonSustainedLimit  int
	AnonSustainedWindow time.Duration

	// FailOpen allows traffic through when the counter store is
	// unreachable. The default (false) fails closed: outages reject
	// traffic rather than uncap it.
	FailOpen bool
}

func NewService(store Store, lockSvc locks.Service, logger logging.Logger, opts Options) *Service {
	return &Service{
		store:         store,
		locks:         lockSvc,
		logger:        logger,
		anonBurst:     rate{Limit: opts.AnonBurstLimit, Window: opts.AnonBurstWindow},
		anonSustained: rate{Limit: opts.AnonSustainedLimit, Window: opts.AnonSustainedWindow},
		failOpen:      opts.FailOpen,
		now:           time.Now,
	}
}

func windowKey(scope, identity string) string {
	return "throttle_" + scope + "_" + identity
}

// effectiveTier resolves the stored tier string, downgrading unverified
// credentials to the anonymous tier. The parse happens first so a corrupt
// tier value surfaces as an integrity error even for unverified clients.
func effectiveTier(tierName string, verified bool) (Tier, error) {
	tier, err := ParseTier(tierName)
	if err != nil {
		return 0, err
	}
	if !verified {
		return TierAnonymous, nil
	}
	return tier, nil
}

// CheckAndRecord admits or rejects one request for the identity.
//
// Both the burst and the sustained window must have room; when either is
// full the request is rejected and neither window is touched, so rejected
// traffic never consumes quota. The read-then-append runs under a
// per-identity lease, which keeps two workers from both taking the last
// slot.
//
// Outcomes: nil (allowed), *RateLimitedError (over limit),
// common.ErrLockBusy (transient contention, caller retries),
// common.ErrUnknownRateTier (integrity anomaly), or
// common.ErrStoreUnavailable when the store is down and FailOpen is off.
func (s *Service) CheckAndRecord(ctx context.Context, identity, tierName string, verified bool) error {

	tier, err := effectiveTier(tierName, verified)
	if err != nil {
		return err
	}

	limits, active := s.limitsFor(tier)
	if !active {
		// Exempt traffic is unlimited and leaves no trace in the store.
		return nil
	}

	lease, err := s.locks.Acquire(ctx, "throttle:"+identity, leaseTTL)
	if err != nil {
		if errors.Is(err, common.ErrLockBusy) {
			return err
		}
		return s.storeFailure(ctx, err)
	}
	defer func() {
		if err := s.locks.Release(ctx, lease); err != nil {
			s.logger.Warn(ctx, "failed to release throttle lease", "identity", identity, "error", err.Error())
		}
	}()

	now := s.now()

	scopes := []struct {
		scope string
		rate  rate
	}{
		{limits.BurstScope, limits.Burst},
		{limits.SustainedScope, limits.Sustained},
	}

	// First pass: check both windows without mutating anything.
	for _, sc := range scopes {
		key := windowKey(sc.scope, identity)
		since := now.Add(-sc.rate.Window)

		count, err := s.store.Count(ctx, key, since)
		if err != nil {
			return s.storeFailure(ctx, err)
		}

		if count >= sc.rate.Limit {
			return &RateLimitedError{
				Scope:      sc.scope,
				RetryAfter: s.retryAfter(ctx, key, since, sc.rate.Window, now),
			}
		}
	}

	// Second pass: both windows have room, record the request in each.
	for _, sc := range scopes {
		key := windowKey(sc.scope, identity)
		since := now.Add(-sc.rate.Window)

		if err := s.store.Record(ctx, key, now, since, sc.rate.Window); err != nil {
			return s.storeFailure(ctx, err)
		}
	}

	return nil
}

// Inspect reports current window counts without recording anything. An
// identity with no traffic reports zeros; no state is created.
func (s *Service) Inspect(ctx context.Context, identity, tierName string, verified bool) (*Usage, error) {

	tier, err := effectiveTier(tierName, verified)
	if err != nil {
		return nil, err
	}

	limits, active := s.limitsFor(tier)
	if !active {
		return &Usage{}, nil
	}

	now := s.now()

	burst, err := s.store.Count(ctx, windowKey(limits.BurstScope, identity), now.Add(-limits.Burst.Window))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	sustained, err := s.store.Count(ctx, windowKey(limits.SustainedScope, identity), now.Add(-limits.Sustained.Window))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	return &Usage{Burst: burst, Sustained: sustained}, nil
}

// retryAfter derives the wait from the oldest still-counted entry: the slot
// frees up when that entry slides out of the window.
func (s *Service) retryAfter(ctx context.Context, key string, since time.Time, window time.Duration, now time.Time) time.Duration {
	oldest, ok, err := s.store.Oldest(ctx, key, since)
	if err != nil || !ok {
		return window
	}
	retry := oldest.Add(window).Sub(now)
	if retry < 0 {
		return 0
	}
	return retry
}

// storeFailure applies the configured outage policy: fail closed by
// default, or log and admit when FailOpen is set.
func (s *Service) storeFailure(ctx context.Context, err error) error {
	if s.failOpen {
		s.logger.Warn(ctx, "counter store unavailable, failing open", "error", err.Error())
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
}
