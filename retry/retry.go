// Package retry retries operations against flaky remote services with
// exponential backoff.
package retry

import (
	"context"
	"math"
	"time"

	"github.com/cockroachdb/errors"
)

// Settings configures the backoff between attempts. A MaxRetries of 0
// retries forever.
type Settings struct {
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
	MaxRetries     int
}

func (s Settings) Verify() error {
	if s.InitialBackoff <= 0 {
		return errors.Newf("initial backoff must be set to >= 0, got %s", s.InitialBackoff)
	}
	if s.Multiplier < 1 {
		return errors.Newf("multiplier must be >= 1, got %d", s.Multiplier)
	}
	if s.MaxBackoff > 0 && s.InitialBackoff > s.MaxBackoff {
		return errors.Newf("initial backoff (%s) must be less than max backoff (%s)", s.InitialBackoff, s.MaxBackoff)
	}
	if s.MaxRetries < 0 {
		return errors.Newf("max retries must be >= 0, got %d", s.MaxRetries)
	}
	return nil
}

func DefaultSettings() Settings {
	return Settings{
		InitialBackoff: time.Second,
		Multiplier:     2,
	}
}

// Retry tracks the schedule of attempts for a single operation.
type Retry struct {
	Iteration int
	StartTime time.Time
	NextRetry time.Time

	settings Settings
}

func NewRetry(settings Settings) (*Retry, error) {
	return NewRetryWithTime(time.Now(), settings)
}

func NewRetryWithTime(t time.Time, settings Settings) (*Retry, error) {
	if err := settings.Verify(); err != nil {
		return nil, err
	}
	return &Retry{
		Iteration: 1,
		StartTime: t,
		NextRetry: t.Add(settings.InitialBackoff),
		settings:  settings,
	}, nil
}

func (r *Retry) ShouldContinue() bool {
	if r.settings.MaxRetries == 0 {
		return true
	}
	return r.Iteration < r.settings.MaxRetries
}

// Next advances the schedule by one attempt.
func (r *Retry) Next() {
	backoff := r.settings.InitialBackoff * time.Duration(math.Pow(float64(r.settings.Multiplier), float64(r.Iteration)))
	if r.settings.MaxBackoff > 0 && backoff > r.settings.MaxBackoff {
		backoff = r.settings.MaxBackoff
	}
	r.Iteration++
	r.NextRetry = r.NextRetry.Add(backoff)
}

var errPermanent = errors.New("permanent error")

// Permanent marks err so that Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errPermanent)
}

func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

// Do runs fn until it succeeds, returns a permanent error, runs out of
// attempts or ctx is done. The last error from fn is returned.
func Do(ctx context.Context, settings Settings, fn func() error) error {
	r, err := NewRetry(settings)
	if err != nil {
		return err
	}
	for {
		err := fn()
		if err == nil || IsPermanent(err) {
			return err
		}
		if !r.ShouldContinue() {
			return errors.Wrapf(err, "giving up after %d attempts", r.Iteration)
		}
		t := time.NewTimer(time.Until(r.NextRetry))
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.WithSecondaryError(ctx.Err(), err)
		case <-t.C:
		}
		r.Next()
	}
}
