package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Policy configures exponential reconnect backoff.
type Policy struct {
	// Base is the delay before the first attempt.
	Base time.Duration `yaml:"base" json:"base" validate:"gt=0"`
	// Max caps a single delay.
	Max        time.Duration `yaml:"max" json:"max" validate:"gtefield=Base"`
	Multiplier float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
	// MaxAttempts bounds the attempts before the connection is reported
	// offline. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" validate:"gte=0"`
	// Jitter is the randomization factor applied to every delay, in [0, 1).
	Jitter float64 `yaml:"jitter" json:"jitter" validate:"gte=0,lt=1"`
}

// DefaultPolicy returns the policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{
		Base:        time.Second,
		Max:         time.Minute,
		Multiplier:  2,
		MaxAttempts: 10,
		Jitter:      0.2,
	}
}

func (p Policy) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid reconnect policy", err)
	}

	return nil
}

// WithDefaults fills zero fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	def := DefaultPolicy()

	if p.Base == 0 {
		p.Base = def.Base
	}

	if p.Max == 0 {
		p.Max = def.Max
	}

	if p.Max < p.Base {
		p.Max = p.Base
	}

	if p.Multiplier == 0 {
		p.Multiplier = def.Multiplier
	}

	return p
}

// NewBackOff builds a fresh backoff sequence that reads time from clock.
func (p Policy) NewBackOff(clock clockwork.Clock) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Base
	b.MaxInterval = p.Max
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Clock = clock
	b.Reset()

	if p.MaxAttempts > 0 {
		return backoff.WithMaxRetries(b, uint64(p.MaxAttempts))
	}

	return b
}

// Delays returns the first n delays of the policy without jitter. Used for
// logging the configured schedule.
func (p Policy) Delays(n int) []time.Duration {
	noJitter := p
	noJitter.Jitter = 0
	noJitter.MaxAttempts = 0

	schedule := noJitter.NewBackOff(clockwork.NewRealClock())
	delays := make([]time.Duration, 0, n)

	for i := 0; i < n; i++ {
		delays = append(delays, schedule.NextBackOff())
	}

	return delays
}
