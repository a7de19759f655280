package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy describes how many times and how patiently an operation is retried.
type Policy struct {
	Attempts        uint          `env:"RETRY_ATTEMPTS" envDefault:"5"`
	InitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"200ms"`
	MaxInterval     time.Duration `env:"RETRY_MAX_INTERVAL" envDefault:"30s"`
}

// DefaultPolicy allows five attempts with delays growing from 200ms and capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:        5,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.Attempts == 0 {
		p.Attempts = d.Attempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	return p
}

// Notify is called after a failed attempt that will be retried.
type Notify func(err error, attempt uint, next time.Duration)

// Option configures a single Do call.
type Option func(*options)

type options struct {
	notify Notify
}

// WithNotify registers a callback invoked before each retry delay.
func WithNotify(fn Notify) Option {
	return func(o *options) { o.notify = fn }
}

// Permanent marks err as not retryable. Do returns the wrapped error unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are used up.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	p = p.normalize()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	var (
		attempt   uint
		retryable bool
	)

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			retryable = false
			var zero T
			return zero, backoff.Permanent(err)
		}

		v, err := op(ctx)
		if err != nil {
			var perm *backoff.PermanentError
			retryable = !errors.As(err, &perm)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.Attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			if o.notify != nil {
				o.notify(err, attempt, next)
			}
		}),
	)
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		var zero T
		return zero, ctxErr
	}
	if retryable {
		var zero T
		return zero, errors.Join(ErrExhausted, err)
	}
	return res, err
}
