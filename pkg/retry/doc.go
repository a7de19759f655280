// Package retry runs operations under a bounded, capped exponential backoff policy.
//
// It is a thin layer over github.com/cenkalti/backoff/v5 that fixes the policy
// shape used across connectors and the storage router: a maximum number of
// attempts, an initial delay and a ceiling on any single delay.
//
// # Usage
//
//	pool, err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) (*pgxpool.Pool, error) {
//		p, err := pgxpool.NewWithConfig(ctx, cfg)
//		if err != nil {
//			return nil, err
//		}
//		if err := p.Ping(ctx); err != nil {
//			p.Close()
//			return nil, err
//		}
//		return p, nil
//	})
//
// Errors that must not be retried are wrapped with Permanent. When every
// attempt fails with a retryable error the returned error matches ErrExhausted.
package retry
