package service

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"

	"ms-registration/internal/database"
)

// withRetry runs one ledger unit, rerunning it from scratch while it fails
// with a transient error, up to the configured number of attempts. Every
// other outcome ends the loop.
func (s *LedgerService) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.retry.OperationBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.retry.OperationBudget)
		defer cancel()
	}

	attempts := s.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	expo := backoff.NewExponentialBackOff()
	if s.retry.RetryInitial > 0 {
		expo.InitialInterval = s.retry.RetryInitial
	}
	if s.retry.RetryMax > 0 {
		expo.MaxInterval = s.retry.RetryMax
	}
	expo.MaxElapsedTime = 0
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if attempts > 1 {
		policy = backoff.WithMaxRetries(expo, uint64(attempts-1))
	}
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	var last error
	err := backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		last = err
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		if attempt < attempts {
			s.Metrics.IncRetry(op)
			s.Log.Debug("LEDGER", "Retrying "+op+" after transient failure: "+err.Error())
		}
		return err
	}, policy)

	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	// backoff reports the context error when the budget ran out between attempts.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if last != nil && IsTransient(last) {
			return last
		}
		return transient("operation cancelled before it could complete", err)
	}
	return translate(err)
}

// translate maps a storage error that escaped a ledger unit onto the
// taxonomy. Typed rejections pass through. A unique-index conflict is
// transient: the retry re-reads the winner and reports a duplicate.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	switch {
	case errors.Is(err, database.ErrConflict):
		return transient("concurrent registration for the same email", err)
	case errors.Is(err, database.ErrTransient):
		return transient("storage contention", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return transient("operation cancelled before commit", err)
	default:
		return transient("storage failure", err)
	}
}
