package captcha

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxAttempts caps how many times a CAPTCHA-protected step may be
// retried before the whole procedure fails.
const DefaultMaxAttempts = 5

var ErrAttemptsExhausted = errors.New("captcha: attempt cap exceeded")

// Gate runs a CAPTCHA-protected step under the shared retry protocol:
// the step fetches the challenge, obtains a guess, submits it and checks
// for the success indicator; any error counts as a failed attempt. Once
// the cap is exceeded the gate fails terminally, it never loops
// unboundedly.
type Gate struct {
	MaxAttempts int
}

func NewGate() *Gate {
	return &Gate{MaxAttempts: DefaultMaxAttempts}
}

func (g *Gate) Do(ctx context.Context, step func(ctx context.Context) error) error {
	attempts := g.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := step(ctx); err != nil {
			lastErr = err
			continue
		}

		return nil
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrAttemptsExhausted, attempts, lastErr)
}
