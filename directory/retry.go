package directory

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/organizations"
)

const (
	throttleBackoff   = 5 * time.Second
	activationBackoff = 20 * time.Second
)

// withRetry runs a control-plane call, absorbing the two transient
// conditions Organizations produces during normal operation: request rate
// limiting, and the activation lag of a service that was just enabled on
// the org. Both retry with a fixed sleep until the call goes through or
// ctx is cancelled; every other error propagates immediately.
func withRetry(ctx context.Context, op func() error) error {
	for {
		err := op()
		if err == nil {
			return nil
		}

		var backoff time.Duration

		var aerr awserr.Error
		if errors.As(err, &aerr) {
			switch aerr.Code() {
			case organizations.ErrCodeTooManyRequestsException, "Throttling", "ThrottlingException":
				backoff = throttleBackoff
			case organizations.ErrCodeAWSOrganizationsNotInUseException, "SubscriptionRequiredException":
				backoff = activationBackoff
			}
		}

		if backoff == 0 {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}
