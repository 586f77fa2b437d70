// Package revocation keeps the list of logged-out token ids until the
// tokens would have expired anyway.
package revocation

import (
	"fmt"
	"time"

	"cpcaisse/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
