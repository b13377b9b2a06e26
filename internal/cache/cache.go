// Package cache keeps the latest advisory per user so repeat dashboard
// loads do not re-run the model. Entries expire; a miss simply triggers a
// fresh analysis.
package cache

import (
	"errors"
	"time"
)

// DefaultTTL is how long a cached advisory stays fresh.
const DefaultTTL = 6 * time.Hour

// ErrMiss is returned when no fresh entry exists for the user.
var ErrMiss = errors.New("cache: miss")

// AdvisoryCache stores the serialized advisory payload per user.
type AdvisoryCache interface {
	Get(userID string) ([]byte, error)
	Set(userID string, payload []byte, ttl time.Duration) error
	Invalidate(userID string) error
}
