package core

import "time"

// Cache is the ephemeral key-value store backing once-per-day deduplication
// of scheduled side effects. It is an optimization only: a lost key causes at
// worst a duplicate notification, never a wrong state transition.
type Cache interface {
	Exists(key string) (bool, error)
	Get(key string) (string, bool, error)
	SetWithTTL(key, value string, ttl time.Duration) error
	Delete(key string) error
}
