// Package tokenstore caches short-lived access tokens, such as the OAuth
// tokens minted for the Google Calendar API, keyed by name.
package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no usable token exists for a key. An
// expired token counts as missing, so callers always refresh through the
// same path.
var ErrNotFound = errors.New("tokenstore: token not found")

// Store holds tokens for at most their TTL. Implementations must be safe
// for concurrent use.
type Store interface {
	// Set stores value under key until ttl elapses, replacing any
	// previous token for the key.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the token stored under key, or ErrNotFound when the
	// key is unknown or its token has expired.
	Get(ctx context.Context, key string) (string, error)
	// Delete drops the token for key, if any.
	Delete(ctx context.Context, key string) error
}
