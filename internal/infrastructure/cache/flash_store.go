package cache

import "context"

// FlashStore holds transient messages per browser session. Messages are
// returned and cleared together by Take, so each one is shown at most once.
type FlashStore interface {
	// Put stores message under key for the session, replacing any previous
	// message with the same key, and restarts the session's TTL.
	Put(ctx context.Context, sessionID, key, message string) error

	// Take returns all messages of the session and removes them.
	// A session with no messages yields an empty, non-nil map.
	Take(ctx context.Context, sessionID string) (map[string]string, error)

	// Close releases background resources
	Close() error
}
