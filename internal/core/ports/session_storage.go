package ports

import "context"

// SessionStorage is the durable key/value store backing sessions.
// Get reports ok=false for a missing key; Delete ignores missing keys.
// Apply is all-or-nothing: when it fails no key of the batch has changed.
type SessionStorage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Apply(ctx context.Context, b Batch) error
	Delete(ctx context.Context, keys ...string) error
}

// Batch is one atomic write: every key in Set is written and every key in
// Delete removed.
type Batch struct {
	Set    map[string]string
	Delete []string
}

// TokenSealer encrypts access tokens at rest.
type TokenSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// CodeGuard enforces at-most-one exchange per authorization code.
type CodeGuard interface {
	// Claim returns false when the code has already been claimed.
	Claim(ctx context.Context, code string) (bool, error)
}
