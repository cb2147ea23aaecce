package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// Storage implements ports.SessionStorage on the session_kv table. With a
// positive TTL every write pushes the row's expiry forward and expired rows
// read as missing.
type Storage struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewStorage(db *sql.DB, ttl time.Duration) *Storage {
	return &Storage{db: db, ttl: ttl, now: time.Now}
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_kv WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key, s.now().Unix(),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %s: %w", key, err)
	}
	return value, true, nil
}

// Apply writes the batch in one transaction.
func (s *Storage) Apply(ctx context.Context, b ports.Batch) error {
	if len(b.Set) == 0 && len(b.Delete) == 0 {
		return nil
	}
	var expiresAt sql.NullInt64
	if s.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(s.ttl).Unix(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite apply: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range b.Set {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_kv (key, value, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
			k, v, expiresAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite set %s: %w", k, err)
		}
	}
	for _, k := range b.Delete {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("sqlite delete %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("sqlite delete %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// DeleteExpired removes expired rows and claimed codes older than codeTTL.
func (s *Storage) DeleteExpired(ctx context.Context) (int64, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite delete expired: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_codes WHERE claimed_at <= ?`, now.Add(-codeTTL).Unix()); err != nil {
		return 0, fmt.Errorf("sqlite delete expired codes: %w", err)
	}
	return res.RowsAffected()
}

// Ping reports whether the database is usable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const codeTTL = 15 * time.Minute

// CodeGuard records claimed authorization codes in the oauth_codes table.
type CodeGuard struct {
	db  *sql.DB
	now func() time.Time
}

func NewCodeGuard(db *sql.DB) *CodeGuard {
	return &CodeGuard{db: db, now: time.Now}
}

func (g *CodeGuard) Claim(ctx context.Context, code string) (bool, error) {
	sum := sha256.Sum256([]byte(code))
	res, err := g.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO oauth_codes (code_hash, claimed_at) VALUES (?, ?)`,
		hex.EncodeToString(sum[:]), g.now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("claim oauth code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim oauth code: %w", err)
	}
	return n == 1, nil
}
