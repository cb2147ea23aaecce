package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Discord authorization codes expire after ten minutes; remember them a
// little longer than that.
const codeTTL = 15 * time.Minute

// CodeGuard records claimed OAuth authorization codes so each code is
// exchanged at most once across all replicas.
// Key format: oauth_code:<sha256(code)>
type CodeGuard struct {
	client *redis.Client
}

func NewCodeGuard(client *redis.Client) *CodeGuard {
	return &CodeGuard{client: client}
}

// Claim atomically marks code as used. It returns false if it already was.
func (g *CodeGuard) Claim(ctx context.Context, code string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(code), "1", codeTTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim oauth code: %w", err)
	}
	return ok, nil
}

func (g *CodeGuard) key(code string) string {
	sum := sha256.Sum256([]byte(code))
	return "oauth_code:" + hex.EncodeToString(sum[:])
}
