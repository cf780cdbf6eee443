package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// --- Rate Limiting ---

// IncrementRateLimit incrémente le compteur ; la fenêtre est armée au premier appel seulement
func IncrementRateLimit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int64, error) {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// --- Maintenance ---

// DeletePattern supprime toutes les clés correspondant au motif (SCAN, pas KEYS)
func DeletePattern(ctx context.Context, rdb *redis.Client, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("scan %s: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return deleted, fmt.Errorf("suppression %s: %w", pattern, err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// ResetEphemeral vide les états de conversation et les invites propriétaire
func ResetEphemeral(ctx context.Context, rdb *redis.Client) error {
	for _, pattern := range []string{conversationPrefix + "*", promptPrefix + "*"} {
		n, err := DeletePattern(ctx, rdb, pattern)
		if err != nil {
			return err
		}
		log.Printf("🧹 %d clés Redis supprimées (%s)", n, pattern)
	}
	return nil
}
