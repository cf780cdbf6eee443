package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Live relaie les changements de panier et de commande vers les clients web via pub/sub
type Live struct {
	rdb *redis.Client
}

func NewLive(rdb *redis.Client) *Live {
	return &Live{rdb: rdb}
}

func CartChannel(sessionKey string) string  { return "cart:" + sessionKey }
func OrderChannel(sessionKey string) string { return "orders:" + sessionKey }

func (l *Live) PublishCartUpdate(ctx context.Context, sessionKey string) error {
	return l.rdb.Publish(ctx, CartChannel(sessionKey), "updated").Err()
}

// PublishOrderUpdate retourne le nombre d'abonnés ayant reçu le message
func (l *Live) PublishOrderUpdate(ctx context.Context, sessionKey string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("encodage événement commande: %w", err)
	}
	return l.rdb.Publish(ctx, OrderChannel(sessionKey), data).Result()
}

// Subscribe s'abonne aux canaux panier et commandes d'une session
func (l *Live) Subscribe(ctx context.Context, sessionKey string) *redis.PubSub {
	return l.rdb.Subscribe(ctx, CartChannel(sessionKey), OrderChannel(sessionKey))
}
