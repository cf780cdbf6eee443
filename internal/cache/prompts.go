package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	promptPrefix = "prompt:"
	PromptTTL    = 30 * 24 * time.Hour
)

// PromptStore mémorise le message d'invite envoyé au propriétaire pour chaque commande,
// afin de pouvoir l'éditer une fois la commande traitée.
type PromptStore struct {
	rdb *redis.Client
}

func NewPromptStore(rdb *redis.Client) *PromptStore {
	return &PromptStore{rdb: rdb}
}

func promptKey(orderID int64) string {
	return promptPrefix + strconv.FormatInt(orderID, 10)
}

func (s *PromptStore) Save(ctx context.Context, orderID, chatID int64, messageID int) error {
	value := fmt.Sprintf("%d:%d", chatID, messageID)
	return s.rdb.Set(ctx, promptKey(orderID), value, PromptTTL).Err()
}

// Get retourne ok=false si aucune invite n'est connue pour la commande
func (s *PromptStore) Get(ctx context.Context, orderID int64) (chatID int64, messageID int, ok bool, err error) {
	value, err := s.rdb.Get(ctx, promptKey(orderID)).Result()
	if err == redis.Nil {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}

	chatPart, msgPart, found := strings.Cut(value, ":")
	if !found {
		return 0, 0, false, fmt.Errorf("invite %d mal formée: %q", orderID, value)
	}
	chatID, err = strconv.ParseInt(chatPart, 10, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invite %d mal formée: %w", orderID, err)
	}
	messageID, err = strconv.Atoi(msgPart)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invite %d mal formée: %w", orderID, err)
	}
	return chatID, messageID, true, nil
}

func (s *PromptStore) Delete(ctx context.Context, orderID int64) error {
	return s.rdb.Del(ctx, promptKey(orderID)).Err()
}
