package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/models"
)

const (
	conversationPrefix     = "conv:"
	DefaultConversationTTL = 15 * time.Minute
)

// ConversationStore garde l'état des échanges guidés par chat.
// Chaque sauvegarde repousse l'expiration ; une conversation expirée est simplement oubliée.
type ConversationStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewConversationStore(rdb *redis.Client, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultConversationTTL
	}
	return &ConversationStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func conversationKey(chatID int64) string {
	return conversationPrefix + strconv.FormatInt(chatID, 10)
}

// Get retourne nil si aucun échange n'est en cours
func (s *ConversationStore) Get(ctx context.Context, chatID int64) (*models.Conversation, error) {
	data, err := s.rdb.Get(ctx, conversationKey(chatID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lecture conversation %d: %w", chatID, err)
	}

	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		// État illisible : on l'abandonne plutôt que de bloquer le chat
		_ = s.rdb.Del(ctx, conversationKey(chatID)).Err()
		return nil, nil
	}
	return &conv, nil
}

func (s *ConversationStore) Save(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = s.now()
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encodage conversation: %w", err)
	}
	if err := s.rdb.Set(ctx, conversationKey(conv.ChatID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("sauvegarde conversation %d: %w", conv.ChatID, err)
	}
	return nil
}

func (s *ConversationStore) Clear(ctx context.Context, chatID int64) error {
	return s.rdb.Del(ctx, conversationKey(chatID)).Err()
}
