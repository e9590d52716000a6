package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// ChatCache holds recently read chats keyed by id. Misses and cache failures are indistinguishable
// to callers; the database stays the source of truth.
type ChatCache interface {
	Get(ctx context.Context, chatID uint) (*domain.Chat, bool)
	Set(ctx context.Context, chat *domain.Chat)
	Invalidate(ctx context.Context, chatID uint)
}

type cachedChatRepository struct {
	ChatRepository
	cache  ChatCache
	logger Logger
}

// NewCachedChatRepository serves FindByID from cache and drops the entry after every replace attempt.
// A read racing a replace can repopulate the old transcript until the entry expires.
func NewCachedChatRepository(inner ChatRepository, cache ChatCache, logger Logger) ChatRepository {
	return &cachedChatRepository{ChatRepository: inner, cache: cache, logger: logger}
}

func (r *cachedChatRepository) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
	if chat, ok := r.cache.Get(ctx, chatID); ok {
		r.logger.Debug("chat cache hit", "chat_id", chatID)
		return chat, nil
	}

	chat, err := r.ChatRepository.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(ctx, chat)
	return chat, nil
}

func (r *cachedChatRepository) Replace(ctx context.Context, chatID uint, owner string, messages []domain.Message) (*domain.Chat, error) {
	chat, err := r.ChatRepository.Replace(ctx, chatID, owner, messages)
	r.cache.Invalidate(ctx, chatID)
	return chat, err
}

// cacheEntry keeps the owner, which domain.Chat leaves out of its JSON form.
type cacheEntry struct {
	ID        uint             `json:"id"`
	Owner     string           `json:"owner"`
	Name      string           `json:"name"`
	UpdatedAt time.Time        `json:"updated_at"`
	Messages  []domain.Message `json:"messages"`
}

func encodeChat(chat *domain.Chat) ([]byte, error) {
	return json.Marshal(cacheEntry{
		ID:        chat.ID,
		Owner:     chat.Owner,
		Name:      chat.Name,
		UpdatedAt: chat.UpdatedAt,
		Messages:  chat.Messages,
	})
}

func decodeChat(data []byte) (*domain.Chat, error) {
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	if entry.Messages == nil {
		entry.Messages = []domain.Message{}
	}
	return &domain.Chat{
		ID:        entry.ID,
		Owner:     entry.Owner,
		Name:      entry.Name,
		UpdatedAt: entry.UpdatedAt,
		Messages:  entry.Messages,
	}, nil
}
