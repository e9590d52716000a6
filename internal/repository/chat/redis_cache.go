package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/iyunix/go-chatsync/internal/domain"
)

type RedisChatCache struct {
	client *redis.Client
	ttl    time.Duration
	logger Logger
}

func NewRedisChatCache(client *redis.Client, ttl time.Duration, logger Logger) *RedisChatCache {
	return &RedisChatCache{client: client, ttl: ttl, logger: logger}
}

func chatCacheKey(chatID uint) string {
	return fmt.Sprintf("chat:%d", chatID)
}

func (c *RedisChatCache) Get(ctx context.Context, chatID uint) (*domain.Chat, bool) {
	data, err := c.client.Get(ctx, chatCacheKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("chat cache read failed", "chat_id", chatID, "error", err)
		return nil, false
	}

	chat, err := decodeChat(data)
	if err != nil {
		c.logger.Warn("chat cache entry corrupt", "chat_id", chatID, "error", err)
		c.Invalidate(ctx, chatID)
		return nil, false
	}
	return chat, true
}

func (c *RedisChatCache) Set(ctx context.Context, chat *domain.Chat) {
	data, err := encodeChat(chat)
	if err != nil {
		c.logger.Warn("chat cache encode failed", "chat_id", chat.ID, "error", err)
		return
	}
	if err := c.client.Set(ctx, chatCacheKey(chat.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("chat cache write failed", "chat_id", chat.ID, "error", err)
	}
}

func (c *RedisChatCache) Invalidate(ctx context.Context, chatID uint) {
	if err := c.client.Del(ctx, chatCacheKey(chatID)).Err(); err != nil {
		c.logger.Warn("chat cache invalidation failed", "chat_id", chatID, "error", err)
	}
}
