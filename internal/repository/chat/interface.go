package chat

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// ChatRepository persists whole transcripts. Writes are scoped to an owner; reads by id are not,
// so callers must check domain.Chat.Owner before exposing a chat.
type ChatRepository interface {
	// Create stores a new chat with its messages in one transaction and returns its id.
	Create(ctx context.Context, owner string, messages []domain.Message) (uint, error)
	// Replace renames the chat, bumps its timestamp and swaps its messages for the given list,
	// all in one transaction. ErrChatNotFound is returned when no chat has this id and owner.
	Replace(ctx context.Context, chatID uint, owner string, messages []domain.Message) (*domain.Chat, error)
	FindByID(ctx context.Context, chatID uint) (*domain.Chat, error)
	FindByOwner(ctx context.Context, owner string) ([]domain.Chat, error)
	// FindRecentWithMessages returns the owner's most recently updated chats with their messages.
	FindRecentWithMessages(ctx context.Context, owner string, limit int) ([]domain.Chat, error)
}

// Logger defines the logging interface used by the repository
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
