package chat

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// TurnProvider drives and persists conversation turns for the caller on ctx.
type TurnProvider interface {
	// CompleteTurn asks the model for the next reply and stores history plus that reply.
	// A nil chatID creates a new chat; otherwise the chat's transcript is replaced.
	CompleteTurn(ctx context.Context, chatID *uint, history []domain.Message) (*TurnResult, error)
	// SaveTurn stores an already complete transcript with the same create-or-replace rules.
	SaveTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error)
}

// StreamProvider relays the model's reply fragment by fragment without storing anything.
type StreamProvider interface {
	StreamReply(ctx context.Context, history []domain.Message, onDelta func(string) error) error
}

// ReadProvider serves the caller's own chats. Foreign and absent chats are indistinguishable.
type ReadProvider interface {
	GetChat(ctx context.Context, chatID uint) (*domain.Chat, error)
	GetMessages(ctx context.Context, chatID uint) ([]domain.Message, error)
	ListChats(ctx context.Context) ([]domain.Chat, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Chat, error)
}

// Service combines all chat capabilities
type Service interface {
	TurnProvider
	StreamProvider
	ReadProvider
}
