package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iyunix/go-chatsync/internal/domain"
	chatrepo "github.com/iyunix/go-chatsync/internal/repository/chat"
	"github.com/iyunix/go-chatsync/internal/services/ai"
)

// ChatService is the completion orchestrator. Every entry point resolves identity through the gate first.
type ChatService struct {
	config   *Config
	gate     *Gate
	chats    chatrepo.ChatRepository
	provider ai.CompletionProvider
	logger   Logger
}

var _ Service = (*ChatService)(nil)

func NewChatService(config *Config, gate *Gate, chats chatrepo.ChatRepository, provider ai.CompletionProvider, logger Logger) (*ChatService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if gate == nil || chats == nil || provider == nil || logger == nil {
		return nil, fmt.Errorf("chat service requires gate, repository, provider and logger")
	}
	return &ChatService{config: config, gate: gate, chats: chats, provider: provider, logger: logger}, nil
}

func (s *ChatService) CompleteTurn(ctx context.Context, chatID *uint, history []domain.Message) (*TurnResult, error) {
	const op = "complete_turn"

	identity, err := s.gate.RequireIdentity(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := validateHistory(op, history); err != nil {
		return nil, err
	}

	reply, err := s.provider.Complete(ctx, history)
	if err != nil {
		s.logger.Error("completion failed", "operation", op, "history_length", len(history), "error", err)
		return nil, NewInferenceError(op, err)
	}
	if s.config.TrimReplies {
		reply = strings.TrimSpace(reply)
	}

	next := append(domain.CloneTranscript(history), domain.AssistantMessage(reply))
	return s.persist(ctx, op, identity, chatID, next)
}

func (s *ChatService) SaveTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error) {
	const op = "save_turn"

	identity, err := s.gate.RequireIdentity(ctx, op)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateTranscript(messages); err != nil {
		return nil, NewValidationError(op, err.Error())
	}
	return s.persist(ctx, op, identity, chatID, domain.CloneTranscript(messages))
}

// persist creates a chat when chatID is nil and replaces it otherwise. A replace that matches no chat
// owned by identity fails with FORBIDDEN rather than creating a new chat under a stale id.
func (s *ChatService) persist(ctx context.Context, op, identity string, chatID *uint, messages []domain.Message) (*TurnResult, error) {
	if chatID == nil {
		id, err := s.chats.Create(ctx, identity, messages)
		if err != nil {
			return nil, NewStorageError(op, 0, err)
		}
		s.logger.Info("chat created", "operation", op, "chat_id", id, "message_count", len(messages))
		return &TurnResult{ID: id, Messages: messages}, nil
	}

	updated, err := s.chats.Replace(ctx, *chatID, identity, messages)
	if errors.Is(err, chatrepo.ErrChatNotFound) {
		s.logger.Warn("replace rejected", "operation", op, "chat_id", *chatID)
		return nil, NewForbiddenError(op, *chatID)
	}
	if err != nil {
		return nil, NewStorageError(op, *chatID, err)
	}
	s.logger.Info("chat replaced", "operation", op, "chat_id", updated.ID, "message_count", len(updated.Messages))
	return &TurnResult{ID: updated.ID, Messages: updated.Messages}, nil
}

func (s *ChatService) GetChat(ctx context.Context, chatID uint) (*domain.Chat, error) {
	return s.ownedChat(ctx, "get_chat", chatID)
}

func (s *ChatService) GetMessages(ctx context.Context, chatID uint) ([]domain.Message, error) {
	chat, err := s.ownedChat(ctx, "get_messages", chatID)
	if err != nil {
		return nil, err
	}
	return chat.Messages, nil
}

// ownedChat loads a chat and applies the ownership check. Absent and foreign chats return the same error.
func (s *ChatService) ownedChat(ctx context.Context, op string, chatID uint) (*domain.Chat, error) {
	identity, err := s.gate.RequireIdentity(ctx, op)
	if err != nil {
		return nil, err
	}

	chat, err := s.chats.FindByID(ctx, chatID)
	if errors.Is(err, chatrepo.ErrChatNotFound) {
		return nil, NewNotFoundError(op, chatID)
	}
	if err != nil {
		return nil, NewStorageError(op, chatID, err)
	}
	if !s.gate.Owns(identity, chat) {
		s.logger.Warn("foreign chat access", "operation", op, "chat_id", chatID)
		return nil, NewNotFoundError(op, chatID)
	}
	return chat, nil
}

func (s *ChatService) ListChats(ctx context.Context) ([]domain.Chat, error) {
	const op = "list_chats"

	identity, err := s.gate.RequireIdentity(ctx, op)
	if err != nil {
		return nil, err
	}
	chats, err := s.chats.FindByOwner(ctx, identity)
	if err != nil {
		return nil, NewStorageError(op, 0, err)
	}
	return chats, nil
}

// ListRecent returns the caller's most recently updated chats with messages.
// A non-positive limit uses the configured default; larger limits are capped.
func (s *ChatService) ListRecent(ctx context.Context, limit int) ([]domain.Chat, error) {
	const op = "list_recent"

	identity, err := s.gate.RequireIdentity(ctx, op)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.config.RecapLimit
	}
	if limit > MaxRecapLimit {
		limit = MaxRecapLimit
	}

	chats, err := s.chats.FindRecentWithMessages(ctx, identity, limit)
	if err != nil {
		return nil, NewStorageError(op, 0, err)
	}
	return chats, nil
}

func validateHistory(op string, history []domain.Message) error {
	if len(history) == 0 {
		return NewValidationError(op, "Messages array is required")
	}
	if err := domain.ValidateTranscript(history); err != nil {
		return NewValidationError(op, err.Error())
	}
	return nil
}
