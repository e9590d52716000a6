package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/repository/message"
	"gorm.io/gorm"
)

var ErrChatNotFound = errors.New("chat not found")

const maxRecentChats = 100

type gormChatRepository struct {
	db          *gorm.DB
	messageRepo message.MessageRepository
	logger      Logger
}

func NewChatRepository(db *gorm.DB, messageRepo message.MessageRepository, logger Logger) ChatRepository {
	return &gormChatRepository{db: db, messageRepo: messageRepo, logger: logger}
}

// Migrate creates or updates the chats and messages tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Chat{}, &message.Record{})
}

func (r *gormChatRepository) Create(ctx context.Context, owner string, messages []domain.Message) (uint, error) {
	if err := validateWrite(owner, messages); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}

	chat := &domain.Chat{Owner: owner, Name: domain.DeriveName(messages)}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("inserting chat: %w", err)
		}
		return r.messageRepo.WithTx(tx).InsertAll(ctx, chat.ID, messages)
	})
	if err != nil {
		r.logger.Error("chat creation failed", "component", "ChatRepository", "message_count", len(messages), "error", err)
		return 0, fmt.Errorf("database error creating chat: %w", err)
	}

	r.logger.Info("chat created", "component", "ChatRepository", "chat_id", chat.ID, "message_count", len(messages))
	return chat.ID, nil
}

func (r *gormChatRepository) Replace(ctx context.Context, chatID uint, owner string, messages []domain.Message) (*domain.Chat, error) {
	if chatID == 0 {
		return nil, ErrChatNotFound
	}
	if err := validateWrite(owner, messages); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var updated *domain.Chat
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Chat{}).
			Where("id = ? AND owner = ?", chatID, owner).
			Updates(map[string]interface{}{
				"name":       domain.DeriveName(messages),
				"updated_at": tx.NowFunc(),
			})
		if result.Error != nil {
			return fmt.Errorf("updating chat: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}

		messageRepo := r.messageRepo.WithTx(tx)
		if _, err := messageRepo.DeleteByChatID(ctx, chatID); err != nil {
			return err
		}
		if err := messageRepo.InsertAll(ctx, chatID, messages); err != nil {
			return err
		}

		chat, err := r.loadChat(ctx, tx, chatID)
		if err != nil {
			return err
		}
		updated = chat
		return nil
	})
	if errors.Is(err, ErrChatNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		r.logger.Error("chat replace failed", "component", "ChatRepository", "chat_id", chatID, "error", err)
		return nil, fmt.Errorf("database error replacing chat: %w", err)
	}

	r.logger.Info("chat replaced", "component", "ChatRepository", "chat_id", chatID, "message_count", len(messages))
	return updated, nil
}

func (r *gormChatRepository) FindByID(ctx context.Context, chatID uint) (*domain.Chat, error) {
	if chatID == 0 {
		return nil, ErrChatNotFound
	}
	chat, err := r.loadChat(ctx, r.db, chatID)
	if err != nil && !errors.Is(err, ErrChatNotFound) {
		r.logger.Error("chat lookup failed", "component", "ChatRepository", "chat_id", chatID, "error", err)
	}
	return chat, err
}

func (r *gormChatRepository) FindByOwner(ctx context.Context, owner string) ([]domain.Chat, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("invalid owner")
	}

	chats := []domain.Chat{}
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("updated_at DESC, id DESC").
		Find(&chats).Error
	if err != nil {
		r.logger.Error("chat listing failed", "component", "ChatRepository", "error", err)
		return nil, fmt.Errorf("database error fetching chats: %w", err)
	}
	return chats, nil
}

func (r *gormChatRepository) FindRecentWithMessages(ctx context.Context, owner string, limit int) ([]domain.Chat, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, errors.New("invalid owner")
	}
	if limit <= 0 || limit > maxRecentChats {
		return nil, fmt.Errorf("invalid limit: must be between 1 and %d", maxRecentChats)
	}

	chats := []domain.Chat{}
	err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("updated_at DESC, id DESC").
		Limit(limit).
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("database error fetching recent chats: %w", err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	ids := make([]uint, len(chats))
	for i := range chats {
		ids[i] = chats[i].ID
	}
	grouped, err := r.messageRepo.FindByChatIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		chats[i].Messages = grouped[chats[i].ID]
		if chats[i].Messages == nil {
			chats[i].Messages = []domain.Message{}
		}
	}
	return chats, nil
}

// loadChat reads a chat and its messages through db, which may be a transaction.
func (r *gormChatRepository) loadChat(ctx context.Context, db *gorm.DB, chatID uint) (*domain.Chat, error) {
	var chat domain.Chat
	err := db.WithContext(ctx).First(&chat, chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error fetching chat: %w", err)
	}

	messages, err := r.messageRepo.WithTx(db).FindByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	chat.Messages = messages
	return &chat, nil
}

func validateWrite(owner string, messages []domain.Message) error {
	if strings.TrimSpace(owner) == "" {
		return errors.New("owner is required")
	}
	return domain.ValidateTranscript(messages)
}
