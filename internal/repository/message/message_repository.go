// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iyunix/go-chatsync/internal/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// Record is the stored form of a domain.Message. Position is the index within the transcript.
type Record struct {
	ID        uint        `gorm:"primarykey"`
	ChatID    uint        `gorm:"not null;index:idx_messages_chat_position,priority:1"`
	Position  int         `gorm:"not null;index:idx_messages_chat_position,priority:2"`
	Role      domain.Role `gorm:"size:16;not null"`
	Content   string      `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (Record) TableName() string {
	return "messages"
}

type gormMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: db}
}

func (r *gormMessageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &gormMessageRepository{db: tx}
}

// InsertAll writes messages in transcript order.
func (r *gormMessageRepository) InsertAll(ctx context.Context, chatID uint, messages []domain.Message) error {
	if chatID == 0 {
		return errors.New("invalid chat ID")
	}
	if len(messages) == 0 {
		return nil
	}

	records := make([]*Record, len(messages))
	for i, m := range messages {
		records[i] = &Record{ChatID: chatID, Position: i, Role: m.Role, Content: m.Content}
	}

	if err := r.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error; err != nil {
		return fmt.Errorf("database error inserting %d messages: %w", len(records), err)
	}
	return nil
}

func (r *gormMessageRepository) DeleteByChatID(ctx context.Context, chatID uint) (int64, error) {
	if chatID == 0 {
		return 0, errors.New("invalid chat ID")
	}

	result := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&Record{})
	if result.Error != nil {
		return 0, fmt.Errorf("database error deleting messages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *gormMessageRepository) FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error) {
	if chatID == 0 {
		return nil, errors.New("invalid chat ID")
	}

	var records []Record
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("position ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("database error fetching messages: %w", err)
	}

	messages := make([]domain.Message, len(records))
	for i, rec := range records {
		messages[i] = rec.toDomain()
	}
	return messages, nil
}

// FindByChatIDs loads the messages of several chats in one query and groups them by chat,
// keeping each chat's order.
func (r *gormMessageRepository) FindByChatIDs(ctx context.Context, chatIDs []uint) (map[uint][]domain.Message, error) {
	grouped := make(map[uint][]domain.Message, len(chatIDs))
	if len(chatIDs) == 0 {
		return grouped, nil
	}

	var records []Record
	err := r.db.WithContext(ctx).
		Where("chat_id IN ?", chatIDs).
		Order("chat_id ASC, position ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("database error fetching messages for %d chats: %w", len(chatIDs), err)
	}

	for _, rec := range records {
		grouped[rec.ChatID] = append(grouped[rec.ChatID], rec.toDomain())
	}
	return grouped, nil
}

func (rec Record) toDomain() domain.Message {
	return domain.Message{Role: rec.Role, Content: rec.Content}
}
