// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/domain"
	"gorm.io/gorm"
)

// MessageRepository stores the ordered message rows of a chat. It never commits on its own:
// callers that need atomicity bind it to a transaction with WithTx.
type MessageRepository interface {
	WithTx(tx *gorm.DB) MessageRepository
	InsertAll(ctx context.Context, chatID uint, messages []domain.Message) error
	DeleteByChatID(ctx context.Context, chatID uint) (int64, error)
	FindByChatID(ctx context.Context, chatID uint) ([]domain.Message, error)
	FindByChatIDs(ctx context.Context, chatIDs []uint) (map[uint][]domain.Message, error)
}
