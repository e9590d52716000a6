package syncclient

import (
	"context"
	"fmt"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// ChatLoader fetches a chat's stored state.
type ChatLoader interface {
	GetChat(ctx context.Context, chatID uint) (*domain.Chat, error)
}

// ViewNavigator opens a chat's view by loading it from the server and adopting it into Session.
type ViewNavigator struct {
	Loader  ChatLoader
	Session *Session
}

func (n *ViewNavigator) Navigate(ctx context.Context, chatID uint) error {
	chat, err := n.Loader.GetChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("loading chat %d: %w", chatID, err)
	}
	n.Session.Adopt(chat.ID, chat.Messages)
	return nil
}
