package chat

import "github.com/iyunix/go-chatsync/internal/domain"

// Logger defines the logging interface used across chat services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

// TurnResult is the authoritative transcript after a persisted turn.
type TurnResult struct {
	ID       uint             `json:"id"`
	Messages []domain.Message `json:"messages"`
}
