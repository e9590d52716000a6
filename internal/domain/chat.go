// File: internal/domain/chat.go
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultChatName is used when a transcript has no user message.
	DefaultChatName = "New chat"
	// MaxChatNameLength is measured in characters, not bytes.
	MaxChatNameLength = 60

	menuLabelLength = 20
)

// Chat represents a single conversation thread owned by one identity.
type Chat struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Owner     string    `gorm:"size:320;not null;index:idx_chats_owner_updated,priority:1" json:"-"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `gorm:"index:idx_chats_owner_updated,priority:2" json:"updatedAt"`
	Messages  []Message `gorm:"-" json:"messages"`
}

// DeriveName builds the display name from the first user message: whitespace runs collapse
// to a single space and the result is cut to MaxChatNameLength characters.
func DeriveName(messages []Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		name := truncate(strings.Join(strings.Fields(m.Content), " "), MaxChatNameLength)
		if name == "" {
			return DefaultChatName
		}
		return name
	}
	return DefaultChatName
}

// MenuLabel is the short form shown in chat lists.
func MenuLabel(name string) string {
	trimmed := strings.TrimSpace(name)
	label := truncate(trimmed, menuLabelLength)
	if utf8.RuneCountInString(name) >= menuLabelLength {
		label += "..."
	}
	return label
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
