// File: internal/domain/message.go
package domain

import "fmt"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single transcript entry. It has no identity beyond its position.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage and AssistantMessage are small constructors used across the client and server.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Validate checks the role. Empty content is allowed.
func (m Message) Validate() error {
	if !m.Role.IsValid() {
		return fmt.Errorf("invalid role %q", m.Role)
	}
	return nil
}

// ValidateTranscript checks every element of a transcript. Turn alternation is not enforced:
// optimistic client state may hold consecutive messages with the same role.
func ValidateTranscript(messages []Message) error {
	for i, m := range messages {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// CloneTranscript returns a copy that shares no backing array with messages.
func CloneTranscript(messages []Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}
