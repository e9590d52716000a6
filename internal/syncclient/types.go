package syncclient

import (
	"context"
	"errors"

	"github.com/iyunix/go-chatsync/internal/domain"
)

var (
	ErrBusy       = errors.New("a turn is already in flight")
	ErrEmptyInput = errors.New("input is empty")
)

type State string

const (
	StateIdle       State = "IDLE"
	StateSending    State = "SENDING"
	StateStreaming  State = "STREAMING"
	StatePersisting State = "PERSISTING"
)

// Mode selects how the assistant reply is delivered.
type Mode int

const (
	// ModeWhole asks the server to complete and persist the turn in one call.
	ModeWhole Mode = iota
	// ModeIncremental streams the reply, then persists the reassembled transcript.
	ModeIncremental
)

// TurnResult is the authoritative transcript returned after a persisted turn.
type TurnResult struct {
	ID       uint             `json:"id"`
	Messages []domain.Message `json:"messages"`
}

// FragmentStream is a finite, non-restartable sequence of reply fragments.
// Next returns io.EOF once the reply is complete.
type FragmentStream interface {
	Next() (string, error)
	Close() error
}

type Transport interface {
	CompleteTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error)
	StreamReply(ctx context.Context, messages []domain.Message) (FragmentStream, error)
	SaveTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error)
}

// Navigator moves the user to a chat's own view after its first turn is stored.
type Navigator interface {
	Navigate(ctx context.Context, chatID uint) error
}

// Snapshot is a copy of the session state handed to observers.
type Snapshot struct {
	Messages     []domain.Message
	PendingInput string
	Busy         bool
	ChatID       *uint
	State        State
}

// Logger defines the logging interface used by the session
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}
