package syncclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// Session holds one chat's client-side state: confirmed messages plus any optimistic turn in flight.
// Only one turn runs at a time; Submit refuses new input while busy.
type Session struct {
	transport Transport
	navigator Navigator
	mode      Mode
	logger    Logger
	onChange  func(Snapshot)

	mu           sync.Mutex
	messages     []domain.Message
	pendingInput string
	busy         bool
	chatID       *uint
	state        State
}

type Option func(*Session)

// WithNavigator sets the navigator used after a chat's first turn. Without one the session adopts
// the returned transcript directly.
func WithNavigator(n Navigator) Option {
	return func(s *Session) { s.navigator = n }
}

// WithObserver registers fn to receive a snapshot after every state change.
func WithObserver(fn func(Snapshot)) Option {
	return func(s *Session) { s.onChange = fn }
}

func WithMode(mode Mode) Option {
	return func(s *Session) { s.mode = mode }
}

func NewSession(transport Transport, logger Logger, opts ...Option) *Session {
	s := &Session{
		transport: transport,
		logger:    logger,
		messages:  []domain.Message{},
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) SetInput(text string) {
	s.mu.Lock()
	s.pendingInput = text
	s.mu.Unlock()
	s.notify()
}

// Adopt replaces local state with a chat loaded from the server.
func (s *Session) Adopt(chatID uint, messages []domain.Message) {
	s.mu.Lock()
	s.chatID = &chatID
	s.messages = domain.CloneTranscript(messages)
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Messages:     domain.CloneTranscript(s.messages),
		PendingInput: s.pendingInput,
		Busy:         s.busy,
		State:        s.state,
	}
	if s.chatID != nil {
		id := *s.chatID
		snap.ChatID = &id
	}
	return snap
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.Snapshot())
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify()
}

// Submit sends the pending input as a new turn. It returns ErrBusy while another turn is in flight
// and ErrEmptyInput for blank input, without touching state. On any failure the messages and input
// are restored to what they were before the call. The session is idle again when Submit returns.
func (s *Session) Submit(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	text := strings.TrimSpace(s.pendingInput)
	if text == "" {
		s.mu.Unlock()
		return ErrEmptyInput
	}

	savedMessages := domain.CloneTranscript(s.messages)
	savedInput := s.pendingInput
	var priorID *uint
	if s.chatID != nil {
		id := *s.chatID
		priorID = &id
	}

	s.busy = true
	s.state = StateSending
	s.messages = append(domain.CloneTranscript(s.messages), domain.UserMessage(text))
	s.pendingInput = ""
	history := domain.CloneTranscript(s.messages)
	s.mu.Unlock()
	s.notify()

	defer func() {
		s.mu.Lock()
		if err != nil {
			s.messages = savedMessages
			s.pendingInput = savedInput
		}
		s.busy = false
		s.state = StateIdle
		s.mu.Unlock()
		s.notify()
	}()

	var result *TurnResult
	if s.mode == ModeIncremental {
		result, err = s.streamTurn(ctx, priorID, history)
	} else {
		result, err = s.transport.CompleteTurn(ctx, priorID, history)
	}
	if err != nil {
		s.logger.Warn("turn failed, rolled back", "chat_id", chatIDField(priorID), "error", err)
		return err
	}

	return s.reconcile(ctx, priorID, result)
}

// streamTurn consumes fragments into a trailing assistant message, then persists the reassembled transcript.
func (s *Session) streamTurn(ctx context.Context, priorID *uint, history []domain.Message) (*TurnResult, error) {
	stream, err := s.transport.StreamReply(ctx, history)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	s.setState(StateStreaming)
	started := false
	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading reply stream: %w", err)
		}
		if fragment == "" {
			continue
		}

		s.mu.Lock()
		if !started {
			s.messages = append(s.messages, domain.AssistantMessage(""))
			started = true
		}
		s.messages[len(s.messages)-1].Content += fragment
		s.mu.Unlock()
		s.notify()
	}

	s.mu.Lock()
	if !started {
		s.messages = append(s.messages, domain.AssistantMessage(""))
	}
	s.state = StatePersisting
	full := domain.CloneTranscript(s.messages)
	s.mu.Unlock()
	s.notify()

	return s.transport.SaveTurn(ctx, priorID, full)
}

// reconcile is the single point where the server's answer overrides local state. A chat's first turn
// only records the id and navigates; later turns replace the messages with the stored transcript.
// If navigation fails the stored transcript is adopted directly, so the next turn never sends a
// history that is missing the reply already saved under this id.
func (s *Session) reconcile(ctx context.Context, priorID *uint, result *TurnResult) error {
	id := result.ID

	if priorID == nil && s.navigator != nil {
		s.mu.Lock()
		s.chatID = &id
		s.mu.Unlock()
		s.logger.Info("chat created", "chat_id", id)

		err := s.navigator.Navigate(ctx, id)
		if err == nil {
			return nil
		}
		s.logger.Error("navigation failed, adopting stored transcript", "chat_id", id, "error", err)
	}

	s.mu.Lock()
	s.chatID = &id
	s.messages = domain.CloneTranscript(result.Messages)
	s.mu.Unlock()
	return nil
}

func chatIDField(id *uint) interface{} {
	if id == nil {
		return "new"
	}
	return *id
}
