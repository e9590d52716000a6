package chat

import (
	"context"
	"errors"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// errDeltaRejected marks failures raised by the caller's onDelta so they are not reported as inference errors.
type errDeltaRejected struct{ err error }

func (e errDeltaRejected) Error() string { return e.err.Error() }
func (e errDeltaRejected) Unwrap() error { return e.err }

// StreamReply relays the model's reply fragments in arrival order. Nothing is persisted: the caller
// reassembles the text and stores it through SaveTurn.
func (s *ChatService) StreamReply(ctx context.Context, history []domain.Message, onDelta func(string) error) error {
	const op = "stream_reply"

	if _, err := s.gate.RequireIdentity(ctx, op); err != nil {
		return err
	}
	if err := validateHistory(op, history); err != nil {
		return err
	}

	fragments := 0
	err := s.provider.StreamComplete(ctx, history, func(delta string) error {
		fragments++
		if err := onDelta(delta); err != nil {
			return errDeltaRejected{err: err}
		}
		return nil
	})
	if err == nil {
		s.logger.Debug("stream finished", "operation", op, "fragments", fragments)
		return nil
	}

	var rejected errDeltaRejected
	if errors.As(err, &rejected) {
		s.logger.Warn("stream consumer stopped", "operation", op, "fragments", fragments, "error", rejected.err)
		return rejected.err
	}
	s.logger.Error("stream failed", "operation", op, "fragments", fragments, "error", err)
	return NewInferenceError(op, err)
}
