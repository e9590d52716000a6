package ai

import (
	"context"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// CompletionProvider is the inference capability. History is sent verbatim as role/content pairs.
type CompletionProvider interface {
	// Complete returns the whole assistant reply at once.
	Complete(ctx context.Context, history []domain.Message) (string, error)
	// StreamComplete calls onDelta once per non-empty fragment, in arrival order, and returns
	// when the stream ends. An error from onDelta stops the stream and is returned as is.
	StreamComplete(ctx context.Context, history []domain.Message, onDelta func(string) error) error
}
