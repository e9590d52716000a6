package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/domain"
)

func TestHTTPTransportCompleteTurn(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/turn", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req turnRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.ChatID)
		assert.Equal(t, uint(4), *req.ChatID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TurnResult{ID: 4, Messages: append(req.Messages, domain.AssistantMessage("ok"))})
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL+"/", "tok", server.Client())
	id := uint(4)
	result, err := transport.CompleteTurn(context.Background(), &id, []domain.Message{domain.UserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, uint(4), result.ID)
	assert.Equal(t, []domain.Message{domain.UserMessage("q"), domain.AssistantMessage("ok")}, result.Messages)
}

func TestHTTPTransportStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Forbidden"}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(server.URL, "tok", server.Client())
	_, err := transport.SaveTurn(context.Background(), nil, []domain.Message{})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, "Forbidden", statusErr.Message)
}

func TestHTTPTransportStreamReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/turn/stream", r.URL.Path)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		flusher := w.(http.Flusher)
		for _, part := range []string{"Hel", "lo, ", "world!"} {
			_, _ = w.Write([]byte(part))
			flusher.Flush()
		}
	}))
	defer server.Close()

	stream, err := NewHTTPTransport(server.URL, "tok", server.Client()).StreamReply(context.Background(), []domain.Message{domain.UserMessage("x")})
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(fragment)
	}
	assert.Equal(t, "Hello, world!", sb.String())
}

type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func (c *chunkReader) Close() error { return nil }

func TestBodyStreamDoesNotSplitRunes(t *testing.T) {
	text := []byte("héllo 世界")
	// split inside "é" and inside "世"
	chunks := [][]byte{text[:2], text[2:8], text[8:]}
	stream := &bodyStream{body: &chunkReader{chunks: chunks}, buf: make([]byte, 64)}

	var fragments []string
	for {
		f, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		fragments = append(fragments, f)
	}

	assert.Equal(t, "héllo 世界", strings.Join(fragments, ""))
	for _, f := range fragments {
		assert.True(t, strings.ToValidUTF8(f, "?") == f, "fragment %q is not valid UTF-8", f)
	}
}
