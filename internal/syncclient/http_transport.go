package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// StatusError is a non-2xx answer from the chat server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// ChatSummary is one entry of the chat list.
type ChatSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Label string `json:"label"`
}

// HTTPTransport talks to the chat server's JSON API with a bearer token.
type HTTPTransport struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Transport = (*HTTPTransport)(nil)

func NewHTTPTransport(baseURL, token string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: client}
}

type turnRequest struct {
	ChatID   *uint            `json:"chatId,omitempty"`
	Messages []domain.Message `json:"messages"`
}

func (t *HTTPTransport) CompleteTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error) {
	var result TurnResult
	if err := t.doJSON(ctx, http.MethodPost, "/api/turn", turnRequest{ChatID: chatID, Messages: messages}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) SaveTurn(ctx context.Context, chatID *uint, messages []domain.Message) (*TurnResult, error) {
	var result TurnResult
	if err := t.doJSON(ctx, http.MethodPost, "/api/turn/save", turnRequest{ChatID: chatID, Messages: messages}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (t *HTTPTransport) StreamReply(ctx context.Context, messages []domain.Message) (FragmentStream, error) {
	resp, err := t.send(ctx, http.MethodPost, "/api/turn/stream", turnRequest{Messages: messages})
	if err != nil {
		return nil, err
	}
	return &bodyStream{body: resp.Body, buf: make([]byte, 4096)}, nil
}

func (t *HTTPTransport) GetChat(ctx context.Context, chatID uint) (*domain.Chat, error) {
	var chat domain.Chat
	if err := t.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/chats/%d", chatID), nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (t *HTTPTransport) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var chats []ChatSummary
	if err := t.doJSON(ctx, http.MethodGet, "/api/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (t *HTTPTransport) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := t.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// send performs the request and turns non-2xx answers into a StatusError.
func (t *HTTPTransport) send(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	return resp, nil
}

// bodyStream yields the raw response body as text fragments, never splitting a UTF-8 sequence.
// A body that ends without its terminating chunk surfaces as io.ErrUnexpectedEOF, not io.EOF.
type bodyStream struct {
	body  io.ReadCloser
	buf   []byte
	carry []byte
	done  bool
	err   error
}

func (b *bodyStream) Next() (string, error) {
	for {
		if b.err != nil {
			return "", b.err
		}
		if b.done {
			if len(b.carry) > 0 {
				rest := string(b.carry)
				b.carry = nil
				return rest, nil
			}
			return "", io.EOF
		}

		n, err := b.body.Read(b.buf)
		if n > 0 {
			data := append(b.carry, b.buf[:n]...)
			cut := completePrefix(data)
			b.carry = append([]byte(nil), data[cut:]...)
			if cut > 0 {
				if err == io.EOF {
					b.done = true
				} else if err != nil {
					b.err = err
				}
				return string(data[:cut]), nil
			}
		}
		if err == io.EOF {
			b.done = true
			continue
		}
		if err != nil {
			return "", err
		}
	}
}

func (b *bodyStream) Close() error {
	return b.body.Close()
}

// completePrefix returns the length of the longest prefix of data that does not end mid-rune.
func completePrefix(data []byte) int {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if utf8.RuneStart(data[i]) {
			if utf8.FullRune(data[i:]) {
				return len(data)
			}
			return i
		}
	}
	return len(data)
}
