package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/auth"
	"github.com/iyunix/go-chatsync/internal/database"
	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/middleware"
	chatrepo "github.com/iyunix/go-chatsync/internal/repository/chat"
	"github.com/iyunix/go-chatsync/internal/repository/message"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

var testSecret = []byte("handler-secret")

type stubProvider struct {
	reply     string
	fragments []string
	err       error
}

func (s *stubProvider) Complete(ctx context.Context, history []domain.Message) (string, error) {
	return s.reply, s.err
}

func (s *stubProvider) StreamComplete(ctx context.Context, history []domain.Message, onDelta func(string) error) error {
	for _, f := range s.fragments {
		if err := onDelta(f); err != nil {
			return err
		}
	}
	return s.err
}

type testEnv struct {
	server *httptest.Server
	repo   chatrepo.ChatRepository
}

func newTestEnv(t *testing.T, provider *stubProvider) *testEnv {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, chatrepo.Migrate(db))

	logger := &services.NoOpLogger{}
	repo := chatrepo.NewChatRepository(db, message.NewMessageRepository(db), logger)
	svc, err := chat.NewChatService(chat.DefaultConfig(), chat.NewGate(nil), repo, provider, logger)
	require.NoError(t, err)

	r := mux.NewRouter()
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.NewIdentityMiddleware(testSecret, logger))
	NewChatHandler(svc, logger).RegisterRoutes(api, nil)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &testEnv{server: server, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path, identity, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if identity != "" {
		token, err := auth.GenerateJWT(identity, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestTurnEndpointCreatesThenReplaces(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "4"})

	resp := env.do(t, http.MethodPost, "/api/turn", "alice@example.com", `{"messages":[{"role":"user","content":"2+2?"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first chat.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.Equal(t, uint(1), first.ID)
	assert.Equal(t, []domain.Message{domain.UserMessage("2+2?"), domain.AssistantMessage("4")}, first.Messages)

	resp = env.do(t, http.MethodPost, "/api/turn", "alice@example.com",
		`{"chatId":1,"messages":[{"role":"user","content":"2+2?"},{"role":"assistant","content":"4"},{"role":"user","content":"and 3+3?"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var second chat.TurnResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	assert.Equal(t, uint(1), second.ID)
	assert.Len(t, second.Messages, 4)
}

func TestTurnEndpointErrors(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "ok"})
	_, err := env.repo.Create(context.Background(), "bob@example.com", []domain.Message{domain.UserMessage("bob's")})
	require.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/api/turn", "", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/turn", "alice@example.com", `{"chatId":1,"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/turn", "alice@example.com", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Messages array is required"}`, readBody(t, resp))

	resp = env.do(t, http.MethodPost, "/api/turn", "alice@example.com", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTurnEndpointInferenceFailure(t *testing.T) {
	env := newTestEnv(t, &stubProvider{err: errors.New("model offline")})

	resp := env.do(t, http.MethodPost, "/api/turn", "alice@example.com", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, readBody(t, resp), "model offline")
}

func TestSaveEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	resp := env.do(t, http.MethodPost, "/api/turn/save", "alice@example.com",
		`{"messages":[{"role":"user","content":"q"},{"role":"assistant","content":"Hello, world!"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, err := env.repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Hello, world!", stored.Messages[1].Content)

	resp = env.do(t, http.MethodPost, "/api/turn/save", "bob@example.com", `{"chatId":1,"messages":[]}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/turn/save", "alice@example.com", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubProvider{fragments: []string{"Hel", "lo, ", "world!"}})

	resp := env.do(t, http.MethodPost, "/api/turn/stream", "alice@example.com", `{"messages":[{"role":"user","content":"greet"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Hello, world!", readBody(t, resp))

	resp = env.do(t, http.MethodPost, "/api/turn/stream", "alice@example.com", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Messages array is required"}`, readBody(t, resp))

	resp = env.do(t, http.MethodPost, "/api/turn/stream", "", `{"messages":[{"role":"user","content":"greet"}]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/turn/stream", "", `{"messages":[]}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "identity is checked before the body")
}

func TestStreamEndpointFailureBeforeFirstFragment(t *testing.T) {
	env := newTestEnv(t, &stubProvider{err: errors.New("no stream")})

	resp := env.do(t, http.MethodPost, "/api/turn/stream", "alice@example.com", `{"messages":[{"role":"user","content":"greet"}]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestChatReadsAreOwnershipOpaque(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	id, err := env.repo.Create(context.Background(), "alice@example.com", []domain.Message{domain.UserMessage("secret plan")})
	require.NoError(t, err)

	for _, suffix := range []string{"", "/messages"} {
		foreign := env.do(t, http.MethodGet, "/api/chats/1"+suffix, "bob@example.com", "")
		missing := env.do(t, http.MethodGet, "/api/chats/404"+suffix, "bob@example.com", "")
		huge := env.do(t, http.MethodGet, "/api/chats/99999999999"+suffix, "bob@example.com", "")

		foreignBody, missingBody, hugeBody := readBody(t, foreign), readBody(t, missing), readBody(t, huge)
		assert.Equal(t, http.StatusNotFound, foreign.StatusCode)
		assert.Equal(t, foreign.StatusCode, missing.StatusCode)
		assert.Equal(t, foreign.StatusCode, huge.StatusCode)
		assert.Equal(t, missingBody, foreignBody)
		assert.Equal(t, missingBody, hugeBody)
	}

	resp := env.do(t, http.MethodGet, "/api/chats/1", "alice@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Chat
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "secret plan", got.Name)
	assert.Empty(t, got.Owner, "owner is not serialized")
	assert.Equal(t, []domain.Message{domain.UserMessage("secret plan")}, got.Messages)

	resp = env.do(t, http.MethodGet, "/api/chats/1/messages", "alice@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"role":"user","content":"secret plan"}]`, readBody(t, resp))
}

func TestListChatsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	_, err := env.repo.Create(context.Background(), "alice@example.com", []domain.Message{domain.UserMessage("a very long question about nothing")})
	require.NoError(t, err)
	_, err = env.repo.Create(context.Background(), "bob@example.com", []domain.Message{domain.UserMessage("bob")})
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/api/chats", "alice@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []chatSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "a very long question about nothing", summaries[0].Name)
	assert.Equal(t, "a very long question...", summaries[0].Label)
	assert.False(t, summaries[0].UpdatedAt.IsZero())

	resp = env.do(t, http.MethodGet, "/api/chats", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRecapEndpointRendersAssistantMarkdown(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	_, err := env.repo.Create(context.Background(), "alice@example.com",
		[]domain.Message{domain.UserMessage("**not rendered**"), domain.AssistantMessage("**bold**")})
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/api/chats/recap?limit=2", "alice@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recap []recapChat
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recap))
	require.Len(t, recap, 1)
	require.Len(t, recap[0].Messages, 2)
	assert.Empty(t, recap[0].Messages[0].HTML)
	assert.Equal(t, "<p><strong>bold</strong></p>\n", recap[0].Messages[1].HTML)

	resp = env.do(t, http.MethodGet, "/api/chats/recap?limit=zero", "alice@example.com", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
