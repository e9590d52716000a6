package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/auth"
	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/syncclient"
)

const syncUser = "alice@example.com"

func (e *testEnv) transport(t *testing.T) *syncclient.HTTPTransport {
	t.Helper()
	token, err := auth.GenerateJWT(syncUser, testSecret, time.Hour)
	require.NoError(t, err)
	return syncclient.NewHTTPTransport(e.server.URL, token, e.server.Client())
}

func (e *testEnv) stored(t *testing.T) []domain.Chat {
	t.Helper()
	chats, err := e.repo.FindRecentWithMessages(context.Background(), syncUser, 10)
	require.NoError(t, err)
	return chats
}

func TestSessionStreamsAndStoresReply(t *testing.T) {
	env := newTestEnv(t, &stubProvider{fragments: []string{"Hel", "lo, ", "world!"}})
	transport := env.transport(t)
	navigator := &syncclient.ViewNavigator{Loader: transport}
	session := syncclient.NewSession(transport, &services.NoOpLogger{},
		syncclient.WithMode(syncclient.ModeIncremental), syncclient.WithNavigator(navigator))
	navigator.Session = session

	session.SetInput("greet")
	require.NoError(t, session.Submit(context.Background()))

	want := []domain.Message{domain.UserMessage("greet"), domain.AssistantMessage("Hello, world!")}
	assert.Equal(t, want, session.Snapshot().Messages)

	chats := env.stored(t)
	require.Len(t, chats, 1)
	assert.Equal(t, want, chats[0].Messages)
}

func TestSessionRollsBackWhenStreamFailsMidway(t *testing.T) {
	env := newTestEnv(t, &stubProvider{fragments: []string{"Hel"}, err: errors.New("model dropped the stream")})
	session := syncclient.NewSession(env.transport(t), &services.NoOpLogger{}, syncclient.WithMode(syncclient.ModeIncremental))

	session.SetInput("greet")
	err := session.Submit(context.Background())
	require.Error(t, err)

	snap := session.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "greet", snap.PendingInput)
	assert.Nil(t, snap.ChatID)
	assert.False(t, snap.Busy)
	assert.Empty(t, env.stored(t), "a truncated reply must not be stored")
}

type unreachableLoader struct{}

func (unreachableLoader) GetChat(ctx context.Context, chatID uint) (*domain.Chat, error) {
	return nil, errors.New("connection refused")
}

func TestSessionKeepsStoredReplyWhenNavigationFails(t *testing.T) {
	env := newTestEnv(t, &stubProvider{reply: "4"})
	navigator := &syncclient.ViewNavigator{Loader: unreachableLoader{}}
	session := syncclient.NewSession(env.transport(t), &services.NoOpLogger{}, syncclient.WithNavigator(navigator))
	navigator.Session = session

	session.SetInput("2+2?")
	require.NoError(t, session.Submit(context.Background()))

	session.SetInput("3+3?")
	require.NoError(t, session.Submit(context.Background()))

	chats := env.stored(t)
	require.Len(t, chats, 1)
	assert.Equal(t, []domain.Message{
		domain.UserMessage("2+2?"), domain.AssistantMessage("4"),
		domain.UserMessage("3+3?"), domain.AssistantMessage("4"),
	}, chats[0].Messages)
	assert.Equal(t, chats[0].Messages, session.Snapshot().Messages)
}
