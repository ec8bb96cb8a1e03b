package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converselabs/converse/internal/adapters/llm"
	"github.com/converselabs/converse/internal/adapters/storage/memory"
	"github.com/converselabs/converse/internal/app/session"
	"github.com/converselabs/converse/internal/domain"
)

func seedSession(t *testing.T, store *memory.Store, msgs []domain.Message) *domain.Session {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess := &domain.Session{
		ID:        "sess-1",
		UserID:    "u1",
		Title:     "seeded",
		Messages:  msgs,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	require.NoError(t, store.Save(context.Background(), sess))
	return sess
}

func TestGatewayAskInjectsFullHistoryOnColdCache(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := llm.NewMockClient()
	cache := session.NewCache()
	gw := session.NewGateway(client, store, cache, session.NewAssembler(10, 1000))

	msgs := makeMessages("My name is John", "Nice to meet you, John")
	seedSession(t, store, msgs)

	userMsg := domain.Message{ID: "u-msg", Role: domain.RoleUser, Content: "What's my name?"}
	text, err := gw.Ask(ctx, "sess-1", userMsg, domain.ModeStandard)
	require.NoError(t, err)
	assert.NotEmpty(t, text)

	req, ok := client.LastCall()
	require.True(t, ok)
	assert.Nil(t, req.Handle, "cold cache must fall back to full history")
	require.Len(t, req.History, 2)
	assert.Equal(t, "My name is John", req.History[0].Content)
	assert.Equal(t, "What's my name?", req.Message)
}

func TestGatewayAskExcludesCommittedUserTurnFromHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := llm.NewMockClient()
	cache := session.NewCache()
	gw := session.NewGateway(client, store, cache, session.NewAssembler(10, 1000))

	msgs := makeMessages("hello", "hi")
	sess := seedSession(t, store, msgs)

	// The user turn is committed before the gateway runs; it must be sent
	// as the new message, not duplicated into the history.
	userMsg := domain.Message{ID: "u-msg", Role: domain.RoleUser, Content: "and now?", Timestamp: sess.UpdatedAt}
	require.NoError(t, store.AppendMessage(ctx, sess.ID, userMsg))

	_, err := gw.Ask(ctx, sess.ID, userMsg, domain.ModeStandard)
	require.NoError(t, err)

	req, _ := client.LastCall()
	require.Len(t, req.History, 2)
	for _, turn := range req.History {
		assert.NotEqual(t, "and now?", turn.Content)
	}
}

func TestGatewayAskReusesCachedHandle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := llm.NewMockClient()
	client.HandleFn = func(domain.CompletionRequest) domain.ConversationHandle {
		return "provider-chat-state"
	}
	cache := session.NewCache()
	gw := session.NewGateway(client, store, cache, session.NewAssembler(10, 1000))

	seedSession(t, store, makeMessages("hello"))

	userMsg := domain.Message{ID: "m1", Role: domain.RoleUser, Content: "first"}
	_, err := gw.Ask(ctx, "sess-1", userMsg, domain.ModeStandard)
	require.NoError(t, err)

	userMsg2 := domain.Message{ID: "m2", Role: domain.RoleUser, Content: "second"}
	_, err = gw.Ask(ctx, "sess-1", userMsg2, domain.ModeStandard)
	require.NoError(t, err)

	req, _ := client.LastCall()
	assert.Equal(t, "provider-chat-state", req.Handle)
}

func TestGatewayAskWrapsProviderFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	client := llm.NewMockClient()
	client.ReplyFn = func(domain.CompletionRequest) (string, error) {
		return "", errors.New("upstream timeout")
	}
	cache := session.NewCache()
	cache.Put("sess-1", "stale-handle")
	gw := session.NewGateway(client, store, cache, session.NewAssembler(10, 1000))

	seedSession(t, store, makeMessages("hello"))

	_, err := gw.Ask(ctx, "sess-1", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"}, domain.ModeStandard)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	// The stale handle must not survive a failed call.
	_, ok := cache.Get("sess-1")
	assert.False(t, ok)
}

func TestGatewayAskUnknownSession(t *testing.T) {
	store := memory.NewStore()
	gw := session.NewGateway(llm.NewMockClient(), store, session.NewCache(), session.NewAssembler(10, 1000))

	_, err := gw.Ask(context.Background(), "missing", domain.Message{ID: "m", Content: "hi"}, domain.ModeStandard)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
