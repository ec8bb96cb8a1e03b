package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/converselabs/converse/internal/adapters/storage/memory"
	"github.com/converselabs/converse/internal/domain"
)

func newSession(id domain.SessionID, owner domain.UserID, updatedAt time.Time, active bool) *domain.Session {
	return &domain.Session{
		ID:        id,
		UserID:    owner,
		Title:     "t",
		Messages:  []domain.Message{},
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		IsActive:  active,
	}
}

func TestLoadUnknownSession(t *testing.T) {
	store := memory.NewStore()

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	now := time.Now()

	sess := newSession("s1", "u1", now, true)
	sess.Messages = append(sess.Messages, domain.Message{
		ID:        "m1",
		Role:      domain.RoleUser,
		Content:   "hello",
		Timestamp: now,
		Metadata:  map[string]any{"k": "v"},
	})
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess, got)
}

func TestLoadReturnsIsolatedCopy(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	sess := newSession("s1", "u1", time.Now(), true)
	require.NoError(t, store.Save(ctx, sess))

	first, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	first.Title = "mutated"
	first.Messages = append(first.Messages, domain.Message{ID: "rogue"})

	second, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "t", second.Title)
	assert.Empty(t, second.Messages)
}

func TestAppendMessage(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, newSession("s1", "u1", base, true)))

	msg := domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi", Timestamp: base.Add(time.Second)}
	require.NoError(t, store.AppendMessage(ctx, "s1", msg))

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, msg, got.Messages[0])
	assert.Equal(t, msg.Timestamp, got.UpdatedAt)

	err = store.AppendMessage(ctx, "missing", msg)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestConcurrentAppendsAllCommit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("s1", "u1", time.Now(), true)))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			msg := domain.Message{
				ID:        domain.MessageID(fmt.Sprintf("m%d", n)),
				Role:      domain.RoleUser,
				Content:   "x",
				Timestamp: time.Now(),
			}
			assert.NoError(t, store.AppendMessage(ctx, "s1", msg))
		}(i)
	}
	wg.Wait()

	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, writers)
}

func TestQueryFiltersAndSorts(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Save(ctx, newSession("old", "u1", base, true)))
	require.NoError(t, store.Save(ctx, newSession("new", "u1", base.Add(time.Minute), true)))
	require.NoError(t, store.Save(ctx, newSession("inactive", "u1", base.Add(time.Hour), false)))
	require.NoError(t, store.Save(ctx, newSession("other", "u2", base, true)))

	active, err := store.Query(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, domain.SessionID("new"), active[0].ID)
	assert.Equal(t, domain.SessionID("old"), active[1].ID)

	all, err := store.Query(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, domain.SessionID("inactive"), all[0].ID)
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, newSession("s1", "u1", time.Now(), true)))
	require.NoError(t, store.Remove(ctx, "s1"))

	_, err := store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, store.Remove(ctx, "s1"))
}
