package session

import (
	"context"
	"fmt"

	"github.com/converselabs/converse/internal/domain"
	"github.com/converselabs/converse/internal/observability"
)

// Gateway wraps the completion provider call: it assembles bounded
// history from committed messages, reuses a cached provider handle when
// one exists, and normalizes provider failures to ErrProviderUnavailable.
//
// The gateway never persists messages. The Manager commits the user turn
// before calling Ask and the assistant turn after it succeeds, so a
// failed completion can never leave an orphaned assistant turn.
type Gateway struct {
	client    domain.CompletionClient
	store     domain.SessionStore
	cache     *Cache
	assembler Assembler
}

func NewGateway(
	client domain.CompletionClient,
	store domain.SessionStore,
	cache *Cache,
	assembler Assembler,
) *Gateway {
	return &Gateway{
		client:    client,
		store:     store,
		cache:     cache,
		assembler: assembler,
	}
}

// Ask produces the assistant's reply to userMsg. userMsg must already be
// committed; it is excluded from the assembled history and sent as the
// new message, so the provider never sees it twice. Only durably stored
// messages ever enter the history.
func (g *Gateway) Ask(
	ctx context.Context,
	sessionID domain.SessionID,
	userMsg domain.Message,
	mode domain.CompletionMode,
) (string, error) {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"mode", mode,
	)

	sess, err := g.store.Load(ctx, sessionID)
	if err != nil {
		return "", err
	}

	prior := sess.Messages
	if n := len(prior); n > 0 && prior[n-1].ID == userMsg.ID {
		prior = prior[:n-1]
	}
	history := g.assembler.Assemble(prior)

	handle, cached := g.cache.Get(sessionID)
	if cached {
		log.Debug("reusing cached provider handle")
	}

	res, err := g.client.Complete(ctx, domain.CompletionRequest{
		History: history,
		Message: userMsg.Content,
		Mode:    mode,
		Handle:  handle,
	})
	if err != nil {
		// A stale handle must not poison the next attempt.
		if cached {
			g.cache.Evict(sessionID)
		}
		log.Error("completion failed", "error", err)
		return "", fmt.Errorf("%w: %w", domain.ErrProviderUnavailable, err)
	}

	if res.Handle != nil {
		g.cache.Put(sessionID, res.Handle)
	}

	return res.Text, nil
}
