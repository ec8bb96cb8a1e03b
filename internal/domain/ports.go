package domain

import "context"

// SessionStore defines session persistence over a document store.
// Save is a full-document replace; AppendMessage must be an atomic
// append at the store level so two concurrent appends to the same
// session cannot overwrite each other.
type SessionStore interface {
	// Load returns the session or ErrSessionNotFound.
	Load(ctx context.Context, id SessionID) (*Session, error)

	// Save writes the whole session record, creating it if needed.
	Save(ctx context.Context, session *Session) error

	// AppendMessage atomically appends msg to the session's message
	// sequence and advances updatedAt to msg.Timestamp.
	AppendMessage(ctx context.Context, id SessionID, msg Message) error

	// Query returns the owner's sessions, newest updatedAt first.
	// activeOnly filters out soft-deleted sessions.
	Query(ctx context.Context, ownerID UserID, activeOnly bool) ([]*Session, error)

	// Remove permanently deletes the session. Removing a session that
	// does not exist is not an error.
	Remove(ctx context.Context, id SessionID) error
}

// ConversationHandle is opaque provider-side conversation state. The
// core only moves it between the cache and the provider; it never looks
// inside.
type ConversationHandle any

// CompletionRequest carries everything the provider needs for one turn.
// Handle, when non-nil, lets providers with incremental context skip
// re-sending History.
type CompletionRequest struct {
	History []Turn
	Message string
	Mode    CompletionMode
	Handle  ConversationHandle
}

// CompletionResult is the provider's reply plus a handle to reuse on the
// next turn (nil if the provider keeps no server-side state).
type CompletionResult struct {
	Text   string
	Handle ConversationHandle
}

// CompletionClient defines how the core talks to an AI completion provider.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}
