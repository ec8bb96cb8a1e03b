package domain

import "maps"

// Message is one role-tagged turn inside a session. Messages belong to
// exactly one session and are append-only.
type Message struct {
	ID        MessageID
	Role      Role
	Content   string
	Timestamp Timestamp

	// Metadata is an opaque bag the core stores but never interprets
	// (thinking-mode flags, provider identifiers, ...).
	Metadata map[string]any
}

// Session is a persisted, ordered conversation between one user and the
// assistant. Messages keep strict append order; Timestamp values are
// non-decreasing within a session.
type Session struct {
	ID        SessionID
	UserID    UserID
	Title     string
	Messages  []Message
	CreatedAt Timestamp
	UpdatedAt Timestamp

	// IsActive is false once the session has been soft-deleted. Inactive
	// sessions are hidden from default listings but stay readable by id.
	IsActive bool
}

// Turn is one element of assembled conversation history, the shape the
// completion provider consumes.
type Turn struct {
	Role    Role
	Content string
}

// Clone returns a deep copy so callers can hand out snapshots without
// sharing the backing message slice or metadata maps.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m
		if m.Metadata != nil {
			out.Messages[i].Metadata = maps.Clone(m.Metadata)
		}
	}
	return &out
}
