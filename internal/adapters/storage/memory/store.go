// Package memory provides an in-process SessionStore used in local mode
// and in tests. It mirrors the document-store contract: Save replaces
// the whole record, AppendMessage is atomic under the store lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/converselabs/converse/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

func (s *Store) Load(_ context.Context, id domain.SessionID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("memory load %s: %w", id, domain.ErrSessionNotFound)
	}
	return sess.Clone(), nil
}

func (s *Store) Save(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *Store) AppendMessage(_ context.Context, id domain.SessionID, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("memory append %s: %w", id, domain.ErrSessionNotFound)
	}

	sess.Messages = append(sess.Messages, msg)
	if msg.Timestamp.After(sess.UpdatedAt) {
		sess.UpdatedAt = msg.Timestamp
	}
	return nil
}

func (s *Store) Query(_ context.Context, ownerID domain.UserID, activeOnly bool) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Session
	for _, sess := range s.sessions {
		if sess.UserID != ownerID {
			continue
		}
		if activeOnly && !sess.IsActive {
			continue
		}
		result = append(result, sess.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) Remove(_ context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
