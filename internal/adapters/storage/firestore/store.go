// Package firestore persists sessions in a Firestore collection, one
// document per session with the messages array embedded.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/converselabs/converse/internal/domain"
)

const sessionsCollection = "chatSessions"

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (CONVERSE_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection(sessionsCollection)
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type sessionDoc struct {
	UserID    string       `firestore:"userId"`
	Title     string       `firestore:"title"`
	Messages  []messageDoc `firestore:"messages"`
	CreatedAt time.Time    `firestore:"createdAt"`
	UpdatedAt time.Time    `firestore:"updatedAt"`
	IsActive  bool         `firestore:"isActive"`
}

type messageDoc struct {
	ID        string         `firestore:"id"`
	Role      string         `firestore:"role"`
	Content   string         `firestore:"content"`
	Timestamp time.Time      `firestore:"timestamp"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
}

func toSessionDoc(sess *domain.Session) sessionDoc {
	msgs := make([]messageDoc, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		msgs = append(msgs, toMessageDoc(m))
	}
	return sessionDoc{
		UserID:    string(sess.UserID),
		Title:     sess.Title,
		Messages:  msgs,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		IsActive:  sess.IsActive,
	}
}

func toMessageDoc(m domain.Message) messageDoc {
	return messageDoc{
		ID:        string(m.ID),
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Metadata:  m.Metadata,
	}
}

func fromSessionDoc(id domain.SessionID, doc sessionDoc) *domain.Session {
	msgs := make([]domain.Message, 0, len(doc.Messages))
	for _, m := range doc.Messages {
		msgs = append(msgs, domain.Message{
			ID:        domain.MessageID(m.ID),
			Role:      domain.Role(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Metadata:  m.Metadata,
		})
	}
	return &domain.Session{
		ID:        id,
		UserID:    domain.UserID(doc.UserID),
		Title:     doc.Title,
		Messages:  msgs,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		IsActive:  doc.IsActive,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) Load(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("firestore load %s: %w", id, domain.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("firestore load %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore load %s decode: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	return fromSessionDoc(id, doc), nil
}

// Save is a full-document replace of the session record, messages
// included. Callers must load-mutate-save under one logical operation.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	if _, err := s.sessionDoc(sess.ID).Set(ctx, toSessionDoc(sess)); err != nil {
		return fmt.Errorf("firestore save %s: %w: %w", sess.ID, domain.ErrStoreUnavailable, err)
	}
	return nil
}

// AppendMessage adds msg to the messages array and advances updatedAt
// in a single atomic update, so concurrent appends to the same session
// cannot overwrite each other. Message ids are unique, which keeps
// ArrayUnion from collapsing distinct turns.
func (s *Store) AppendMessage(ctx context.Context, id domain.SessionID, msg domain.Message) error {
	_, err := s.sessionDoc(id).Update(ctx, []firestore.Update{
		{Path: "messages", Value: firestore.ArrayUnion(toMessageDoc(msg))},
		{Path: "updatedAt", Value: msg.Timestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("firestore append %s: %w", id, domain.ErrSessionNotFound)
		}
		return fmt.Errorf("firestore append %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, ownerID domain.UserID, activeOnly bool) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("userId", "==", string(ownerID))
	if activeOnly {
		q = q.Where("isActive", "==", true)
	}
	q = q.OrderBy("updatedAt", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore query owner %s: %w: %w", ownerID, domain.ErrStoreUnavailable, err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore query decode: %w: %w", domain.ErrStoreUnavailable, err)
		}
		out = append(out, fromSessionDoc(domain.SessionID(snap.Ref.ID), doc))
	}
	return out, nil
}

// Remove deletes the document. Firestore deletes are idempotent:
// removing an absent session succeeds.
func (s *Store) Remove(ctx context.Context, id domain.SessionID) error {
	if _, err := s.sessionDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore remove %s: %w: %w", id, domain.ErrStoreUnavailable, err)
	}
	return nil
}
