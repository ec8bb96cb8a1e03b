package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/converselabs/converse/internal/domain"
	"github.com/converselabs/converse/internal/observability"
)

// Manager is the public face of the session subsystem. It owns session
// lifecycle and ownership enforcement and composes the store adapter,
// the history assembler, the handle cache and the completion gateway.
//
// Every operation that takes a caller identity compares it against the
// stored owner before touching session content; a mismatch fails with
// ErrForbidden. The core never trusts a session id alone as proof of
// ownership.
type Manager struct {
	store     domain.SessionStore
	cache     *Cache
	gateway   *Gateway
	assembler Assembler
	now       func() time.Time

	// mu guards locks; each per-session mutex serializes the
	// load-mutate-append cycle for that session so concurrent
	// AddMessage calls cannot race. Different sessions proceed in
	// parallel.
	mu    sync.Mutex
	locks map[domain.SessionID]*sync.Mutex
}

func NewManager(
	store domain.SessionStore,
	cache *Cache,
	gateway *Gateway,
	assembler Assembler,
) *Manager {
	return &Manager{
		store:     store,
		cache:     cache,
		gateway:   gateway,
		assembler: assembler,
		now:       time.Now,
		locks:     make(map[domain.SessionID]*sync.Mutex),
	}
}

func (m *Manager) sessionLock(id domain.SessionID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

func (m *Manager) dropLock(id domain.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
}

// CreateSession creates a new active session with an empty message
// sequence and writes it durably.
func (m *Manager) CreateSession(ctx context.Context, ownerID domain.UserID, title string) (*domain.Session, error) {
	if strings.TrimSpace(string(ownerID)) == "" {
		return nil, domain.ErrInvalidOwner
	}

	now := m.now()
	sess := &domain.Session{
		ID:        domain.SessionID(newID()),
		UserID:    ownerID,
		Title:     title,
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}

	log := observability.LoggerFromContext(ctx).With("user_id", ownerID)
	if err := m.store.Save(ctx, sess); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}
	log.Info("session created", "session_id", sess.ID)

	return sess.Clone(), nil
}

// GetUserSessions lists the owner's sessions, newest updatedAt first.
// activeOnly excludes soft-deleted sessions.
func (m *Manager) GetUserSessions(ctx context.Context, ownerID domain.UserID, activeOnly bool) ([]*domain.Session, error) {
	if strings.TrimSpace(string(ownerID)) == "" {
		return nil, domain.ErrInvalidOwner
	}
	return m.store.Query(ctx, ownerID, activeOnly)
}

// GetSession returns the session, or (nil, nil) when the id does not
// exist: absence is a normal outcome on read paths, not an error.
func (m *Manager) GetSession(ctx context.Context, callerID domain.UserID, id domain.SessionID) (*domain.Session, error) {
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, domain.ErrForbidden
	}
	return sess, nil
}

// GetMostRecentSession returns the caller's active session with the
// greatest updatedAt, or (nil, nil) when there is none.
func (m *Manager) GetMostRecentSession(ctx context.Context, ownerID domain.UserID) (*domain.Session, error) {
	sessions, err := m.GetUserSessions(ctx, ownerID, true)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// AddMessage appends one turn to the session and returns the updated
// snapshot. Appends to the same session are serialized; the assigned
// timestamp never goes backward relative to the session's updatedAt.
func (m *Manager) AddMessage(
	ctx context.Context,
	callerID domain.UserID,
	id domain.SessionID,
	role domain.Role,
	content string,
	metadata map[string]any,
) (*domain.Session, error) {
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyContent
	}

	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, domain.ErrForbidden
	}

	ts := m.now()
	if ts.Before(sess.UpdatedAt) {
		ts = sess.UpdatedAt
	}

	msg := domain.Message{
		ID:        domain.MessageID(newID()),
		Role:      role,
		Content:   content,
		Timestamp: ts,
		Metadata:  metadata,
	}

	if err := m.store.AppendMessage(ctx, id, msg); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to append message",
			"session_id", id, "role", role, "error", err)
		return nil, err
	}

	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = ts
	return sess, nil
}

// UpdateSessionTitle renames the session. Setting the identical title is
// a no-op and skips the write.
func (m *Manager) UpdateSessionTitle(ctx context.Context, callerID domain.UserID, id domain.SessionID, title string) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != callerID {
		return domain.ErrForbidden
	}
	if sess.Title == title {
		return nil
	}

	sess.Title = title
	sess.UpdatedAt = m.clampedNow(sess.UpdatedAt)
	return m.store.Save(ctx, sess)
}

// DeactivateSession soft-deletes the session: it disappears from default
// listings but stays readable by id. Idempotent, including when the
// session no longer exists. The cached provider handle is evicted.
func (m *Manager) DeactivateSession(ctx context.Context, callerID domain.UserID, id domain.SessionID) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			m.cache.Evict(id)
			return nil
		}
		return err
	}
	if sess.UserID != callerID {
		return domain.ErrForbidden
	}

	if sess.IsActive {
		sess.IsActive = false
		if err := m.store.Save(ctx, sess); err != nil {
			return err
		}
	}
	m.cache.Evict(id)

	observability.LoggerFromContext(ctx).Info("session deactivated", "session_id", id)
	return nil
}

// DeleteSession permanently removes the session and all its messages.
// Idempotent. The cached provider handle is evicted.
func (m *Manager) DeleteSession(ctx context.Context, callerID domain.UserID, id domain.SessionID) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			m.cache.Evict(id)
			return nil
		}
		return err
	}
	if sess.UserID != callerID {
		return domain.ErrForbidden
	}

	if err := m.store.Remove(ctx, id); err != nil {
		return err
	}
	m.cache.Evict(id)
	m.dropLock(id)

	observability.LoggerFromContext(ctx).Info("session deleted", "session_id", id)
	return nil
}

// ClearSessionMessages empties the message sequence while preserving the
// session's identity, ownership and createdAt. The cached provider
// handle is evicted since its context no longer matches stored state.
func (m *Manager) ClearSessionMessages(ctx context.Context, callerID domain.UserID, id domain.SessionID) error {
	lock := m.sessionLock(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if sess.UserID != callerID {
		return domain.ErrForbidden
	}

	sess.Messages = []domain.Message{}
	sess.UpdatedAt = m.clampedNow(sess.UpdatedAt)
	if err := m.store.Save(ctx, sess); err != nil {
		return err
	}
	m.cache.Evict(id)
	return nil
}

// GetConversationHistory returns the budgeted prior turns for the
// session, oldest first. A session with no messages yields an empty
// sequence, not an error.
func (m *Manager) GetConversationHistory(ctx context.Context, callerID domain.UserID, id domain.SessionID) ([]domain.Turn, error) {
	sess, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != callerID {
		return nil, domain.ErrForbidden
	}
	return m.assembler.Assemble(sess.Messages), nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Text      string
	Mode      domain.CompletionMode
}

type SendMessageOutput struct {
	UserMessage      domain.Message
	AssistantMessage domain.Message
	Session          *domain.Session
}

// SendMessage runs one full exchange: commit the user turn, ask the
// gateway for a completion, commit the assistant turn. When the
// completion fails the user turn stays committed and no assistant turn
// is written, so session state is never corrupted by a provider outage
// or an abandoned call.
func (m *Manager) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	mode := in.Mode
	if mode == "" {
		mode = domain.ModeStandard
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", in.SessionID,
		"user_id", in.UserID,
	)

	sess, err := m.AddMessage(ctx, in.UserID, in.SessionID, domain.RoleUser, in.Text, nil)
	if err != nil {
		return nil, err
	}
	userMsg := sess.Messages[len(sess.Messages)-1]

	replyText, err := m.gateway.Ask(ctx, in.SessionID, userMsg, mode)
	if err != nil {
		log.Error("completion failed, user turn kept", "error", err)
		return nil, err
	}

	sess, err = m.AddMessage(ctx, in.UserID, in.SessionID, domain.RoleAssistant, replyText,
		map[string]any{"mode": string(mode)})
	if err != nil {
		log.Error("failed to commit assistant turn", "error", err)
		return nil, err
	}
	assistantMsg := sess.Messages[len(sess.Messages)-1]

	log.Info("exchange completed", "message_count", len(sess.Messages))

	return &SendMessageOutput{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Session:          sess,
	}, nil
}

// Close releases process-local state (cached provider handles).
func (m *Manager) Close() {
	m.cache.Reset()
}

func (m *Manager) clampedNow(floor time.Time) time.Time {
	now := m.now()
	if now.Before(floor) {
		return floor
	}
	return now
}

// newID returns a time-ordered unique identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails if the platform source of randomness does.
		panic(fmt.Sprintf("uuid: %v", err))
	}
	return id.String()
}
