package bot

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/linguatrack/internal/clock"
)

// State is what a chat is expected to send next.
type State int

const (
	StateIdle State = iota
	StateAwaitingCard
	StateAwaitingWord
)

func (s State) String() string {
	switch s {
	case StateAwaitingCard:
		return "awaiting_card"
	case StateAwaitingWord:
		return "awaiting_word"
	default:
		return "idle"
	}
}

// Session is the conversation state of one chat.
type Session struct {
	ID        string
	ChatID    int64
	State     State
	UpdatedAt time.Time
}

// SessionStore keeps sessions between updates.
type SessionStore interface {
	// Load returns the chat's session, starting a fresh idle one when none is stored.
	Load(chatID int64) *Session
	Save(s *Session)
	Delete(chatID int64)
}

// MemorySessionStore keeps sessions in memory. Sessions idle longer than ttl
// are treated as absent.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	clock    clock.Clock
	ttl      time.Duration
}

func NewMemorySessionStore(clk clock.Clock, ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]Session),
		clock:    clk,
		ttl:      ttl,
	}
}

func (m *MemorySessionStore) Load(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if s, ok := m.sessions[chatID]; ok {
		if m.ttl <= 0 || now.Sub(s.UpdatedAt) < m.ttl {
			return &s
		}
		delete(m.sessions, chatID)
	}
	return &Session{ID: uuid.NewString(), ChatID: chatID, State: StateIdle, UpdatedAt: now}
}

func (m *MemorySessionStore) Save(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.UpdatedAt = m.clock.Now()
	m.sessions[s.ChatID] = *s
}

func (m *MemorySessionStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
