package history

import (
	"sync"

	"chat-relay/internal/llm"
)

// MaxTurns bounds every user's conversation window. Trimming from the
// oldest end keeps recency, which is what the completion backend needs
// for coherent context, and caps request payload size.
const MaxTurns = 40

type session struct {
	mu   sync.Mutex
	msgs []llm.Message
}

// Manager owns per-user conversation windows. Each user carries its own
// lock so concurrent handlers for unrelated users never serialize on
// each other; two near-simultaneous appends for the same user are both
// retained.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*session)}
}

func (m *Manager) session(userID int64) *session {
	m.mu.RLock()
	s := m.sessions[userID]
	m.mu.RUnlock()
	if s != nil {
		return s
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s = m.sessions[userID]; s == nil {
		s = &session{}
		m.sessions[userID] = s
	}
	return s
}

func (m *Manager) AppendUser(userID int64, content string) {
	m.append(userID, llm.Message{Role: "user", Content: content})
}

func (m *Manager) AppendAssistant(userID int64, content string) {
	m.append(userID, llm.Message{Role: "assistant", Content: content})
}

func (m *Manager) AppendSystem(userID int64, content string) {
	m.append(userID, llm.Message{Role: "system", Content: content})
}

func (m *Manager) append(userID int64, msg llm.Message) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	if len(s.msgs) > MaxTurns {
		trimmed := make([]llm.Message, MaxTurns)
		copy(trimmed, s.msgs[len(s.msgs)-MaxTurns:])
		s.msgs = trimmed
	}
}

// Get returns a copy of the user's current window, oldest first.
func (m *Manager) Get(userID int64) []llm.Message {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Reset clears the user's window. Idempotent.
func (m *Manager) Reset(userID int64) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}

// LastUserMessage returns the content of the most recent user turn.
func (m *Manager) LastUserMessage(userID int64) (string, bool) {
	s := m.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.msgs) - 1; i >= 0; i-- {
		if s.msgs[i].Role == "user" {
			return s.msgs[i].Content, true
		}
	}
	return "", false
}
