package conversation

import (
	"sync"
	"time"

	"github.com/p-blackswan/pm-agent/internal/intent"
)

// Payload carries the structured data accumulated by an in-progress flow.
type Payload struct {
	Draft     *intent.EpicIntent
	SpaceKey  string
	Query     intent.MeetingQuery
	Documents []intent.DocumentFragment
	Context   string
}

// State is one user's conversation position.
type State struct {
	UserID    string
	ChannelID string
	Step      Step
	Payload   Payload
	UpdatedAt time.Time
}

// Store holds per-user conversation state. Implementations must be safe for
// concurrent use; Lock serializes whole turns for one user so two messages
// from the same user cannot interleave their read-modify-write.
type Store interface {
	Get(userID string) (State, bool)
	Put(st State)
	Delete(userID string)
	Len() int
	Steps() map[string]int
	IdleSince(cutoff time.Time) []string
	Lock(userID string) func()
}

// MemoryStore is the in-memory Store. Conversation state is deliberately not
// persisted; a restart drops all in-progress flows.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
	locks  map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *MemoryStore) Get(userID string) (State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[userID]
	if !ok {
		return State{}, false
	}
	return *st, true
}

func (m *MemoryStore) Put(st State) {
	st.UpdatedAt = time.Now().UTC()
	m.mu.Lock()
	m.states[st.UserID] = &st
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(userID string) {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// Steps returns a step-name → count summary for the ops API.
func (m *MemoryStore) Steps() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, st := range m.states {
		out[st.Step.String()]++
	}
	return out
}

// IdleSince returns the users whose state has not been touched since cutoff.
func (m *MemoryStore) IdleSince(cutoff time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var users []string
	for id, st := range m.states {
		if st.UpdatedAt.Before(cutoff) {
			users = append(users, id)
		}
	}
	return users
}

// Lock acquires the per-user turn lock and returns its release func. Lock
// entries are never removed; the population is bounded by the user base.
func (m *MemoryStore) Lock(userID string) func() {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[userID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}
