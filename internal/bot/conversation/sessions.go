package conversation

import "sync"

// MemorySessions is the in-memory SessionStore used in production. Sessions
// are disposable; anything lost on restart is rebuilt by rehydration.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

// NewMemorySessions creates an empty session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[int64]Session)}
}

func (s *MemorySessions) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *MemorySessions) Put(userID int64, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

func (s *MemorySessions) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
