package kick

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// loginTTL bounds how long an abandoned login attempt stays in memory.
const loginTTL = 10 * time.Minute

type loginAttempt struct {
	verifier  string
	createdAt time.Time
}

// LoginStateStore maps an OAuth state token to its PKCE verifier for
// the duration of one login attempt. Entries are single-use: Pop
// removes the mapping so a state cannot be replayed. Stale entries are
// expired lazily on access.
type LoginStateStore struct {
	clock clockwork.Clock

	mu       sync.Mutex
	attempts map[string]loginAttempt
}

func NewLoginStateStore(clock clockwork.Clock) *LoginStateStore {
	return &LoginStateStore{
		clock:    clock,
		attempts: make(map[string]loginAttempt),
	}
}

// Put stores the verifier for a state token. A colliding state is
// overwritten (last write wins).
func (s *LoginStateStore) Put(state, verifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	s.attempts[state] = loginAttempt{verifier: verifier, createdAt: s.clock.Now()}
}

// Pop retrieves and removes the verifier for a state token. The second
// return value is false when the state was never issued, already
// consumed, or expired.
func (s *LoginStateStore) Pop(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked()
	attempt, ok := s.attempts[state]
	if !ok {
		return "", false
	}
	delete(s.attempts, state)
	return attempt.verifier, true
}

// Len reports the number of pending login attempts.
func (s *LoginStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func (s *LoginStateStore) purgeLocked() {
	cutoff := s.clock.Now().Add(-loginTTL)
	for state, attempt := range s.attempts {
		if attempt.createdAt.Before(cutoff) {
			delete(s.attempts, state)
		}
	}
}
