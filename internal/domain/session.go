package domain

import "sync"

// User is an immutable (name, connection id) pair.
type User struct {
	Name         string
	ConnectionID string
}

// Session is a live, code-addressed room with one owner, a Quiz, and zero
// or more joined Users. Lifecycle: Created -> Started -> Ended.
type Session struct {
	mu sync.Mutex

	ID    string
	Owner string // connection id of the creator
	Quiz  *Quiz

	isStarted bool
	hasEnded  bool

	byName map[string]User
	byID   map[string]User
}

// NewSession allocates an empty Session owned by ownerConnID.
func NewSession(id, ownerConnID string) *Session {
	return &Session{
		ID:     id,
		Owner:  ownerConnID,
		Quiz:   NewQuiz(),
		byName: make(map[string]User),
		byID:   make(map[string]User),
	}
}

// IsStarted reports whether Start has taken effect.
func (s *Session) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isStarted
}

// HasEnded reports whether End has taken effect.
func (s *Session) HasEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasEnded
}

// AddUser joins u to the Session. Fails if u is the owner's connection,
// the Session has started or ended, or the name is already taken.
func (s *Session) AddUser(u User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ConnectionID == s.Owner || s.isStarted || s.hasEnded {
		return false
	}
	if _, exists := s.byName[u.Name]; exists {
		return false
	}
	s.byName[u.Name] = u
	s.byID[u.ConnectionID] = u
	return true
}

// RemoveUser removes and returns the user with the given name. Forbidden
// once the Session has ended.
func (s *Session) RemoveUser(name string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasEnded {
		return User{}, false
	}
	u, exists := s.byName[name]
	if !exists {
		return User{}, false
	}
	delete(s.byName, name)
	delete(s.byID, u.ConnectionID)
	return u, true
}

// RemoveUserByID removes and returns the user with the given connection
// id. Forbidden once the Session has ended.
func (s *Session) RemoveUserByID(connID string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasEnded {
		return User{}, false
	}
	u, exists := s.byID[connID]
	if !exists {
		return User{}, false
	}
	delete(s.byName, u.Name)
	delete(s.byID, connID)
	return u, true
}

// FindUserByName looks up a joined user by name.
func (s *Session) FindUserByName(name string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byName[name]
	return u, ok
}

// FindUserByID looks up a joined user by connection id.
func (s *Session) FindUserByID(connID string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[connID]
	return u, ok
}

// UserNames returns every joined user's name.
func (s *Session) UserNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	return names
}

// Start sets the started flag. Must not be called twice.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isStarted {
		return false
	}
	s.isStarted = true
	return true
}

// End sets the ended flag and ends the current question, if any, so its
// timer is cancelled. This is the normal path (spec.md 4.3): it only acts
// while the Session is started, and is idempotent after the first call.
func (s *Session) End() bool {
	s.mu.Lock()
	if !s.isStarted || s.hasEnded {
		s.mu.Unlock()
		return false
	}
	s.hasEnded = true
	quiz := s.Quiz
	s.mu.Unlock()

	if current, ok := quiz.CurrentQuestion(); ok {
		current.End()
	}
	return true
}

// ForceEnd ends the Session regardless of whether it was ever started,
// used by the disconnect cascade (spec.md 4.4.13): losing the owner
// connection ends the Session even if it never started, bypassing the
// normal started-only path of End.
func (s *Session) ForceEnd() bool {
	s.mu.Lock()
	if s.hasEnded {
		s.mu.Unlock()
		return false
	}
	s.isStarted = true
	s.hasEnded = true
	quiz := s.Quiz
	s.mu.Unlock()

	if current, ok := quiz.CurrentQuestion(); ok {
		current.End()
	}
	return true
}
