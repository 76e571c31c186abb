package table

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown or closed session id.
var ErrSessionNotFound = errors.New("table session not found")

// Session is the state of one mounted table. Search input is debounced;
// every other change applies immediately. Safe for concurrent use.
type Session struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`

	engine   *Engine
	debounce *Debouncer

	mu     sync.Mutex
	state  State
	typed  string
	closed bool
}

// NewSession opens a table over engine in its initial state.
func NewSession(engine *Engine) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Created:  time.Now(),
		engine:   engine,
		debounce: NewDebouncer(DebounceInterval),
		state:    NewState(),
	}
}

// Engine returns the engine the session queries.
func (s *Session) Engine() *Engine { return s.engine }

// State returns the committed query state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Typed returns the raw search input, which may not be committed yet.
func (s *Session) Typed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typed
}

// TypeSearch records search input and commits it after DebounceInterval of
// quiet. Earlier uncommitted input is discarded.
func (s *Session) TypeSearch(term string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.typed = term
	s.mu.Unlock()
	s.debounce.Trigger(func() { s.commitSearch(term) })
}

func (s *Session) commitSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.Search == term {
		return
	}
	s.state = s.state.WithSearch(term)
}

// FlushSearch commits pending search input immediately.
func (s *Session) FlushSearch() bool { return s.debounce.Flush() }

// SearchPending reports whether typed input is still waiting to be committed.
func (s *Session) SearchPending() bool { return s.debounce.Pending() }

// Update applies fn to the current state. On error the state is unchanged.
func (s *Session) Update(fn func(State) (State, error)) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Result{}, ErrSessionNotFound
	}
	next, err := fn(s.state)
	if err != nil {
		return Result{}, err
	}
	return s.applyLocked(next), nil
}

// Result queries the current state.
func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(s.state)
}

// applyLocked runs st and stores it with the page clamped to what exists.
func (s *Session) applyLocked(st State) Result {
	res := s.engine.Apply(st)
	st.Page = res.Page
	st.PageSize = res.PageSize
	s.state = st
	return res
}

// Close cancels pending search input; further updates fail.
func (s *Session) Close() {
	s.debounce.Cancel()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Registry tracks open sessions by id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open creates and registers a session over engine.
func (r *Registry) Open(engine *Engine) *Session {
	s := NewSession(engine)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get finds an open session.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes and forgets a session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll closes every session, e.g. after the record set was replaced.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	old := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range old {
		s.Close()
	}
	return len(old)
}

// IDs lists open session ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
