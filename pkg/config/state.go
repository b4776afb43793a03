package config

import "sync"

// State owns the pinned backend base URL. Consumers read it on every request
// and may subscribe to be told when it changes.
type State struct {
	mu          sync.RWMutex
	baseURL     string
	subscribers map[int]func(string)
	nextID      int
}

// NewState creates a state pinned to baseURL.
func NewState(baseURL string) *State {
	return &State{
		baseURL:     NormalizeURL(baseURL),
		subscribers: make(map[int]func(string)),
	}
}

// BaseURL returns the currently pinned base URL.
func (s *State) BaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseURL
}

// SetBaseURL pins a new base URL and notifies subscribers when it differs
// from the current one. It reports whether the value changed.
func (s *State) SetBaseURL(baseURL string) bool {
	baseURL = NormalizeURL(baseURL)

	s.mu.Lock()
	if baseURL == s.baseURL {
		s.mu.Unlock()
		return false
	}
	s.baseURL = baseURL
	subscribers := make([]func(string), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(baseURL)
	}
	return true
}

// Subscribe registers fn to receive every new base URL and returns a function
// removing the subscription.
func (s *State) Subscribe(fn func(string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}
