// Package cooldown suppresses repeated actuation of the same action name
// within a fixed window.
package cooldown

import (
	"sort"
	"time"
)

// Store maps action names to the time they were last accepted. Entries
// never expire; they are only overwritten or cleared.
type Store struct {
	last map[string]time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{last: make(map[string]time.Time)}
}

// Elapsed returns the time since name was last accepted. ok is false when
// name was never accepted, which callers treat as infinitely long ago.
func (s *Store) Elapsed(name string, now time.Time) (elapsed time.Duration, ok bool) {
	t, ok := s.last[name]
	if !ok {
		return 0, false
	}
	return now.Sub(t), true
}

// Record upserts the acceptance time for name.
func (s *Store) Record(name string, now time.Time) {
	s.last[name] = now
}

// Clear empties the store.
func (s *Store) Clear() {
	s.last = make(map[string]time.Time)
}

// Len returns the number of tracked names.
func (s *Store) Len() int { return len(s.last) }

// Entry is one tracked name.
type Entry struct {
	Name     string    `json:"name"`
	Accepted time.Time `json:"accepted"`
}

// Entries returns the tracked names sorted by name.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.last))
	for name, t := range s.last {
		out = append(out, Entry{Name: name, Accepted: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
