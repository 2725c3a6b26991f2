package ephemeris

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current ephemeris snapshot.
// Updates replace the whole snapshot at once, so readers never observe a
// partially populated record set.
type Store struct {
	snap atomic.Pointer[Snapshot]
	mu   sync.Mutex // serializes fetch/parse cycles
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current snapshot, or nil if none has been loaded.
func (s *Store) Get() *Snapshot {
	return s.snap.Load()
}

// Set atomically replaces the current snapshot.
func (s *Store) Set(snap *Snapshot) {
	s.snap.Store(snap)
}

// AgeSeconds returns the age of the current snapshot in seconds,
// or -1 if no snapshot is loaded.
func (s *Store) AgeSeconds() float64 {
	snap := s.snap.Load()
	if snap == nil {
		return -1
	}
	return time.Since(snap.ParsedAt).Seconds()
}

// Lock acquires the update mutex for serializing fetch/parse cycles.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the update mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
