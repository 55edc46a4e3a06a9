package refdata

import "sync/atomic"

// Store holds the current reference data snapshot. Readers take a snapshot
// pointer and use it for the whole request; the watcher replaces the pointer
// wholesale, so readers never observe a half-reloaded table.
type Store struct {
	current atomic.Pointer[Tables]
}

// NewStore returns a store seeded with an initial snapshot. tables may be nil
// for a store that becomes ready after the first successful load.
func NewStore(tables *Tables) *Store {
	s := &Store{}
	if tables != nil {
		s.current.Store(tables)
	}
	return s
}

// Snapshot returns the current tables, or nil when nothing is loaded yet.
func (s *Store) Snapshot() *Tables {
	return s.current.Load()
}

// Replace swaps in a new snapshot.
func (s *Store) Replace(tables *Tables) {
	s.current.Store(tables)
}

// Ready reports whether a snapshot is available to serve decisions from.
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}
