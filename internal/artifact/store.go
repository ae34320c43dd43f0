// Package artifact holds exported files until they are downloaded or
// released.
//
// An artifact lives in memory from Put until Release. Downloads release the
// artifact after serving it, and a new dataset releases every artifact of
// the previous one, so nothing accumulates across uploads.
package artifact

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/file-mapper/internal/export"
)

// ErrNotFound is returned for an unknown or already released artifact.
var ErrNotFound = errors.New("artifact not found")

// Entry is a stored artifact.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"content_type"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`

	data []byte
}

// Data returns the artifact content.
func (e *Entry) Data() []byte { return e.data }

// Store is a concurrency-safe in-memory artifact store.
type Store struct {
	mu      sync.Mutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Put stores a and returns its entry. Each call gets a fresh id.
func (s *Store) Put(a *export.Artifact) *Entry {
	e := &Entry{
		ID:        uuid.NewString(),
		Name:      a.Name,
		Type:      a.ContentType,
		Size:      len(a.Data),
		CreatedAt: s.now(),
		data:      a.Data,
	}

	s.mu.Lock()
	s.entries[e.ID] = e
	s.mu.Unlock()

	return e
}

// Get returns the artifact with id without releasing it.
func (s *Store) Get(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// Take returns the artifact with id and releases it, so it can be served
// exactly once.
func (s *Store) Take(id string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, id)
	return e, nil
}

// Release drops the artifact with id. Releasing an unknown id is a no-op.
func (s *Store) Release(id string) {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// ReleaseAll drops every artifact and returns how many were held.
func (s *Store) ReleaseAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.entries)
	s.entries = make(map[string]*Entry)
	return n
}

// Len returns the number of held artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
