// Package session holds the single active dataset and its column mapper.
//
// Reads are tagged with a generation. Starting a new read supersedes every
// read still in flight: when a superseded read completes, its result is
// dropped and Complete reports ErrStale. A successful read replaces the
// dataset, resets the mapper and releases the previous dataset's
// artifacts. A failed read clears the dataset and keeps the error message
// for display.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/ginjaninja78/file-mapper/internal/artifact"
	"github.com/ginjaninja78/file-mapper/internal/ingest"
	"github.com/ginjaninja78/file-mapper/internal/logging"
	"github.com/ginjaninja78/file-mapper/internal/mapper"
	"github.com/ginjaninja78/file-mapper/internal/types"
)

var (
	// ErrStale is returned when a read completes after a newer one began.
	ErrStale = errors.New("read superseded by a newer upload")

	// ErrNoDataset is returned by operations that need a loaded dataset.
	ErrNoDataset = errors.New("no file loaded")
)

// Ticket identifies one read.
type Ticket uint64

// Session is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	generation uint64
	dataset    *types.Dataset
	mapper     *mapper.Mapper
	lastError  string
	raw        []byte
	artifacts  *artifact.Store
}

// New returns an empty session. Artifacts of each dataset are kept in
// store.
func New(store *artifact.Store, aliases map[string][]string) *Session {
	m := mapper.New(nil)
	m.SetAliases(aliases)
	return &Session{mapper: m, artifacts: store}
}

// Artifacts returns the session's artifact store.
func (s *Session) Artifacts() *artifact.Store { return s.artifacts }

// Begin starts a read and returns its ticket. Earlier tickets become stale.
func (s *Session) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return Ticket(s.generation)
}

// Complete applies the result of the read identified by t.
//
// RETURNS:
//   - ErrStale when t is not the latest ticket; the session is unchanged.
//   - readErr when the read failed; the dataset is cleared.
//   - nil when ds became the active dataset.
func (s *Session) Complete(t Ticket, ds *types.Dataset, readErr error) error {
	return s.complete(t, ds, nil, readErr)
}

func (s *Session) complete(t Ticket, ds *types.Dataset, raw []byte, readErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if uint64(t) != s.generation {
		return ErrStale
	}

	s.artifacts.ReleaseAll()

	if readErr != nil {
		s.dataset = nil
		s.raw = nil
		s.lastError = types.Message(readErr)
		s.mapper.Reset(nil)
		return readErr
	}

	s.dataset = ds
	s.raw = raw
	s.lastError = ""
	s.mapper.Reset(ds.Headers())
	return nil
}

// Ingest loads f with loader under a fresh ticket and completes it.
func (s *Session) Ingest(ctx context.Context, loader *ingest.Loader, f ingest.File) (*types.Dataset, error) {
	ticket := s.Begin()
	ds, err := loader.Load(ctx, f)

	if cerr := s.complete(ticket, ds, f.Data, err); cerr != nil {
		if errors.Is(cerr, ErrStale) {
			logging.FromContext(ctx).Debug("dropping superseded read", "file", f.Name, "ticket", ticket)
		}
		return nil, cerr
	}
	return ds, nil
}

// Dataset returns the active dataset, or nil.
func (s *Session) Dataset() *types.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// Raw returns the bytes of the active dataset's file when it was loaded
// through Ingest, or nil.
func (s *Session) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// LastError returns the message of the last failed read, "" after a
// successful one.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// WithMapper runs fn with the active dataset and its mapper while holding
// the session lock.
func (s *Session) WithMapper(fn func(ds *types.Dataset, m *mapper.Mapper) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil {
		return ErrNoDataset
	}
	return fn(s.dataset, s.mapper)
}

// Clear drops the dataset and every artifact.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.dataset = nil
	s.raw = nil
	s.lastError = ""
	s.mapper.Reset(nil)
	s.artifacts.ReleaseAll()
}
