// Package memstore keeps the draft in a process-local key-value map, the
// server-side equivalent of browser local storage.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
)

// Store implements workflow.DraftRepository over an in-memory map.
type Store struct {
	draftKey     string
	timestampKey string

	mu     sync.Mutex
	values map[string]string
	writes int
}

// New creates an empty store addressing the draft under the given keys.
func New(draftKey, timestampKey string) *Store {
	return &Store{
		draftKey:     draftKey,
		timestampKey: timestampKey,
		values:       make(map[string]string),
	}
}

func (s *Store) Load(_ context.Context) (domain.SavedDraft, bool, error) {
	s.mu.Lock()
	body, ok := s.values[s.draftKey]
	ts := s.values[s.timestampKey]
	s.mu.Unlock()

	if !ok {
		return domain.SavedDraft{}, false, nil
	}

	draft, err := domain.DecodeDraft([]byte(body))
	if err != nil {
		return domain.SavedDraft{}, false, err
	}

	// A missing or malformed timestamp does not invalidate the draft itself.
	savedAt, _ := domain.ParseSavedAt(ts)
	return domain.SavedDraft{Draft: draft, SavedAt: savedAt}, true, nil
}

func (s *Store) Save(_ context.Context, draft domain.Draft, savedAt time.Time) error {
	body, err := domain.EncodeDraft(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.draftKey] = string(body)
	s.values[s.timestampKey] = domain.FormatSavedAt(savedAt)
	s.writes++
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, s.draftKey)
	delete(s.values, s.timestampKey)
	return nil
}

// Get returns the raw value under key.
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Set writes a raw value under key, bypassing encoding.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Writes counts successful Save calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
