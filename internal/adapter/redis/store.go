// Package redis persists the draft in Redis so it survives restarts of the
// service. The layout matches the in-memory store: one key holds the JSON
// draft body, another its save time.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-report-service/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Store implements workflow.DraftRepository over a Redis client.
type Store struct {
	client       *goredis.Client
	draftKey     string
	timestampKey string
}

// NewStore parses url (redis://...) and returns a store using the given keys.
func NewStore(url, draftKey, timestampKey string) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewStoreWithClient(goredis.NewClient(opts), draftKey, timestampKey), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *goredis.Client, draftKey, timestampKey string) *Store {
	return &Store{client: client, draftKey: draftKey, timestampKey: timestampKey}
}

func (s *Store) Load(ctx context.Context) (domain.SavedDraft, bool, error) {
	vals, err := s.client.MGet(ctx, s.draftKey, s.timestampKey).Result()
	if err != nil {
		return domain.SavedDraft{}, false, fmt.Errorf("read draft keys: %w", err)
	}

	body, ok := vals[0].(string)
	if !ok {
		return domain.SavedDraft{}, false, nil
	}

	draft, err := domain.DecodeDraft([]byte(body))
	if err != nil {
		return domain.SavedDraft{}, false, err
	}

	var savedAt time.Time
	if ts, ok := vals[1].(string); ok {
		savedAt, _ = domain.ParseSavedAt(ts)
	}
	return domain.SavedDraft{Draft: draft, SavedAt: savedAt}, true, nil
}

// Save writes both keys in one MULTI/EXEC so readers never see a body
// paired with another save's timestamp.
func (s *Store) Save(ctx context.Context, draft domain.Draft, savedAt time.Time) error {
	body, err := domain.EncodeDraft(draft)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.draftKey, body, 0)
		pipe.Set(ctx, s.timestampKey, domain.FormatSavedAt(savedAt), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write draft keys: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.draftKey, s.timestampKey).Err(); err != nil {
		return fmt.Errorf("delete draft keys: %w", err)
	}
	return nil
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("redis ping timed out: %w", err)
		}
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the client's connections.
func (s *Store) Close() error {
	return s.client.Close()
}
