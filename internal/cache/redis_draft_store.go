package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DraftChannel is the pub/sub channel carrying draft changes between instances.
const DraftChannel = "draft-changes"

type redisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
	feed   *feed

	mu sync.Mutex
	ps *redis.PubSub
}

// NewRedisDraftStore returns a DraftStore shared by every server instance
// using the same Redis. Drafts expire after ttl of inactivity.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) DraftStore {
	return &redisDraftStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "redis_draft_store").Logger(),
		feed:   newFeed(),
	}
}

func (s *redisDraftStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get draft %s: %w", key, err)
	}
	return value, true, nil
}

func (s *redisDraftStore) Set(ctx context.Context, key, value, origin string) error {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("set draft %s: %w", key, err)
	}
	return s.publish(ctx, DraftChange{Key: key, Value: value, Origin: origin})
}

func (s *redisDraftStore) Remove(ctx context.Context, key, origin string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("remove draft %s: %w", key, err)
	}
	return s.publish(ctx, DraftChange{Key: key, Removed: true, Origin: origin})
}

func (s *redisDraftStore) publish(ctx context.Context, change DraftChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, DraftChannel, data).Err(); err != nil {
		return fmt.Errorf("publish draft change: %w", err)
	}
	return nil
}

func (s *redisDraftStore) Subscribe(ctx context.Context, key string, fn func(DraftChange)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ps == nil {
		ps := s.client.Subscribe(context.Background(), DraftChannel)
		if _, err := ps.Receive(ctx); err != nil {
			ps.Close()
			return nil, fmt.Errorf("subscribe %s: %w", DraftChannel, err)
		}
		s.ps = ps
		go s.listen(ps)
	}
	return s.feed.add(key, fn), nil
}

func (s *redisDraftStore) listen(ps *redis.PubSub) {
	for msg := range ps.Channel() {
		var change DraftChange
		if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
			s.logger.Warn().Err(err).Msg("dropping malformed draft change")
			continue
		}
		s.feed.publish(change)
	}
}

// Close stops the change feed. The client is owned by the caller.
func (s *redisDraftStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ps == nil {
		return nil
	}
	err := s.ps.Close()
	s.ps = nil
	return err
}
