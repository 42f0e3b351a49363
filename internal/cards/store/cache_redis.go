package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cardshare/internal/cards/models"
)

const (
	cardByIDKeyPrefix    = "cardshare:card:id:"
	cardByShareKeyPrefix = "cardshare:card:share:"

	// cardTombstone marks a deleted card. Encoded cards always start with
	// '{', so the marker cannot collide with a cached document.
	cardTombstone = "deleted"

	defaultCacheTTL = 5 * time.Minute
)

// Backend is the store contract CachedStore decorates.
type Backend interface {
	Create(ctx context.Context, card *models.Card) (*models.Card, error)
	FindByID(ctx context.Context, id string) (*models.Card, error)
	Find(ctx context.Context, filter models.Filter) ([]*models.Card, error)
	FindOne(ctx context.Context, filter models.Filter) (*models.Card, error)
	DistinctAttributes(ctx context.Context) ([]string, error)
	UpdateByID(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error)
	DeleteByID(ctx context.Context, id string) (*models.Card, error)
}

// CachedStore serves id and share-code lookups from Redis. Misses fill the
// cache with SETNX so a read that raced a write can never replace what the
// write stored. Updates overwrite both keys with the post-update document and
// deletes overwrite them with a tombstone that lives for one TTL. Redis
// failures are logged and the call falls through to the backend, so the
// cache never changes outcomes.
type CachedStore struct {
	backend Backend
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// CachedStoreOption configures a CachedStore.
type CachedStoreOption func(*CachedStore)

// WithCacheTTL sets how long cached cards live.
func WithCacheTTL(ttl time.Duration) CachedStoreOption {
	return func(s *CachedStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger used for cache failures.
func WithCacheLogger(logger *slog.Logger) CachedStoreOption {
	return func(s *CachedStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCachedStore wraps backend with a Redis read-through cache.
func NewCachedStore(backend Backend, client *redis.Client, opts ...CachedStoreOption) *CachedStore {
	s := &CachedStore{
		backend: backend,
		client:  client,
		ttl:     defaultCacheTTL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *CachedStore) Create(ctx context.Context, card *models.Card) (*models.Card, error) {
	return s.backend.Create(ctx, card)
}

func (s *CachedStore) FindByID(ctx context.Context, id string) (*models.Card, error) {
	key := cardByIDKeyPrefix + id
	if card, ok := s.get(ctx, key); ok {
		return card, nil
	}
	card, err := s.backend.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, card)
	return card, nil
}

func (s *CachedStore) Find(ctx context.Context, filter models.Filter) ([]*models.Card, error) {
	return s.backend.Find(ctx, filter)
}

// FindOne is cached only for pure share-code lookups.
func (s *CachedStore) FindOne(ctx context.Context, filter models.Filter) (*models.Card, error) {
	if filter.ShareCode == nil || *filter.ShareCode == "" || filter.OwnerID != nil {
		return s.backend.FindOne(ctx, filter)
	}
	key := cardByShareKeyPrefix + *filter.ShareCode
	if card, ok := s.get(ctx, key); ok {
		return card, nil
	}
	card, err := s.backend.FindOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	s.put(ctx, card)
	return card, nil
}

func (s *CachedStore) DistinctAttributes(ctx context.Context) ([]string, error) {
	return s.backend.DistinctAttributes(ctx)
}

func (s *CachedStore) UpdateByID(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	card, err := s.backend.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(card)
	if err != nil {
		s.invalidate(ctx, card)
		return card, nil
	}
	s.overwrite(ctx, card, raw)
	return card, nil
}

func (s *CachedStore) DeleteByID(ctx context.Context, id string) (*models.Card, error) {
	card, err := s.backend.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.overwrite(ctx, card, []byte(cardTombstone))
	return card, nil
}

func (s *CachedStore) get(ctx context.Context, key string) (*models.Card, bool) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WarnContext(ctx, "card cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	if string(raw) == cardTombstone {
		return nil, false
	}
	var card models.Card
	if err := json.Unmarshal(raw, &card); err != nil {
		s.logger.WarnContext(ctx, "card cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &card, true
}

// put caches a document read from the backend. Keys that already hold a
// value, including a tombstone, are left alone.
func (s *CachedStore) put(ctx context.Context, card *models.Card) {
	raw, err := json.Marshal(card)
	if err != nil {
		return
	}
	pipe := s.client.Pipeline()
	pipe.SetNX(ctx, cardByIDKeyPrefix+card.ID, raw, s.ttl)
	pipe.SetNX(ctx, cardByShareKeyPrefix+card.ShareCode, raw, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WarnContext(ctx, "card cache write failed", "card_id", card.ID, "error", err)
	}
}

// overwrite replaces both keys after a write. If Redis rejects it the keys
// are deleted instead; if that fails too they expire with the TTL.
func (s *CachedStore) overwrite(ctx context.Context, card *models.Card, raw []byte) {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, cardByIDKeyPrefix+card.ID, raw, s.ttl)
	pipe.Set(ctx, cardByShareKeyPrefix+card.ShareCode, raw, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WarnContext(ctx, "card cache overwrite failed", "card_id", card.ID, "error", err)
		s.invalidate(ctx, card)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, card *models.Card) {
	err := s.client.Del(ctx, cardByIDKeyPrefix+card.ID, cardByShareKeyPrefix+card.ShareCode).Err()
	if err != nil {
		s.logger.WarnContext(ctx, "card cache invalidation failed", "card_id", card.ID, "error", err)
	}
}
