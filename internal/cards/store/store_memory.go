package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"cardshare/internal/cards/models"
	"cardshare/pkg/platform/sentinel"
	pstrings "cardshare/pkg/platform/strings"
)

// InMemoryStore keeps cards in a map guarded by a single mutex, which makes
// update and delete atomic per card. Returned cards are copies.
type InMemoryStore struct {
	mu          sync.RWMutex
	cards       map[string]*models.Card
	byShareCode map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		cards:       make(map[string]*models.Card),
		byShareCode: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, card *models.Card) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byShareCode[card.ShareCode]; taken {
		return nil, sentinel.ErrConflict
	}
	stored := *card
	stored.ID = uuid.NewString()
	s.cards[stored.ID] = &stored
	s.byShareCode[stored.ShareCode] = stored.ID
	return clone(&stored), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if card, ok := s.cards[id]; ok {
		return clone(card), nil
	}
	return nil, sentinel.ErrNotFound
}

// Find returns matching cards ordered by id so results are stable across calls.
func (s *InMemoryStore) Find(_ context.Context, filter models.Filter) ([]*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Card, 0, len(s.cards))
	for _, card := range s.cards {
		if filter.Matches(card) {
			result = append(result, clone(card))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryStore) FindOne(_ context.Context, filter models.Filter) (*models.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter.ShareCode != nil {
		id, ok := s.byShareCode[*filter.ShareCode]
		if !ok || !filter.Matches(s.cards[id]) {
			return nil, sentinel.ErrNotFound
		}
		return clone(s.cards[id]), nil
	}
	for _, card := range s.cards {
		if filter.Matches(card) {
			return clone(card), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// DistinctAttributes returns each attribute once, sorted. Callers must not
// rely on the ordering; other stores make no such promise.
func (s *InMemoryStore) DistinctAttributes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	values := make([]string, 0, len(s.cards))
	for _, card := range s.cards {
		values = append(values, card.Attribute)
	}
	s.mu.RUnlock()

	distinct := pstrings.Dedupe(values)
	sort.Strings(distinct)
	return distinct, nil
}

func (s *InMemoryStore) UpdateByID(_ context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	patch.Apply(card)
	return clone(card), nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id string) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.cards, id)
	delete(s.byShareCode, card.ShareCode)
	return card, nil
}

func clone(c *models.Card) *models.Card {
	cp := *c
	return &cp
}
