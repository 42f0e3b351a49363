package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cardshare/internal/cards/models"
	"cardshare/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func newTestCard(owner, attribute string) *models.Card {
	return &models.Card{
		OwnerID:     owner,
		Title:       "Photosynthesis",
		Description: "Plants convert light to energy",
		Attribute:   attribute,
		ShareCode:   uuid.NewString(),
		ShareLink:   "http://localhost:3001/flashcards/share/" + uuid.NewString(),
	}
}

func (s *InMemoryStoreSuite) TestCreateAssignsID() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)
	s.NotEmpty(created.ID)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, found)
}

func (s *InMemoryStoreSuite) TestCreateRejectsDuplicateShareCode() {
	first := newTestCard("u1", "biology")
	_, err := s.store.Create(s.ctx, first)
	s.Require().NoError(err)

	dup := newTestCard("u2", "math")
	dup.ShareCode = first.ShareCode
	_, err = s.store.Create(s.ctx, dup)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestReturnedCardsAreCopies() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)

	created.Title = "mutated by caller"
	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("Photosynthesis", found.Title)
}

func (s *InMemoryStoreSuite) TestFindByFilter() {
	for _, owner := range []string{"u1", "u1", "u2"} {
		_, err := s.store.Create(s.ctx, newTestCard(owner, "biology"))
		s.Require().NoError(err)
	}

	all, err := s.store.Find(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	mine, err := s.store.Find(s.ctx, models.ByOwner("u1"))
	s.Require().NoError(err)
	s.Len(mine, 2)

	none, err := s.store.Find(s.ctx, models.ByOwner("nobody"))
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *InMemoryStoreSuite) TestFindOneByShareCode() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)

	found, err := s.store.FindOne(s.ctx, models.ByShareCode(created.ShareCode))
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)

	_, err = s.store.FindOne(s.ctx, models.ByShareCode(uuid.NewString()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDistinctAttributes() {
	for _, attr := range []string{"biology", "math", "biology", "history", "math"} {
		_, err := s.store.Create(s.ctx, newTestCard("u1", attr))
		s.Require().NoError(err)
	}

	attrs, err := s.store.DistinctAttributes(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"biology", "history", "math"}, attrs)
}

func (s *InMemoryStoreSuite) TestDistinctAttributesComparesExactValues() {
	for _, attr := range []string{"bio", " bio", "bio ", "bio"} {
		_, err := s.store.Create(s.ctx, newTestCard("u1", attr))
		s.Require().NoError(err)
	}

	attrs, err := s.store.DistinctAttributes(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"bio", " bio", "bio "}, attrs)
}

func (s *InMemoryStoreSuite) TestEmptyFilterValuesMatchNothing() {
	_, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, newTestCard("u2", "math"))
	s.Require().NoError(err)

	_, err = s.store.FindOne(s.ctx, models.ByShareCode(""))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindOne(s.ctx, models.ByOwner(""))
	s.ErrorIs(err, sentinel.ErrNotFound)

	owned, err := s.store.Find(s.ctx, models.ByOwner(""))
	s.Require().NoError(err)
	s.Empty(owned)

	all, err := s.store.Find(s.ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *InMemoryStoreSuite) TestUpdateReturnsPostUpdateDocument() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)

	title := "Respiration"
	updated, err := s.store.UpdateByID(s.ctx, created.ID, models.CardPatch{Title: &title})
	s.Require().NoError(err)

	want := *created
	want.Title = title
	s.Equal(&want, updated)

	_, err = s.store.UpdateByID(s.ctx, "missing", models.CardPatch{Title: &title})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDeleteFreesShareCode() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)

	deleted, err := s.store.DeleteByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, deleted)

	_, err = s.store.FindByID(s.ctx, created.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindOne(s.ctx, models.ByShareCode(created.ShareCode))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.DeleteByID(s.ctx, created.ID)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

// TestConcurrentPartialUpdates verifies disjoint patches on the same card are
// not lost to each other.
func (s *InMemoryStoreSuite) TestConcurrentPartialUpdates() {
	created, err := s.store.Create(s.ctx, newTestCard("u1", "biology"))
	s.Require().NoError(err)

	title, desc := "T", "D"
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.store.UpdateByID(s.ctx, created.ID, models.CardPatch{Title: &title})
	}()
	go func() {
		defer wg.Done()
		_, _ = s.store.UpdateByID(s.ctx, created.ID, models.CardPatch{Description: &desc})
	}()
	wg.Wait()

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("T", found.Title)
	s.Equal("D", found.Description)
}
