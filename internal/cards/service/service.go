package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Publisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cardshare/internal/cards/models"
	"cardshare/internal/cards/shareid"
	"cardshare/internal/notify"
	"cardshare/internal/platform/metrics"
	dErrors "cardshare/pkg/domain-errors"
	"cardshare/pkg/platform/sentinel"
)

// Caller-facing messages. Store error text never reaches callers.
const (
	MsgNotFound        = "No flash card found"
	MsgDeleteNotFound  = "No card found"
	MsgSaveFailed      = "Error saving flash card"
	MsgListFailed      = "Error getting flash cards"
	MsgGetFailed       = "Error getting flash card"
	MsgAttributeFailed = "Error getting flash card attributes"
	MsgUpdateFailed    = "Error updating flash card"
	MsgDeleteFailed    = "Error deleting flash card"
)

const (
	opCreate = "create"
	opUpdate = "update"
	opRemove = "remove"

	defaultShareBaseURL = "http://localhost:3001/flashcards/share"

	// createAttempts bounds retries when a generated share code collides.
	createAttempts = 3
)

// Store is the document store the service persists cards in. Not-found is
// reported as sentinel.ErrNotFound; UpdateByID and DeleteByID must be atomic
// and return the post-update and deleted documents respectively.
type Store interface {
	Create(ctx context.Context, card *models.Card) (*models.Card, error)
	FindByID(ctx context.Context, id string) (*models.Card, error)
	Find(ctx context.Context, filter models.Filter) ([]*models.Card, error)
	FindOne(ctx context.Context, filter models.Filter) (*models.Card, error)
	DistinctAttributes(ctx context.Context) ([]string, error)
	UpdateByID(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error)
	DeleteByID(ctx context.Context, id string) (*models.Card, error)
}

// Publisher queues card events for asynchronous delivery. Emit must not
// block on delivery; its error only reports a failure to queue.
type Publisher interface {
	Emit(ctx context.Context, channel string, payload notify.EventPayload) error
}

// Service manages the card lifecycle. It is stateless and safe for concurrent
// use; concurrency control on a single card is left to the Store.
type Service struct {
	store        Store
	publisher    Publisher
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	shareBaseURL string
	newToken     func() string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithShareBaseURL sets the prefix share links are built on.
func WithShareBaseURL(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.shareBaseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithTokenGenerator replaces shareid.New, mainly for tests.
func WithTokenGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// New constructs a Service.
func New(store Store, publisher Publisher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("card store is required")
	}
	if publisher == nil {
		return nil, errors.New("event publisher is required")
	}
	s := &Service{
		store:        store,
		publisher:    publisher,
		logger:       slog.Default(),
		tracer:       otel.Tracer("cardshare/internal/cards/service"),
		shareBaseURL: defaultShareBaseURL,
		newToken:     shareid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create persists a new card with a fresh share code and a share link built
// on a second, independent token, then emits card_created.
func (s *Service) Create(ctx context.Context, req models.CreateCardRequest) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.Create")
	defer span.End()

	var (
		created *models.Card
		err     error
	)
	for range createAttempts {
		created, err = s.store.Create(ctx, &models.Card{
			OwnerID:     req.OwnerID,
			Title:       req.Title,
			Description: req.Description,
			Attribute:   req.Attribute,
			ShareCode:   s.newToken(),
			ShareLink:   s.shareBaseURL + "/" + s.newToken(),
		})
		if !errors.Is(err, sentinel.ErrConflict) {
			break
		}
		s.logger.WarnContext(ctx, "share code collision, regenerating")
	}
	if err != nil {
		return nil, s.persistenceError(ctx, span, opCreate, MsgSaveFailed, err)
	}

	span.SetAttributes(attribute.String("card.id", created.ID))
	s.metrics.IncCardMutation(opCreate)
	s.emit(ctx, notify.ChannelCardCreated, created)
	return created, nil
}

// FindAll returns every card. An empty store yields an empty slice.
func (s *Service) FindAll(ctx context.Context) ([]*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.FindAll")
	defer span.End()

	cards, err := s.store.Find(ctx, models.Filter{})
	if err != nil {
		return nil, s.persistenceError(ctx, span, "find_all", MsgListFailed, err)
	}
	return cards, nil
}

// FindOne returns the card with the given id.
func (s *Service) FindOne(ctx context.Context, id string) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.FindOne", trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	card, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, MsgNotFound)
		}
		return nil, s.persistenceError(ctx, span, "find_one", MsgGetFailed, err)
	}
	return card, nil
}

// FindByOwner returns the cards created by ownerID, possibly none.
func (s *Service) FindByOwner(ctx context.Context, ownerID string) ([]*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.FindByOwner")
	defer span.End()

	cards, err := s.store.Find(ctx, models.ByOwner(ownerID))
	if err != nil {
		return nil, s.persistenceError(ctx, span, "find_by_owner", MsgListFailed, err)
	}
	return cards, nil
}

// ListDistinctAttributes returns one group per distinct attribute value. The
// order is whatever the store produces and must not be relied upon.
func (s *Service) ListDistinctAttributes(ctx context.Context) ([]models.AttributeGroup, error) {
	ctx, span := s.tracer.Start(ctx, "cards.ListDistinctAttributes")
	defer span.End()

	attrs, err := s.store.DistinctAttributes(ctx)
	if err != nil {
		return nil, s.persistenceError(ctx, span, "list_attributes", MsgAttributeFailed, err)
	}
	groups := make([]models.AttributeGroup, 0, len(attrs))
	for _, a := range attrs {
		groups = append(groups, models.AttributeGroup{Attribute: a})
	}
	return groups, nil
}

// FindByShareCode looks a card up by its share code rather than its id.
func (s *Service) FindByShareCode(ctx context.Context, shareCode string) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.FindByShareCode")
	defer span.End()

	card, err := s.store.FindOne(ctx, models.ByShareCode(shareCode))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, MsgNotFound)
		}
		return nil, s.persistenceError(ctx, span, "find_by_share_code", MsgGetFailed, err)
	}
	return card, nil
}

// Update applies patch and returns the post-update card. The card_updated
// payload is built from the same document that is returned.
func (s *Service) Update(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.Update", trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	updated, err := s.store.UpdateByID(ctx, id, patch)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, MsgNotFound)
		}
		return nil, s.persistenceError(ctx, span, opUpdate, MsgUpdateFailed, err)
	}

	s.metrics.IncCardMutation(opUpdate)
	s.emit(ctx, notify.ChannelCardUpdated, updated)
	return updated, nil
}

// Remove hard-deletes the card and returns its last state.
func (s *Service) Remove(ctx context.Context, id string) (*models.Card, error) {
	ctx, span := s.tracer.Start(ctx, "cards.Remove", trace.WithAttributes(attribute.String("card.id", id)))
	defer span.End()

	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, MsgDeleteNotFound)
		}
		return nil, s.persistenceError(ctx, span, opRemove, MsgDeleteFailed, err)
	}

	s.metrics.IncCardMutation(opRemove)
	s.emit(ctx, notify.ChannelCardDeleted, deleted)
	return deleted, nil
}

// emit hands the event to the publisher detached from the request's
// cancellation. A queueing failure is logged and otherwise ignored.
func (s *Service) emit(ctx context.Context, channel string, card *models.Card) {
	payload := notify.EventPayload{
		Title:       card.Title,
		Description: card.Description,
		ShareLink:   card.ShareLink,
		Attribute:   card.Attribute,
	}
	if err := s.publisher.Emit(context.WithoutCancel(ctx), channel, payload); err != nil {
		s.logger.WarnContext(ctx, "card event not queued",
			"channel", channel,
			"card_id", card.ID,
			"error", err,
		)
	}
}

func (s *Service) persistenceError(ctx context.Context, span trace.Span, op, msg string, err error) error {
	s.logger.ErrorContext(ctx, "card store failure",
		"operation", op,
		"error", err,
	)
	s.metrics.IncStoreFailure(op)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
