package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"cardshare/internal/cards/models"
	"cardshare/internal/cards/service"
	"cardshare/internal/cards/shareid"
	"cardshare/internal/platform/middleware"
	dErrors "cardshare/pkg/domain-errors"
	"cardshare/pkg/platform/httputil"
)

const maxBodyBytes = 1 << 20

// Service defines the card operations the handler exposes.
type Service interface {
	Create(ctx context.Context, req models.CreateCardRequest) (*models.Card, error)
	FindAll(ctx context.Context) ([]*models.Card, error)
	FindOne(ctx context.Context, id string) (*models.Card, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*models.Card, error)
	ListDistinctAttributes(ctx context.Context) ([]models.AttributeGroup, error)
	FindByShareCode(ctx context.Context, shareCode string) (*models.Card, error)
	Update(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error)
	Remove(ctx context.Context, id string) (*models.Card, error)
}

// Handler serves the /flashcards endpoints.
type Handler struct {
	logger    *slog.Logger
	cards     Service
	validator middleware.TokenValidator
}

// New creates a card Handler. A nil validator leaves mutations unauthenticated.
func New(cards Service, logger *slog.Logger, validator middleware.TokenValidator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		cards:     cards,
		validator: validator,
	}
}

// Register registers the card routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/flashcards", func(r chi.Router) {
		r.Get("/", h.handleFindAll)
		r.Get("/attributes", h.handleListAttributes)
		r.Get("/user/{ownerId}", h.handleFindByOwner)
		r.Get("/share/{shareCode}", h.handleFindByShareCode)
		r.Get("/{id}", h.handleFindOne)

		r.Group(func(r chi.Router) {
			if h.validator != nil {
				r.Use(middleware.RequireAuth(h.validator, h.logger))
			}
			r.Post("/", h.handleCreate)
			r.Patch("/{id}", h.handleUpdate)
			r.Delete("/{id}", h.handleRemove)
		})
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	// An authenticated caller always owns what they create.
	if userID := middleware.GetUserID(ctx); userID != "" {
		req.OwnerID = userID
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}

	card, err := h.cards.Create(ctx, req)
	if err != nil {
		h.writeError(ctx, w, "create", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, card)
}

func (h *Handler) handleFindAll(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.FindAll(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "find_all", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cards)
}

func (h *Handler) handleFindOne(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.FindOne(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, "find_one", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleFindByOwner(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.FindByOwner(r.Context(), chi.URLParam(r, "ownerId"))
	if err != nil {
		h.writeError(r.Context(), w, "find_by_owner", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cards)
}

func (h *Handler) handleListAttributes(w http.ResponseWriter, r *http.Request) {
	groups, err := h.cards.ListDistinctAttributes(r.Context())
	if err != nil {
		h.writeError(r.Context(), w, "list_attributes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleFindByShareCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "shareCode")
	// No card can carry a malformed code, so skip the store round trip.
	if !shareid.Valid(code) {
		h.writeError(r.Context(), w, "find_by_share_code", dErrors.New(dErrors.CodeNotFound, service.MsgNotFound))
		return
	}
	card, err := h.cards.FindByShareCode(r.Context(), code)
	if err != nil {
		h.writeError(r.Context(), w, "find_by_share_code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.UpdateCardRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}

	card, err := h.cards.Update(ctx, chi.URLParam(r, "id"), req.Patch())
	if err != nil {
		h.writeError(ctx, w, "update", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Remove(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(r.Context(), w, "remove", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, card)
}

// decode reads a JSON body into dst, rejecting unknown keys. It writes the
// error response itself and reports whether the handler should continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid card request body",
			"request_id", chimw.GetReqID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	attrs := []any{
		"operation", op,
		"request_id", chimw.GetReqID(ctx),
		"error", err.Error(),
	}
	if cause := dErrors.CauseOf(err); cause != nil {
		attrs = append(attrs, "cause", cause.Error())
	}
	switch {
	case dErrors.HasCode(err, dErrors.CodeInternal):
		h.logger.ErrorContext(ctx, "card request failed", attrs...)
	case dErrors.CodeOf(err) == dErrors.CodeInternal:
		h.logger.ErrorContext(ctx, "card request failed with unclassified error", attrs...)
	default:
		h.logger.WarnContext(ctx, "card request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}
