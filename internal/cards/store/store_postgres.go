package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cardshare/internal/cards/models"
	"cardshare/pkg/platform/sentinel"
)

//go:embed schema.sql
var schema string

const (
	cardColumns = `id, owner_id, title, description, attribute, share_code, share_link`

	pqUniqueViolation = "23505"
)

// PostgresStore persists cards in PostgreSQL. Update and delete rely on
// single-statement RETURNING so each call is atomic per row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed card store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the flash_cards table and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure flash_cards schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, card *models.Card) (*models.Card, error) {
	query := `
		INSERT INTO flash_cards (owner_id, title, description, attribute, share_code, share_link)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + cardColumns
	row := s.db.QueryRowContext(ctx, query,
		card.OwnerID, card.Title, card.Description, card.Attribute, card.ShareCode, card.ShareLink)
	created, err := scanCard(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, fmt.Errorf("create card: %w", sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("create card: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.Card, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM flash_cards WHERE id = $1`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find card by id: %w", err)
	}
	return card, nil
}

func (s *PostgresStore) Find(ctx context.Context, filter models.Filter) ([]*models.Card, error) {
	where, args := filterClause(filter)
	rows, err := s.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM flash_cards`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}
	defer rows.Close()

	cards := make([]*models.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

func (s *PostgresStore) FindOne(ctx context.Context, filter models.Filter) (*models.Card, error) {
	where, args := filterClause(filter)
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM flash_cards`+where+` LIMIT 1`, args...)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

// DistinctAttributes returns one row per attribute in whatever order the
// planner produces.
func (s *PostgresStore) DistinctAttributes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT attribute FROM flash_cards GROUP BY attribute`)
	if err != nil {
		return nil, fmt.Errorf("distinct attributes: %w", err)
	}
	defer rows.Close()

	attrs := make([]string, 0)
	for rows.Next() {
		var attr string
		if err := rows.Scan(&attr); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return attrs, nil
}

// UpdateByID applies the set fields of patch and returns the updated row.
func (s *PostgresStore) UpdateByID(ctx context.Context, id string, patch models.CardPatch) (*models.Card, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	query := `
		UPDATE flash_cards SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			attribute   = COALESCE($4, attribute),
			share_link  = COALESCE($5, share_link),
			updated_at  = now()
		WHERE id = $1
		RETURNING ` + cardColumns
	row := s.db.QueryRowContext(ctx, query, id,
		nullable(patch.Title), nullable(patch.Description), nullable(patch.Attribute), nullable(patch.ShareLink))
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update card: %w", err)
	}
	return card, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id string) (*models.Card, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `DELETE FROM flash_cards WHERE id = $1 RETURNING `+cardColumns, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("delete card: %w", err)
	}
	return card, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.Attribute, &c.ShareCode, &c.ShareLink); err != nil {
		return nil, err
	}
	return &c, nil
}

func filterClause(f models.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		conds = append(conds, "owner_id = $"+strconv.Itoa(len(args)))
	}
	if f.ShareCode != nil {
		args = append(args, *f.ShareCode)
		conds = append(conds, "share_code = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
