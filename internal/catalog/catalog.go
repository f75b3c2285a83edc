// Package catalog reads purchasable books from the Postgres catalog that the
// admin dashboard maintains. This service never writes to it.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when no catalog row matches the id.
var ErrItemNotFound = errors.New("item not found")

// Item is a purchasable digital product backed by a stored asset.
type Item struct {
	ID            string
	Title         string
	Description   string
	CoverImageURL string
	AssetRef      string // object key of the e-book file
	Price         decimal.Decimal
}

// PriceCents returns the unit price in minor currency units.
func (i Item) PriceCents() int64 {
	return i.Price.Shift(2).Round(0).IntPart()
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads items from the books table.
type Store struct {
	db Querier
}

// NewStore returns a catalog Store over db.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

const selectItem = `select id::text, title, coalesce(description, ''), coalesce(cover_image_url, ''), coalesce(ebook, ''), price::text
from books where id::text = $1`

// Get reads one item by id. Returns ErrItemNotFound if there is no such row.
func (s *Store) Get(ctx context.Context, id string) (*Item, error) {
	if id == "" {
		return nil, ErrItemNotFound
	}
	var (
		it    Item
		price string
	)
	err := s.db.QueryRow(ctx, selectItem, id).
		Scan(&it.ID, &it.Title, &it.Description, &it.CoverImageURL, &it.AssetRef, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
		}
		return nil, fmt.Errorf("query item %s: %w", id, err)
	}
	it.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price for item %s: %w", id, err)
	}
	return &it, nil
}
