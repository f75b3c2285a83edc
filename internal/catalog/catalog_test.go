package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []string
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		*(d.(*string)) = r.values[i]
	}
	return nil
}

type fakeDB struct {
	rows    map[string]fakeRow
	lastSQL string
	lastArg any
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	f.lastArg = args[0]
	row, ok := f.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return row
}

func TestGet_ReturnsItem(t *testing.T) {
	db := &fakeDB{rows: map[string]fakeRow{
		"42": {values: []string{"42", "The Secret Library", "A mystery", "https://cdn/cover.jpg", "secret-library.pdf", "24.99"}},
	}}
	s := NewStore(db)

	it, err := s.Get(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "The Secret Library", it.Title)
	assert.Equal(t, "secret-library.pdf", it.AssetRef)
	assert.Equal(t, "24.99", it.Price.StringFixed(2))
	assert.Equal(t, int64(2499), it.PriceCents())
	assert.Equal(t, "42", db.lastArg)
}

func TestGet_NotFound(t *testing.T) {
	s := NewStore(&fakeDB{rows: map[string]fakeRow{}})

	_, err := s.Get(context.Background(), "404")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestGet_EmptyIDIsNotFound(t *testing.T) {
	db := &fakeDB{}
	_, err := NewStore(db).Get(context.Background(), "")
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Empty(t, db.lastSQL, "empty id must not hit the database")
}

func TestGet_QueryError(t *testing.T) {
	boom := errors.New("connection reset")
	s := NewStore(&fakeDB{rows: map[string]fakeRow{"1": {err: boom}}})

	_, err := s.Get(context.Background(), "1")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrItemNotFound)
}

func TestGet_BadPrice(t *testing.T) {
	s := NewStore(&fakeDB{rows: map[string]fakeRow{
		"1": {values: []string{"1", "T", "", "", "a.pdf", "not-a-number"}},
	}})

	_, err := s.Get(context.Background(), "1")
	require.Error(t, err)
}

func TestPriceCents_Rounds(t *testing.T) {
	it := Item{Price: decimal.RequireFromString("9.995")}
	assert.Equal(t, int64(1000), it.PriceCents())
}
