package journal

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swick/internal/database"
	"swick/internal/logger"
	"swick/internal/payment"
)

func TestReferences(t *testing.T) {
	place := payment.NewPlaceOrderParams(1, 14, nil, nil, "pm", decimal.RequireFromString("12.50"))
	orderID, table := references(place)
	assert.Nil(t, orderID)
	require.NotNil(t, table)
	assert.Equal(t, 14, *table)

	tipParams := payment.NewAddTipParams(1, 88, decimal.RequireFromString("2.00"), "pm")
	orderID, table = references(tipParams)
	assert.Nil(t, table)
	require.NotNil(t, orderID)
	assert.Equal(t, 88, *orderID)
}

// Runs against a real database when SWICK_TEST_DATABASE_URL is set.
func TestPostgresJournal(t *testing.T) {
	url := os.Getenv("SWICK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SWICK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	db := &database.DB{Pool: pool}
	defer db.Close()
	require.NoError(t, db.RunMigrations(ctx))

	j := NewPostgres(db, logger.Discard())
	params := payment.NewPlaceOrderParams(3, 7, nil, nil, "pm", decimal.RequireFromString("12.50"))

	id, err := j.Begin(ctx, params)
	require.NoError(t, err)
	require.NoError(t, j.Authorized(ctx, id, "ch_test"))
	require.NoError(t, j.Unreconciled(ctx, id, "server rejected"))

	open, err := j.ListUnreconciled(ctx)
	require.NoError(t, err)
	var found *Attempt
	for i := range open {
		if open[i].ID == id {
			found = &open[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, payment.KindPlaceOrder, found.Kind)
	assert.Equal(t, "12.50", found.Amount.StringFixed(2))
	require.NotNil(t, found.ChargeRef)
	assert.Equal(t, "ch_test", *found.ChargeRef)

	require.NoError(t, j.Resolve(ctx, id, "refunded at the counter"))
	assert.ErrorIs(t, j.Resolve(ctx, id, "twice"), ErrNotUnreconciled)
	assert.ErrorIs(t, j.Confirmed(ctx, "00000000-0000-0000-0000-000000000000"), errUnknownAttempt)

	confirmed, err := j.Begin(ctx, params)
	require.NoError(t, err)
	require.NoError(t, j.Confirmed(ctx, confirmed))
	assert.ErrorIs(t, j.Resolve(ctx, confirmed, "not needed"), ErrNotUnreconciled)
}

// Runs against a real database when SWICK_TEST_DATABASE_URL is set.
func TestPostgresJournal_ConcurrentResolve(t *testing.T) {
	url := os.Getenv("SWICK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SWICK_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	db := &database.DB{Pool: pool}
	defer db.Close()
	require.NoError(t, db.RunMigrations(ctx))

	j := NewPostgres(db, logger.Discard())
	id, err := j.Begin(ctx, payment.NewAddTipParams(3, 41, decimal.RequireFromString("2.00"), "pm"))
	require.NoError(t, err)
	require.NoError(t, j.Unreconciled(ctx, id, "timeout"))

	const resolvers = 8
	errs := make(chan error, resolvers)
	for i := 0; i < resolvers; i++ {
		go func() { errs <- j.Resolve(ctx, id, "refunded") }()
	}
	succeeded := 0
	for i := 0; i < resolvers; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNotUnreconciled)
		}
	}
	assert.Equal(t, 1, succeeded)
}
