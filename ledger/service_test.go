package ledger_test

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kiosk-ledger/ledger"
	"github.com/warp/kiosk-ledger/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================
// The fixture seeds three users and one product against the in-memory store;
// every derivation test file in this package builds on it.

type fixture struct {
	svc *ledger.Service
	mem *store.Memory

	alice ledger.User
	bob   ledger.User
	carol ledger.User
	cola  ledger.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemory()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := ledger.NewService(mem, mem, logger)

	ctx := context.Background()
	alice, err := svc.CreateUser(ctx, "alice", "", "")
	require.NoError(t, err)
	bob, err := svc.CreateUser(ctx, "bob", "", "")
	require.NoError(t, err)
	carol, err := svc.CreateUser(ctx, "carol", "", "")
	require.NoError(t, err)
	cola, err := svc.CreateProduct(ctx, "4001", "cola", false)
	require.NoError(t, err)

	return &fixture{svc: svc, mem: mem, alice: alice, bob: bob, carol: carol, cola: cola}
}

func (f *fixture) balance(t *testing.T, userID int64) int64 {
	t.Helper()
	b, err := f.svc.UserBalance(context.Background(), userID, ledger.Query{})
	require.NoError(t, err)
	return b
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	s, err := f.svc.ProductStock(context.Background(), productID, ledger.Query{})
	require.NoError(t, err)
	return s
}

func (f *fixture) price(t *testing.T, productID int64, includeInterest bool) int64 {
	t.Helper()
	p, err := f.svc.ProductPrice(context.Background(), productID, ledger.Query{}, includeInterest)
	require.NoError(t, err)
	return p
}

// =============================================================================
// ENTITY TESTS
// =============================================================================

func TestService_CreateUser_DuplicateName_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateUser(context.Background(), "alice", "", "")
	assert.ErrorIs(t, err, ledger.ErrDuplicateUser)
}

func TestService_CreateUser_EmptyName_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateUser(context.Background(), "", "", "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_CreateProduct_DuplicateBarCode_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateProduct(context.Background(), "4001", "fanta", false)
	assert.ErrorIs(t, err, ledger.ErrDuplicateProduct)
}

func TestService_UnknownUser_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UserBalance(context.Background(), 999, ledger.Query{})
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)

	_, err = f.svc.AdjustBalance(context.Background(), 999, 10, "")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)
}

func TestService_UnknownProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ProductStock(context.Background(), 999, ledger.Query{})
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)

	_, err = f.svc.BuyProduct(context.Background(), f.alice.ID, 999, 1, "")
	assert.ErrorIs(t, err, ledger.ErrProductNotFound)
}

// =============================================================================
// QUERY BOUND TESTS
// =============================================================================

func TestService_QueryBound_ByTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: two balance adjustments
	first, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(ctx, f.alice.ID, 50, "")
	require.NoError(t, err)

	// THEN: an inclusive bound at the first sees only it
	got, err := f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{Tx: &first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	// AND: an exclusive bound at the first sees nothing
	got, err = f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{Tx: &first.ID, Exclusive: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	// AND: no bound sees everything
	assert.Equal(t, int64(150), f.balance(t, f.alice.ID))
}

func TestService_QueryBound_ByTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)
	second, err := f.svc.AdjustBalance(ctx, f.alice.ID, 50, "")
	require.NoError(t, err)

	at := first.Time
	got, err := f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{At: &at})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	at = second.Time
	got, err = f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{At: &at})
	require.NoError(t, err)
	assert.Equal(t, int64(150), got)
}

func TestService_QueryBound_BothSet_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)

	at := tx.Time
	_, err = f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{At: &at, Tx: &tx.ID})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestService_QueryBound_UnknownTransaction_Rejected(t *testing.T) {
	f := newFixture(t)

	missing := int64(12345)
	_, err := f.svc.UserBalance(context.Background(), f.alice.ID, ledger.Query{Tx: &missing})
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

// =============================================================================
// LOG QUERY TESTS
// =============================================================================

func TestService_Transactions_FilterAndLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AdjustBalance(ctx, f.alice.ID, 10, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(ctx, f.bob.ID, 20, "")
	require.NoError(t, err)
	_, err = f.svc.Transfer(ctx, f.alice.ID, f.bob.ID, 5, "")
	require.NoError(t, err)

	// Alice matches as actor and as a party to the transfer
	txs, err := f.svc.Transactions(ctx, ledger.LogFilter{UserID: &f.alice.ID})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// Bob matches his adjustment and the transfer he received
	txs, err = f.svc.Transactions(ctx, ledger.LogFilter{UserID: &f.bob.ID})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// Limit keeps the most recent, still ascending
	txs, err = f.svc.Transactions(ctx, ledger.LogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.TxTransfer, txs[1].Type)
	assert.True(t, txs[0].Time.Before(txs[1].Time))

	// Type filter
	transfer := ledger.TxTransfer
	txs, err = f.svc.Transactions(ctx, ledger.LogFilter{Type: &transfer})
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

// =============================================================================
// ORDERING INVARIANT
// =============================================================================

func TestService_Timestamps_StrictlyIncreasing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Rapid appends must never collide on time.
	var last int64
	for i := 0; i < 100; i++ {
		tx, err := f.svc.AdjustBalance(ctx, f.alice.ID, 1, "")
		require.NoError(t, err)
		require.Greater(t, tx.Time.UnixNano(), last)
		last = tx.Time.UnixNano()
	}
}
