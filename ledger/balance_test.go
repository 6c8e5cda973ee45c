package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// BASIC BALANCE FOLDS
// =============================================================================

func TestBalance_AdjustAndTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: alice 100, bob 50
	_, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "topup")
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(ctx, f.bob.ID, 50, "topup")
	require.NoError(t, err)

	// WHEN: alice sends bob 30
	_, err = f.svc.Transfer(ctx, f.alice.ID, f.bob.ID, 30, "lunch")
	require.NoError(t, err)

	// THEN: 70 / 80
	assert.Equal(t, int64(70), f.balance(t, f.alice.ID))
	assert.Equal(t, int64(80), f.balance(t, f.bob.ID))
}

func TestBalance_Transfer_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Transfer(ctx, f.alice.ID, f.alice.ID, 10, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.Transfer(ctx, f.alice.ID, f.bob.ID, 0, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = f.svc.Transfer(ctx, f.alice.ID, f.bob.ID, -5, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestBalance_AddProduct_CreditsTheRestocker(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 2 units worth 27 each, credited 53 (less than worth is fine)
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 53, 27, 2, "")
	require.NoError(t, err)

	assert.Equal(t, int64(53), f.balance(t, f.alice.ID))
}

// =============================================================================
// PURCHASE COST
// =============================================================================

func TestBalance_Buy_DebitsDerivedCost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 50, 25, 2, "")
	require.NoError(t, err)

	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 1, "")
	require.NoError(t, err)

	// Default interest 100, no penalty: cost = price
	assert.Equal(t, int64(-25), f.balance(t, f.bob.ID))
}

func TestBalance_Buy_SingleCeilingAcrossInterestAndPenalty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: price 3, interest 110%, penalty x1.5 under a threshold of 1000
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 3, 10, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustInterest(ctx, f.alice.ID, 110, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustPenalty(ctx, f.alice.ID, 1000, 150, "")
	require.NoError(t, err)

	// WHEN: bob (balance 0 < 1000) buys one unit
	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 1, "")
	require.NoError(t, err)

	// THEN: ceil(3 * 1.1 * 1.5) = ceil(4.95) = 5, not
	// ceil(ceil(3 * 1.1) * 1.5) = 6. One ceiling at the end of the chain.
	assert.Equal(t, int64(-5), f.balance(t, f.bob.ID))
}

func TestBalance_Penalty_UsesBalanceImmediatelyBeforePurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 3, 10, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustInterest(ctx, f.alice.ID, 110, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustPenalty(ctx, f.alice.ID, 1000, 150, "")
	require.NoError(t, err)

	// GIVEN: carol is above the threshold
	_, err = f.svc.AdjustBalance(ctx, f.carol.ID, 2000, "")
	require.NoError(t, err)

	// WHEN: she buys one unit
	_, err = f.svc.BuyProduct(ctx, f.carol.ID, f.cola.ID, 1, "")
	require.NoError(t, err)

	// THEN: no penalty, cost = ceil(3 * 1.1) = 4
	assert.Equal(t, int64(1996), f.balance(t, f.carol.ID))
}

func TestBalance_Buy_PricedAsOfPurchaseTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: bob buys at price 30
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 30, 2, "")
	require.NoError(t, err)
	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 1, "")
	require.NoError(t, err)

	// WHEN: a later restock changes the price
	_, err = f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 10, "")
	require.NoError(t, err)

	// THEN: bob's debit stays at the historical price
	assert.Equal(t, int64(-30), f.balance(t, f.bob.ID))
}
