package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kiosk-ledger/ledger"
)

func owners(t *testing.T, f *fixture, productID int64) []int64 {
	t.Helper()
	got, err := f.svc.ProductOwners(context.Background(), productID, ledger.Query{})
	require.NoError(t, err)
	return got
}

// =============================================================================
// OWNERSHIP INFERENCE
// =============================================================================

func TestOwnership_AttributesBackward_RemovalsInflateTheRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: alice adds 2, bob adds 3, carol buys 1
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, f.bob.ID, f.cola.ID, 0, 10, 3, "")
	require.NoError(t, err)
	_, err = f.svc.BuyProduct(ctx, f.carol.ID, f.cola.ID, 1, "")
	require.NoError(t, err)

	// THEN: walking backward, the buy raises the unexplained remainder from
	// 4 to 5, which bob's and alice's additions then account for. Most
	// recent contribution first.
	assert.Equal(t,
		[]int64{f.bob.ID, f.bob.ID, f.bob.ID, f.alice.ID, f.alice.ID},
		owners(t, f, f.cola.ID))
}

func TestOwnership_EmptyWhenStockNotPositive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Zero stock: everything bought
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 2, "")
	require.NoError(t, err)
	assert.Empty(t, owners(t, f, f.cola.ID))

	// Negative stock: oversold
	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 1, "")
	require.NoError(t, err)
	assert.Empty(t, owners(t, f, f.cola.ID))
}

func TestOwnership_PhantomStockHasNoOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: one real unit and two that appeared via a correction
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 1, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustStock(ctx, f.bob.ID, f.cola.ID, 2, "found on shelf")
	require.NoError(t, err)

	// THEN: stock is 3 but only alice's unit has an owner
	assert.Equal(t, int64(3), f.stock(t, f.cola.ID))
	assert.Equal(t, []int64{f.alice.ID}, owners(t, f, f.cola.ID))
}

func TestOwnership_NegativeAdjustmentTreatedAsRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: alice adds 2, bob adds 2, then 3 disappear in an audit
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, f.bob.ID, f.cola.ID, 0, 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustStock(ctx, f.carol.ID, f.cola.ID, -3, "audit")
	require.NoError(t, err)

	// THEN: the walk passes the removal (remainder 1 -> 4) and both
	// additions account for it in full
	assert.Equal(t, int64(1), f.stock(t, f.cola.ID))
	assert.Equal(t,
		[]int64{f.bob.ID, f.bob.ID, f.alice.ID, f.alice.ID},
		owners(t, f, f.cola.ID))
}

func TestOwnership_JointConsumesStockOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 3, "")
	require.NoError(t, err)
	_, err = f.svc.JointBuyProduct(ctx, f.cola.ID, 2, f.bob.ID,
		[]int64{f.bob.ID, f.carol.ID}, "")
	require.NoError(t, err)

	// The parent consumed 2 and the children consumed nothing, so the walk
	// sees one removal of 2 and attributes all three added units to alice.
	assert.Equal(t, int64(1), f.stock(t, f.cola.ID))
	assert.Equal(t,
		[]int64{f.alice.ID, f.alice.ID, f.alice.ID},
		owners(t, f, f.cola.ID))
}
