package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// CHECKPOINT CACHE
// =============================================================================

func TestCache_Update_EmptyLog_NoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateCache(ctx))

	cp, err := f.mem.LatestCheckpoint(ctx)
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestCache_Update_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	latest, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)

	// WHEN: updating twice with no intervening appends
	require.NoError(t, f.svc.UpdateCache(ctx))
	require.NoError(t, f.svc.UpdateCache(ctx))

	// THEN: the newest checkpoint still covers the same transaction
	cp, err := f.mem.LatestCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, latest.ID, cp.TxID)

	// AND: results are unchanged
	assert.Equal(t, int64(100), f.balance(t, f.alice.ID))
}

func TestCache_Transparency_DeleteAllCheckpointsChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: a log with checkpoints built mid-sequence
	_, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)
	_, err = f.svc.AddProduct(ctx, f.bob.ID, f.cola.ID, 40, 20, 2, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateCache(ctx))

	_, err = f.svc.BuyProduct(ctx, f.alice.ID, f.cola.ID, 1, "")
	require.NoError(t, err)
	_, err = f.svc.Transfer(ctx, f.bob.ID, f.carol.ID, 15, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateCache(ctx))

	// WHEN: recording cached answers, then dropping every checkpoint
	cachedAlice := f.balance(t, f.alice.ID)
	cachedBob := f.balance(t, f.bob.ID)
	cachedCarol := f.balance(t, f.carol.ID)
	cachedPrice := f.price(t, f.cola.ID, false)
	cachedStock := f.stock(t, f.cola.ID)
	cachedOwners := owners(t, f, f.cola.ID)

	require.NoError(t, f.mem.DeleteCheckpoints(ctx))

	// THEN: full replay answers identically
	assert.Equal(t, cachedAlice, f.balance(t, f.alice.ID))
	assert.Equal(t, cachedBob, f.balance(t, f.bob.ID))
	assert.Equal(t, cachedCarol, f.balance(t, f.carol.ID))
	assert.Equal(t, cachedPrice, f.price(t, f.cola.ID, false))
	assert.Equal(t, cachedStock, f.stock(t, f.cola.ID))
	assert.Equal(t, cachedOwners, owners(t, f, f.cola.ID))
}

func TestCache_BackwardMerge_UnaffectedEntitiesKeepOlderCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: a checkpoint covering only alice
	_, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateCache(ctx))

	// AND: a later checkpoint whose suffix touches only bob
	_, err = f.svc.AdjustBalance(ctx, f.bob.ID, 50, "")
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateCache(ctx))

	// THEN: alice's cached balance comes from the older checkpoint
	cp, err := f.mem.LatestCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, cp)
	cached, ok, err := f.mem.CachedBalance(ctx, cp.TxID, f.alice.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), cached)

	// AND: her derived balance still answers through the chain
	assert.Equal(t, int64(100), f.balance(t, f.alice.ID))
	assert.Equal(t, int64(50), f.balance(t, f.bob.ID))
}

func TestCache_BoundedQueries_IgnoreNewerCheckpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.AdjustBalance(ctx, f.alice.ID, 100, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(ctx, f.alice.ID, 50, "")
	require.NoError(t, err)

	// GIVEN: a checkpoint covering the whole log
	require.NoError(t, f.svc.UpdateCache(ctx))

	// THEN: a bound before the checkpoint still answers historically
	got, err := f.svc.UserBalance(ctx, f.alice.ID, ledger.Query{Tx: &first.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)
}

func TestCache_RepeatedCycles_StayCorrect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var want int64
	for i := int64(1); i <= 5; i++ {
		_, err := f.svc.AdjustBalance(ctx, f.alice.ID, i, "")
		require.NoError(t, err)
		want += i
		require.NoError(t, f.svc.UpdateCache(ctx))
		assert.Equal(t, want, f.balance(t, f.alice.ID))
	}
}
