package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// JOINT PURCHASE TESTS
// =============================================================================

func TestJoint_SplitsCostAcrossShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: one unit at price 10
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 1, "")
	require.NoError(t, err)

	// WHEN: alice instigates a joint buy with shares [alice, bob, alice]
	txs, err := f.svc.JointBuyProduct(ctx, f.cola.ID, 1, f.alice.ID,
		[]int64{f.alice.ID, f.bob.ID, f.alice.ID}, "shared")
	require.NoError(t, err)
	require.Len(t, txs, 4) // parent + 3 children

	// THEN: parent first, children linked to it
	parent := txs[0]
	assert.Equal(t, ledger.TxJoint, parent.Type)
	for _, child := range txs[1:] {
		assert.Equal(t, ledger.TxJointBuy, child.Type)
		require.NotNil(t, child.JointTxID)
		assert.Equal(t, parent.ID, *child.JointTxID)
	}

	// AND: stock drops once, by the parent's count
	assert.Equal(t, int64(0), f.stock(t, f.cola.ID))

	// AND: total cost 10 splits as ceil(10*2/3)=7 for alice, ceil(10*1/3)=4
	// for bob; rounding is per participant
	assert.Equal(t, int64(-7), f.balance(t, f.alice.ID))
	assert.Equal(t, int64(-4), f.balance(t, f.bob.ID))
}

func TestJoint_SingleParticipant_EqualsDirectPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 7, 3, "")
	require.NoError(t, err)

	// GIVEN: bob buys one unit directly
	_, err = f.svc.BuyProduct(ctx, f.bob.ID, f.cola.ID, 1, "")
	require.NoError(t, err)
	direct := f.balance(t, f.bob.ID)

	// WHEN: carol makes the same purchase as a one-participant joint
	_, err = f.svc.JointBuyProduct(ctx, f.cola.ID, 1, f.carol.ID, []int64{f.carol.ID}, "")
	require.NoError(t, err)

	// THEN: identical debit
	assert.Equal(t, direct, f.balance(t, f.carol.ID))
}

func TestJoint_InstigatorMustParticipate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 1, "")
	require.NoError(t, err)

	_, err = f.svc.JointBuyProduct(ctx, f.cola.ID, 1, f.alice.ID, []int64{f.bob.ID}, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestJoint_NoParticipants_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.JointBuyProduct(context.Background(), f.cola.ID, 1, f.alice.ID, nil, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestJoint_UnknownParticipant_RejectedAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 1, "")
	require.NoError(t, err)

	// WHEN: one participant does not exist
	_, err = f.svc.JointBuyProduct(ctx, f.cola.ID, 1, f.alice.ID,
		[]int64{f.alice.ID, 999}, "")
	assert.ErrorIs(t, err, ledger.ErrUserNotFound)

	// THEN: nothing was appended, stock is untouched
	assert.Equal(t, int64(1), f.stock(t, f.cola.ID))
	assert.Equal(t, int64(0), f.balance(t, f.alice.ID))
}

func TestJoint_PenaltyAppliedPerParticipantBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: price 10, penalty x2 below 0
	_, err := f.svc.AddProduct(ctx, f.alice.ID, f.cola.ID, 0, 10, 2, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustPenalty(ctx, f.alice.ID, 0, 200, "")
	require.NoError(t, err)

	// bob is in debt, carol is not
	_, err = f.svc.AdjustBalance(ctx, f.bob.ID, -5, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustBalance(ctx, f.carol.ID, 100, "")
	require.NoError(t, err)

	// WHEN: they split one unit evenly
	_, err = f.svc.JointBuyProduct(ctx, f.cola.ID, 1, f.bob.ID,
		[]int64{f.bob.ID, f.carol.ID}, "")
	require.NoError(t, err)

	// THEN: bob pays on a doubled total (20/2=10), carol on the plain one
	// (10/2=5); the penalty question is answered per participant.
	assert.Equal(t, int64(-15), f.balance(t, f.bob.ID))
	assert.Equal(t, int64(95), f.balance(t, f.carol.ID))
}
