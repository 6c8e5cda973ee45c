/*
balance.go - Balance derivation

A user's balance is NOT a commutative sum: a purchase's cost depends on the
product's price as of that transaction, the interest rate then in effect,
and whether the user's balance immediately before it was under the penalty
threshold then in effect. That forces a strict left-to-right fold over the
user's transactions in ascending time order, carrying a running balance.

With a checkpoint, the fold starts from the cached balance and replays only
the log suffix after it; the running-balance penalty comparisons stay exact
because the cached value IS the balance at that point.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceDerivation computes derived user balances.
type BalanceDerivation struct {
	store       Store
	checkpoints CheckpointStore
	params      *ParamResolver
	pricing     *PriceDerivation
}

func NewBalanceDerivation(store Store, checkpoints CheckpointStore, params *ParamResolver, pricing *PriceDerivation) *BalanceDerivation {
	return &BalanceDerivation{store: store, checkpoints: checkpoints, params: params, pricing: pricing}
}

// BalanceAt derives the user's balance as of the bound.
func (d *BalanceDerivation) BalanceAt(ctx context.Context, userID int64, until *Position, useCache bool) (int64, error) {
	var balance int64
	var afterNS *int64

	if useCache {
		cp, err := d.checkpoints.LatestCheckpointAtOrBefore(ctx, until)
		if err != nil {
			return 0, err
		}
		if cp != nil {
			cached, ok, err := d.checkpoints.CachedBalance(ctx, cp.TxID, userID)
			if err != nil {
				return 0, err
			}
			if ok {
				balance = cached
			}
			after := cp.TxTimeNS
			afterNS = &after
		}
	}

	txs, err := d.store.Range(ctx, Filter{
		UserID:  &userID,
		AfterNS: afterNS,
		Until:   until,
	})
	if err != nil {
		return 0, err
	}

	for _, tx := range txs {
		balance, err = d.apply(ctx, userID, balance, tx, useCache)
		if err != nil {
			return 0, err
		}
	}
	return balance, nil
}

// apply folds one transaction into the user's running balance.
func (d *BalanceDerivation) apply(ctx context.Context, userID, balance int64, tx Transaction, useCache bool) (int64, error) {
	switch tx.Type {
	case TxAdjustBalance, TxAddProduct:
		return balance + tx.Amount, nil

	case TxTransfer:
		if tx.UserID == userID {
			return balance - tx.Amount, nil
		}
		return balance + tx.Amount, nil

	case TxBuyProduct:
		cost, err := d.purchaseCost(ctx, *tx.ProductID, tx.ProductCount, tx.Time, balance, useCache)
		if err != nil {
			return 0, err
		}
		return balance - cost, nil

	case TxJointBuy:
		cost, err := d.jointShareCost(ctx, userID, balance, tx, useCache)
		if err != nil {
			return 0, err
		}
		return balance - cost, nil

	default:
		// JOINT, ADJUST_STOCK, THROW_PRODUCT and the parameter adjustments
		// never move a balance.
		return balance, nil
	}
}

// purchaseCost prices count units as of the purchase time:
//
//	cost = price * count
//	cost *= interest / 100
//	if preBalance < penalty.threshold: cost *= penalty.multiplier / 100
//	return ceil(cost)
//
// One ceiling at the end of the whole chain, per the derivation contract.
func (d *BalanceDerivation) purchaseCost(ctx context.Context, productID, count int64, at time.Time, preBalance int64, useCache bool) (int64, error) {
	pos := &Position{TimeNS: at.UnixNano(), Inclusive: true}

	price, err := d.pricing.PriceAt(ctx, productID, pos, false, useCache)
	if err != nil {
		return 0, err
	}
	rate, err := d.params.InterestAt(ctx, pos)
	if err != nil {
		return 0, err
	}
	penalty, err := d.params.PenaltyAt(ctx, pos)
	if err != nil {
		return 0, err
	}

	cost := decimal.NewFromInt(price * count).
		Mul(decimal.NewFromInt(rate)).
		Div(oneHundred)
	if preBalance < penalty.Threshold {
		cost = cost.Mul(decimal.NewFromInt(penalty.MultiplierPercent)).Div(oneHundred)
	}
	return cost.Ceil().IntPart(), nil
}

// jointShareCost debits one JOINT_BUY_PRODUCT child: the parent's total
// cost (same formula as a direct purchase, priced at the parent's time)
// times the user's share of the children, ceiled per participant. Shares
// are counted over all children of the parent regardless of the query
// bound; parent and children are appended atomically, so a bound slicing
// between them is a transient artifact, not a different purchase.
func (d *BalanceDerivation) jointShareCost(ctx context.Context, userID, preBalance int64, tx Transaction, useCache bool) (int64, error) {
	parent, err := d.store.Get(ctx, *tx.JointTxID)
	if err != nil {
		return 0, err
	}
	if parent == nil || parent.Type != TxJoint {
		return 0, fmt.Errorf("%w: joint child %d references missing parent %d",
			ErrDerivationDefect, tx.ID, *tx.JointTxID)
	}

	total, err := d.purchaseCost(ctx, *parent.ProductID, parent.ProductCount, parent.Time, preBalance, useCache)
	if err != nil {
		return 0, err
	}

	shares, err := d.store.JointShares(ctx, parent.ID)
	if err != nil {
		return 0, err
	}
	var all int64
	for _, n := range shares {
		all += n
	}
	if all == 0 {
		return 0, fmt.Errorf("%w: joint %d has a child but no counted shares",
			ErrDerivationDefect, parent.ID)
	}

	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(shares[userID])).
		Div(decimal.NewFromInt(all)).
		Ceil().IntPart(), nil
}
