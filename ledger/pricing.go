/*
pricing.go - Price/stock derivation

Replays a product's stock-affecting transactions in ascending time order
into a current (price, stock) pair, starting from the newest checkpoint at
or before the query bound when one exists.

PRICE RULE:
  ADD_PRODUCT merges the addition into a weighted average, ceiling the
  result. The prior count is clamped to >= 0 so an oversold (negative)
  stock cannot drag the new weighted price down - the addition's own price
  dominates. Purchases, throws, joints and stock adjustments never change
  the price.
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// PriceDerivation computes derived (price, stock) pairs.
type PriceDerivation struct {
	store       Store
	checkpoints CheckpointStore
	params      *ParamResolver
}

func NewPriceDerivation(store Store, checkpoints CheckpointStore, params *ParamResolver) *PriceDerivation {
	return &PriceDerivation{store: store, checkpoints: checkpoints, params: params}
}

// PriceStockAt derives the product's state as of the bound. useCache
// selects bounded-suffix replay from a checkpoint; the cache build itself
// passes false to replay from the beginning.
func (d *PriceDerivation) PriceStockAt(ctx context.Context, productID int64, until *Position, useCache bool) (PriceStock, error) {
	state := PriceStock{}
	var afterNS *int64

	if useCache {
		cp, err := d.checkpoints.LatestCheckpointAtOrBefore(ctx, until)
		if err != nil {
			return PriceStock{}, err
		}
		if cp != nil {
			cached, ok, err := d.checkpoints.CachedPriceStock(ctx, cp.TxID, productID)
			if err != nil {
				return PriceStock{}, err
			}
			if ok {
				state = cached
			}
			after := cp.TxTimeNS
			afterNS = &after
		}
	}

	txs, err := d.store.Range(ctx, Filter{
		ProductID: &productID,
		Types:     stockTypes,
		AfterNS:   afterNS,
		Until:     until,
	})
	if err != nil {
		return PriceStock{}, err
	}

	for _, tx := range txs {
		applyStock(&state, tx)
	}
	return state, nil
}

// PriceAt derives the product's unit price. With includeInterest the price
// is marked up by the interest rate in effect at the bound, ceiled.
func (d *PriceDerivation) PriceAt(ctx context.Context, productID int64, until *Position, includeInterest, useCache bool) (int64, error) {
	state, err := d.PriceStockAt(ctx, productID, until, useCache)
	if err != nil {
		return 0, err
	}
	if !includeInterest {
		return state.Price, nil
	}

	rate, err := d.params.InterestAt(ctx, until)
	if err != nil {
		return 0, err
	}
	return decimal.NewFromInt(state.Price).
		Mul(decimal.NewFromInt(rate)).
		Div(oneHundred).
		Ceil().IntPart(), nil
}

// applyStock folds one transaction into the running (price, stock) state.
func applyStock(state *PriceStock, tx Transaction) {
	switch tx.Type {
	case TxAddProduct:
		prior := state.Stock
		if prior < 0 {
			prior = 0
		}
		added := tx.ProductCount
		state.Price = ceilDiv(state.Price*prior+tx.PerProduct*added, prior+added)
		state.Stock += added
	case TxBuyProduct, TxThrowProduct, TxJoint:
		state.Stock -= tx.ProductCount
	case TxAdjustStock:
		state.Stock += tx.ProductCount
	}
}

// ceilDiv is ceiling division for a non-negative numerator and positive
// denominator, which is all the price rule ever produces.
func ceilDiv(n, d int64) int64 {
	return (n + d - 1) / d
}
