/*
ownership.go - Ownership inference

Infers which users' contributions account for a product's current
non-negative stock. Walks the product's stock-affecting transactions in
DESCENDING time order: each ADD_PRODUCT claims up to the still-unexplained
remainder for its user; walking backward past a removal means more prior
units must be found to explain today's stock; positive stock adjustments
are phantom units attributable to nobody.
*/
package ledger

import "context"

// OwnershipDerivation reconstructs who owns unconsumed stock.
type OwnershipDerivation struct {
	store   Store
	pricing *PriceDerivation
}

func NewOwnershipDerivation(store Store, pricing *PriceDerivation) *OwnershipDerivation {
	return &OwnershipDerivation{store: store, pricing: pricing}
}

// OwnersAt returns one user id per attributed unit, most recent
// contribution first, with repeats. Empty when stock is zero or negative.
func (d *OwnershipDerivation) OwnersAt(ctx context.Context, productID int64, until *Position, useCache bool) ([]int64, error) {
	state, err := d.pricing.PriceStockAt(ctx, productID, until, useCache)
	if err != nil {
		return nil, err
	}
	remaining := state.Stock
	if remaining <= 0 {
		return nil, nil
	}

	// The walk has to reach arbitrarily far back, so it reads the full
	// product history rather than a checkpoint suffix. It still stops as
	// soon as the remainder is explained.
	txs, err := d.store.Range(ctx, Filter{
		ProductID: &productID,
		Types:     stockTypes,
		Until:     until,
	})
	if err != nil {
		return nil, err
	}

	var owners []int64
	for i := len(txs) - 1; i >= 0 && remaining > 0; i-- {
		tx := txs[i]
		switch tx.Type {
		case TxAddProduct:
			n := tx.ProductCount
			if n > remaining {
				n = remaining
			}
			for ; n > 0; n-- {
				owners = append(owners, tx.UserID)
				remaining--
			}
		case TxBuyProduct, TxThrowProduct, TxJoint:
			remaining += tx.ProductCount
		case TxAdjustStock:
			// Positive delta: phantom stock, no owner to emit.
			// Negative delta: one more removal to walk past.
			remaining -= tx.ProductCount
		}
	}
	return owners, nil
}
