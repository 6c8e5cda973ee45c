/*
checkpoint.go - The checkpoint cache

updateCache() snapshots derived state as of the newest transaction so that
queries replay only the log suffix after it. The cache is a pure
memoization of the derivations: it never changes a query's result, only its
cost, and deleting every checkpoint must be observationally invisible.

A new checkpoint recomputes only the entities referenced by transactions
since the previous checkpoint ("affected entities"); lookups merge backward
through the checkpoint chain for everything else.
*/
package ledger

import "context"

// Cache builds checkpoints. Update shares the Log's writer mutex, so a
// build never overlaps an append.
type Cache struct {
	store       Store
	checkpoints CheckpointStore
	balances    *BalanceDerivation
	pricing     *PriceDerivation
	log         *Log
}

func NewCache(store Store, checkpoints CheckpointStore, balances *BalanceDerivation, pricing *PriceDerivation, log *Log) *Cache {
	return &Cache{store: store, checkpoints: checkpoints, balances: balances, pricing: pricing, log: log}
}

// Update builds a checkpoint covering the latest transaction. A no-op when
// the log is empty or the newest checkpoint already covers it, which makes
// back-to-back calls idempotent. Safe to call at any cadence, including
// never.
func (c *Cache) Update(ctx context.Context) (*Checkpoint, error) {
	c.log.mu.Lock()
	defer c.log.mu.Unlock()

	latest, err := c.store.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, nil
	}

	prev, err := c.checkpoints.LatestCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.TxID == latest.ID {
		return prev, nil
	}

	var afterNS *int64
	if prev != nil {
		after := prev.TxTimeNS
		afterNS = &after
	}
	until := &Position{TimeNS: latest.Time.UnixNano(), Inclusive: true}

	suffix, err := c.store.Range(ctx, Filter{AfterNS: afterNS, Until: until})
	if err != nil {
		return nil, err
	}

	users := map[int64]struct{}{}
	products := map[int64]struct{}{}
	for _, tx := range suffix {
		users[tx.UserID] = struct{}{}
		if tx.TransferUserID != nil {
			users[*tx.TransferUserID] = struct{}{}
		}
		if tx.ProductID != nil {
			products[*tx.ProductID] = struct{}{}
		}
	}

	cp := Checkpoint{
		TxID:     latest.ID,
		TxTimeNS: latest.Time.UnixNano(),
		Balances: make(map[int64]int64, len(users)),
		Products: make(map[int64]PriceStock, len(products)),
	}

	// Full replay from the beginning for exactly the affected entities;
	// everything else keeps its value from the older checkpoints.
	for id := range users {
		b, err := c.balances.BalanceAt(ctx, id, until, false)
		if err != nil {
			return nil, err
		}
		cp.Balances[id] = b
	}
	for id := range products {
		ps, err := c.pricing.PriceStockAt(ctx, id, until, false)
		if err != nil {
			return nil, err
		}
		cp.Products[id] = ps
	}

	if err := c.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
