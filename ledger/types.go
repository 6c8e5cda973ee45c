/*
Package ledger implements the event-sourced accounting core of the kiosk.

PURPOSE:
  Tracks per-user credit balances and per-product price/stock for a shared
  kiosk. Every change is an immutable, timestamped transaction appended to
  a log. Balances, prices and stock are never stored on the entities - they
  are derived by replaying the log, with a disposable checkpoint cache to
  keep replay cheap.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: the only persisted fact; one variant per TxType
  - User / Product: entities with identity only, no stored derived values
  - PriceStock: derived (price, stock) pair of a product
  - Checkpoint: cached derived state as of a specific transaction
  - Query / Position: "as of" bounds pinning the log prefix a read considers

DESIGN PRINCIPLES:
  1. Immutability: transactions are appended once, never updated or deleted;
     corrections are new transactions.
  2. Total order: (time, id) orders the log; time is globally unique, so
     time alone already orders it and id is the secondary key.
  3. Derivation over storage: every balance/price/stock read is a replay of
     a log prefix, optionally shortened by a checkpoint.

SEE ALSO:
  - ledger.go: the append-only log and the per-type constructors
  - balance.go, pricing.go, ownership.go: derivation algorithms
  - checkpoint.go: the cache that bounds replay cost
*/
package ledger

import "time"

// =============================================================================
// TRANSACTION - The only unit of state change
// =============================================================================

type TxType string

const (
	TxAdjustBalance  TxType = "adjust_balance"    // balance += amount
	TxTransfer       TxType = "transfer"          // sender -= amount, receiver += amount
	TxAddProduct     TxType = "add_product"       // credits user, raises product price & stock
	TxBuyProduct     TxType = "buy_product"       // debits user a derived cost, stock -= count
	TxAdjustStock    TxType = "adjust_stock"      // stock += count (signed), no balance effect
	TxAdjustInterest TxType = "adjust_interest"   // sets interest rate from this time forward
	TxAdjustPenalty  TxType = "adjust_penalty"    // sets penalty rule from this time forward
	TxJoint          TxType = "joint"             // parent of a split purchase, stock -= count once
	TxJointBuy       TxType = "joint_buy_product" // debits one participant share of a joint
	TxThrowProduct   TxType = "throw_product"     // stock -= count, no balance effect
)

// Transaction is an immutable ledger entry. Which optional fields are set
// depends on Type; the New* constructors are the only supported way to
// build one.
//
// Invariant: Time is globally unique across the whole log and consistent
// with ID order. Every derivation below relies on that total order.
type Transaction struct {
	ID   int64
	Time time.Time
	Type TxType

	// UserID is the acting/primary user. Always set.
	UserID int64

	// Optional references, populated per type.
	ProductID      *int64
	TransferUserID *int64
	JointTxID      *int64

	// Amount is in minor currency units; its meaning depends on Type.
	Amount int64

	// Unit price and signed quantity for product-related types.
	PerProduct   int64
	ProductCount int64

	// Economic parameters, set only on the two adjustment types.
	InterestRatePercent      int64
	PenaltyThreshold         int64
	PenaltyMultiplierPercent int64

	Message string
}

// stockDelta returns the effect of this transaction on its product's stock,
// or 0 for types that do not touch stock. A JOINT is charged once here; its
// JOINT_BUY_PRODUCT children never touch stock.
func (t Transaction) stockDelta() int64 {
	switch t.Type {
	case TxAddProduct:
		return t.ProductCount
	case TxBuyProduct, TxThrowProduct, TxJoint:
		return -t.ProductCount
	case TxAdjustStock:
		return t.ProductCount
	default:
		return 0
	}
}

// stockTypes are the transaction types replayed by price/stock derivation
// and walked by ownership inference.
var stockTypes = []TxType{TxAddProduct, TxBuyProduct, TxAdjustStock, TxThrowProduct, TxJoint}

// =============================================================================
// ENTITIES - Identity only; balance/price/stock are always derived
// =============================================================================

type User struct {
	ID        int64
	Name      string // unique
	Card      string // optional card identifier
	RFID      string // optional RFID identifier
	CreatedAt time.Time
}

type Product struct {
	ID        int64
	BarCode   string // unique
	Name      string // unique
	Hidden    bool
	CreatedAt time.Time
}

// PriceStock is the derived state of a product. Stock may be negative:
// overselling is allowed and observable, not an error.
type PriceStock struct {
	Price int64
	Stock int64
}

// PenaltyRule is the pair set by an ADJUST_PENALTY transaction. A purchase
// made while the buyer's balance is below Threshold costs
// MultiplierPercent/100 times as much.
type PenaltyRule struct {
	Threshold         int64
	MultiplierPercent int64
}

// =============================================================================
// CHECKPOINT - Disposable snapshot of derived state
// =============================================================================

// Checkpoint caches derived values as of the transaction TxID. It is a pure
// memoization: deleting every checkpoint changes no query result, only its
// cost. Balances/Products hold only the entities recomputed by this
// checkpoint; older checkpoints still answer for entities not listed here.
type Checkpoint struct {
	TxID     int64
	TxTimeNS int64 // Time of transaction TxID, unix nanoseconds
	Balances map[int64]int64
	Products map[int64]PriceStock
}

// =============================================================================
// QUERY BOUNDS - "as of" for reads
// =============================================================================

// Query bounds a read to a log prefix. At most one of At and Tx may be set
// (both set is a validation error); neither set means the whole log. The
// bound is inclusive unless Exclusive is true.
type Query struct {
	At        *time.Time
	Tx        *int64
	Exclusive bool
}

// Position is a resolved query bound on the (time, id) order. Because times
// are globally unique, comparing TimeNS alone is the full order.
type Position struct {
	TimeNS    int64
	Inclusive bool
}

// Admits reports whether a transaction at the given time is within the
// bound. A nil *Position admits everything.
func (p *Position) Admits(timeNS int64) bool {
	if p == nil {
		return true
	}
	if p.Inclusive {
		return timeNS <= p.TimeNS
	}
	return timeNS < p.TimeNS
}
