/*
ledger.go - The append-only transaction log

PURPOSE:
  The Log is the single writer of the system. It validates a transaction,
  stamps it with a globally unique, strictly increasing timestamp, and hands
  it to the store. Everything else in this package only reads.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete. Corrections are new transactions.
  2. UNIQUE TIME: no two transactions share a timestamp; the store enforces
     it and the Log's monotonic clock makes collisions impossible for
     self-assigned times.
  3. SINGLE-WRITER: appends are mutually exclusive with each other and with
     cache builds, so a checkpoint never observes a partially applied joint
     batch.

CONSTRUCTORS:
  One validated constructor per transaction type. They are pure: existence
  of referenced users/products is checked by Log.Append against the store.
*/
package ledger

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// CONSTRUCTORS - One per transaction type
// =============================================================================

// NewAdjustBalance credits (or debits, for negative amounts) a user.
func NewAdjustBalance(userID, amount int64, message string) (Transaction, error) {
	return Transaction{Type: TxAdjustBalance, UserID: userID, Amount: amount, Message: message}, nil
}

// NewTransfer moves amount from sender to receiver.
func NewTransfer(senderID, receiverID, amount int64, message string) (Transaction, error) {
	if senderID == receiverID {
		return Transaction{}, invalidf("self_transfer", "user %d cannot transfer to themselves", senderID)
	}
	if amount <= 0 {
		return Transaction{}, invalidf("non_positive_amount", "transfer amount must be positive, got %d", amount)
	}
	return Transaction{
		Type: TxTransfer, UserID: senderID, TransferUserID: &receiverID,
		Amount: amount, Message: message,
	}, nil
}

// NewAddProduct records a user restocking count units at perProduct each,
// crediting the user amount. The credit may be less than the goods' worth
// but never more.
func NewAddProduct(userID, productID, amount, perProduct, count int64, message string) (Transaction, error) {
	if count <= 0 {
		return Transaction{}, invalidf("non_positive_count", "added count must be positive, got %d", count)
	}
	if perProduct < 0 {
		return Transaction{}, invalidf("negative_price", "per-product price must not be negative, got %d", perProduct)
	}
	if amount < 0 {
		return Transaction{}, invalidf("negative_amount", "credited amount must not be negative, got %d", amount)
	}
	if amount > perProduct*count {
		return Transaction{}, invalidf("amount_exceeds_worth",
			"credited amount %d exceeds %d x %d", amount, perProduct, count)
	}
	return Transaction{
		Type: TxAddProduct, UserID: userID, ProductID: &productID,
		Amount: amount, PerProduct: perProduct, ProductCount: count, Message: message,
	}, nil
}

// NewBuyProduct records a purchase. The cost is not stored; balance
// derivation computes it from the price, interest and penalty in effect at
// the transaction's time.
func NewBuyProduct(userID, productID, count int64, message string) (Transaction, error) {
	if count <= 0 {
		return Transaction{}, invalidf("non_positive_count", "bought count must be positive, got %d", count)
	}
	return Transaction{
		Type: TxBuyProduct, UserID: userID, ProductID: &productID,
		ProductCount: count, Message: message,
	}, nil
}

// NewAdjustStock corrects a product's stock by a signed count without
// touching anyone's balance.
func NewAdjustStock(userID, productID, count int64, message string) (Transaction, error) {
	if count == 0 {
		return Transaction{}, invalidf("zero_count", "stock adjustment must not be zero")
	}
	return Transaction{
		Type: TxAdjustStock, UserID: userID, ProductID: &productID,
		ProductCount: count, Message: message,
	}, nil
}

// NewAdjustInterest sets the interest rate effective from this transaction's
// time forward. 100 means no markup.
func NewAdjustInterest(userID, ratePercent int64, message string) (Transaction, error) {
	if ratePercent < 0 {
		return Transaction{}, invalidf("negative_rate", "interest rate must not be negative, got %d", ratePercent)
	}
	return Transaction{
		Type: TxAdjustInterest, UserID: userID,
		InterestRatePercent: ratePercent, Message: message,
	}, nil
}

// NewAdjustPenalty sets the penalty rule effective from this transaction's
// time forward. The multiplier is a percentage and never below 100.
func NewAdjustPenalty(userID, threshold, multiplierPercent int64, message string) (Transaction, error) {
	if multiplierPercent < 100 {
		return Transaction{}, invalidf("multiplier_below_100",
			"penalty multiplier must be at least 100, got %d", multiplierPercent)
	}
	return Transaction{
		Type: TxAdjustPenalty, UserID: userID,
		PenaltyThreshold: threshold, PenaltyMultiplierPercent: multiplierPercent, Message: message,
	}, nil
}

// NewJoint is the parent of a split purchase. It decrements stock once; the
// cost lands on its JOINT_BUY_PRODUCT children at derivation time.
func NewJoint(instigatorID, productID, count int64, message string) (Transaction, error) {
	if count <= 0 {
		return Transaction{}, invalidf("non_positive_count", "joint count must be positive, got %d", count)
	}
	return Transaction{
		Type: TxJoint, UserID: instigatorID, ProductID: &productID,
		ProductCount: count, Message: message,
	}, nil
}

// NewJointBuy is one participant share of a joint purchase.
func NewJointBuy(userID, jointTxID int64, message string) (Transaction, error) {
	return Transaction{
		Type: TxJointBuy, UserID: userID, JointTxID: &jointTxID, Message: message,
	}, nil
}

// NewThrowProduct records discarding count units; stock drops, nobody pays.
func NewThrowProduct(userID, productID, count int64, message string) (Transaction, error) {
	if count <= 0 {
		return Transaction{}, invalidf("non_positive_count", "thrown count must be positive, got %d", count)
	}
	return Transaction{
		Type: TxThrowProduct, UserID: userID, ProductID: &productID,
		ProductCount: count, Message: message,
	}, nil
}

// =============================================================================
// LOG - The single writer
// =============================================================================

// Log serializes every append behind one mutex and stamps transactions with
// a strictly monotonic timestamp. The cache build (checkpoint.go) takes the
// same mutex, so it never observes a half-written joint batch.
type Log struct {
	store Store

	mu     sync.Mutex
	lastNS int64
	clock  func() time.Time
}

func NewLog(store Store) *Log {
	return &Log{store: store, clock: time.Now}
}

// Append validates references, stamps and persists one transaction,
// returning it with its assigned id and time.
func (l *Log) Append(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := l.checkRefs(ctx, tx); err != nil {
		return Transaction{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx.Time = l.nextTimeLocked()
	id, err := l.store.Append(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// AppendJoint stamps and persists a joint parent plus its children
// atomically. Each transaction gets its own unique timestamp, parent first,
// so the parent always orders before its children.
func (l *Log) AppendJoint(ctx context.Context, parent Transaction, children []Transaction) ([]Transaction, error) {
	if err := l.checkRefs(ctx, parent); err != nil {
		return nil, err
	}
	for _, c := range children {
		if err := l.checkUser(ctx, c.UserID); err != nil {
			return nil, err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	parent.Time = l.nextTimeLocked()
	for i := range children {
		children[i].Time = l.nextTimeLocked()
	}
	return l.store.AppendJoint(ctx, parent, children)
}

// nextTimeLocked returns the current time, bumped by a nanosecond whenever
// the clock has not advanced past the previous stamp. Must hold l.mu.
func (l *Log) nextTimeLocked() time.Time {
	ns := l.clock().UnixNano()
	if ns <= l.lastNS {
		ns = l.lastNS + 1
	}
	l.lastNS = ns
	return time.Unix(0, ns).UTC()
}

func (l *Log) checkRefs(ctx context.Context, tx Transaction) error {
	if err := l.checkUser(ctx, tx.UserID); err != nil {
		return err
	}
	if tx.TransferUserID != nil {
		if err := l.checkUser(ctx, *tx.TransferUserID); err != nil {
			return err
		}
	}
	if tx.ProductID != nil {
		p, err := l.store.GetProduct(ctx, *tx.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
	}
	if tx.JointTxID != nil {
		parent, err := l.store.Get(ctx, *tx.JointTxID)
		if err != nil {
			return err
		}
		if parent == nil || parent.Type != TxJoint {
			return ErrTransactionNotFound
		}
	}
	return nil
}

func (l *Log) checkUser(ctx context.Context, id int64) error {
	u, err := l.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}
