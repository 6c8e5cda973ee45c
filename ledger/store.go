/*
store.go - Persistence interfaces for the transaction log and checkpoints

PURPOSE:
  Defines the boundary between the derivation engine and the database.
  The transaction store is append-only: no Update, no Delete, ever.
  Checkpoints are the one disposable table - dropping them must not change
  any query result, only its cost.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - ledger/store: in-memory store for tests and dev
*/
package ledger

import "context"

// Filter selects a slice of the log. All fields are optional; results are
// always in ascending (time, id) order.
type Filter struct {
	// UserID matches transactions where the user is the actor or the
	// transfer receiver.
	UserID *int64

	// ProductID matches the product reference.
	ProductID *int64

	// Types restricts the transaction types. Empty means all.
	Types []TxType

	// AfterNS is an exclusive lower bound on time (unix nanoseconds).
	// Used to replay only the suffix after a checkpoint.
	AfterNS *int64

	// Until is the upper "as of" bound.
	Until *Position

	// Limit caps the number of results; 0 means no cap. Applied from the
	// end of the range so the most recent transactions win.
	Limit int
}

// Store persists transactions and entities.
// The transactions table is APPEND-ONLY; the only mutators here are Append,
// AppendJoint and the entity constructors.
type Store interface {
	// Append persists one transaction and returns its assigned id.
	// Fails with ErrDuplicateTime if the timestamp is taken, or with a
	// not-found error if a referenced user/product is not persisted.
	Append(ctx context.Context, tx Transaction) (int64, error)

	// AppendJoint atomically persists a JOINT parent followed by its
	// JOINT_BUY_PRODUCT children, linking each child to the parent's
	// assigned id. Either all are written or none.
	AppendJoint(ctx context.Context, parent Transaction, children []Transaction) ([]Transaction, error)

	// Get returns a transaction by id, or nil if it does not exist.
	Get(ctx context.Context, id int64) (*Transaction, error)

	// Latest returns the most recent transaction, or nil for an empty log.
	Latest(ctx context.Context) (*Transaction, error)

	// Range returns transactions matching the filter in ascending
	// (time, id) order.
	Range(ctx context.Context, f Filter) ([]Transaction, error)

	// LatestOfType returns the most recent transaction of the given type
	// within the bound, or nil. Point-in-time parameter resolution.
	LatestOfType(ctx context.Context, t TxType, until *Position) (*Transaction, error)

	// JointShares returns, per user, the number of JOINT_BUY_PRODUCT
	// children referencing the given parent.
	JointShares(ctx context.Context, jointTxID int64) (map[int64]int64, error)

	// Entities. Users and products carry identity only; their derived
	// values live in the log.
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductByBarCode(ctx context.Context, barCode string) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// CheckpointStore persists checkpoints. A checkpoint lists only the entities
// it recomputed; lookups merge backward through older checkpoints, so a new
// checkpoint supersedes previous ones without copying their rows.
type CheckpointStore interface {
	// SaveCheckpoint persists a checkpoint keyed by the transaction it
	// covers.
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error

	// LatestCheckpoint returns the newest checkpoint (without its entity
	// maps), or nil.
	LatestCheckpoint(ctx context.Context) (*Checkpoint, error)

	// LatestCheckpointAtOrBefore returns the newest checkpoint whose
	// covered transaction is admitted by the bound, or nil.
	LatestCheckpointAtOrBefore(ctx context.Context, until *Position) (*Checkpoint, error)

	// CachedBalance returns the user's balance as cached by the checkpoint
	// chain up to and including asOfTxID. ok is false if no checkpoint in
	// that chain covers the user.
	CachedBalance(ctx context.Context, asOfTxID, userID int64) (balance int64, ok bool, err error)

	// CachedPriceStock is the product analog of CachedBalance.
	CachedPriceStock(ctx context.Context, asOfTxID, productID int64) (ps PriceStock, ok bool, err error)

	// DeleteCheckpoints drops every checkpoint. Queries must return
	// identical results afterwards; only their cost changes.
	DeleteCheckpoints(ctx context.Context) error
}
