// Package store provides an in-memory Store implementation for tests/dev.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.Store and ledger.CheckpointStore. Transactions
// are kept in ascending (time, id) order; appends enforce time uniqueness
// and reference existence just like the SQLite store.
type Memory struct {
	mu sync.RWMutex

	txs      []ledger.Transaction
	times    map[int64]bool
	nextTxID int64

	users      map[int64]ledger.User
	userNames  map[string]int64
	nextUserID int64

	products      map[int64]ledger.Product
	productNames  map[string]int64
	productCodes  map[string]int64
	nextProductID int64

	checkpoints []ledger.Checkpoint // ascending TxID
}

func NewMemory() *Memory {
	return &Memory{
		times:        make(map[int64]bool),
		users:        make(map[int64]ledger.User),
		userNames:    make(map[string]int64),
		products:     make(map[int64]ledger.Product),
		productNames: make(map[string]int64),
		productCodes: make(map[string]int64),
	}
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (m *Memory) Append(_ context.Context, tx ledger.Transaction) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRefsLocked(tx); err != nil {
		return 0, err
	}
	return m.appendLocked(tx)
}

func (m *Memory) AppendJoint(_ context.Context, parent ledger.Transaction, children []ledger.Transaction) ([]ledger.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkRefsLocked(parent); err != nil {
		return nil, err
	}
	for _, c := range children {
		if _, ok := m.users[c.UserID]; !ok {
			return nil, ledger.ErrUserNotFound
		}
	}

	// All-or-nothing: check every timestamp before writing anything.
	seen := make(map[int64]bool, len(children)+1)
	for _, tx := range append([]ledger.Transaction{parent}, children...) {
		ns := tx.Time.UnixNano()
		if m.times[ns] || seen[ns] {
			return nil, ledger.ErrDuplicateTime
		}
		seen[ns] = true
	}

	out := make([]ledger.Transaction, 0, len(children)+1)
	parentID, err := m.appendLocked(parent)
	if err != nil {
		return nil, err
	}
	parent.ID = parentID
	out = append(out, parent)

	for _, c := range children {
		c.JointTxID = &parentID
		id, err := m.appendLocked(c)
		if err != nil {
			return nil, err
		}
		c.ID = id
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) appendLocked(tx ledger.Transaction) (int64, error) {
	ns := tx.Time.UnixNano()
	if m.times[ns] {
		return 0, ledger.ErrDuplicateTime
	}

	m.nextTxID++
	tx.ID = m.nextTxID
	m.times[ns] = true

	// Binary search keeps the slice in (time, id) order even if a caller
	// hands in out-of-order timestamps.
	i := sort.Search(len(m.txs), func(i int) bool {
		return m.txs[i].Time.UnixNano() > ns
	})
	m.txs = append(m.txs, ledger.Transaction{})
	copy(m.txs[i+1:], m.txs[i:])
	m.txs[i] = tx

	return tx.ID, nil
}

func (m *Memory) checkRefsLocked(tx ledger.Transaction) error {
	if _, ok := m.users[tx.UserID]; !ok {
		return ledger.ErrUserNotFound
	}
	if tx.TransferUserID != nil {
		if _, ok := m.users[*tx.TransferUserID]; !ok {
			return ledger.ErrUserNotFound
		}
	}
	if tx.ProductID != nil {
		if _, ok := m.products[*tx.ProductID]; !ok {
			return ledger.ErrProductNotFound
		}
	}
	if tx.JointTxID != nil && *tx.JointTxID != 0 {
		if m.getLocked(*tx.JointTxID) == nil {
			return ledger.ErrTransactionNotFound
		}
	}
	return nil
}

func (m *Memory) Get(_ context.Context, id int64) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id), nil
}

func (m *Memory) getLocked(id int64) *ledger.Transaction {
	for i := range m.txs {
		if m.txs[i].ID == id {
			tx := m.txs[i]
			return &tx
		}
	}
	return nil
}

func (m *Memory) Latest(_ context.Context) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.txs) == 0 {
		return nil, nil
	}
	tx := m.txs[len(m.txs)-1]
	return &tx, nil
}

func (m *Memory) Range(_ context.Context, f ledger.Filter) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.txs {
		if matches(tx, f) {
			result = append(result, tx)
		}
	}
	if f.Limit > 0 && len(result) > f.Limit {
		result = result[len(result)-f.Limit:]
	}
	return result, nil
}

func matches(tx ledger.Transaction, f ledger.Filter) bool {
	ns := tx.Time.UnixNano()
	if f.AfterNS != nil && ns <= *f.AfterNS {
		return false
	}
	if !f.Until.Admits(ns) {
		return false
	}
	if f.UserID != nil {
		if tx.UserID != *f.UserID &&
			(tx.TransferUserID == nil || *tx.TransferUserID != *f.UserID) {
			return false
		}
	}
	if f.ProductID != nil {
		if tx.ProductID == nil || *tx.ProductID != *f.ProductID {
			return false
		}
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if tx.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (m *Memory) LatestOfType(_ context.Context, t ledger.TxType, until *ledger.Position) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.txs) - 1; i >= 0; i-- {
		tx := m.txs[i]
		if tx.Type == t && until.Admits(tx.Time.UnixNano()) {
			return &tx, nil
		}
	}
	return nil, nil
}

func (m *Memory) JointShares(_ context.Context, jointTxID int64) (map[int64]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	shares := make(map[int64]int64)
	for _, tx := range m.txs {
		if tx.Type == ledger.TxJointBuy && tx.JointTxID != nil && *tx.JointTxID == jointTxID {
			shares[tx.UserID]++
		}
	}
	return shares, nil
}

// =============================================================================
// ENTITIES
// =============================================================================

func (m *Memory) CreateUser(_ context.Context, u ledger.User) (ledger.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.userNames[u.Name]; taken {
		return ledger.User{}, ledger.ErrDuplicateUser
	}
	m.nextUserID++
	u.ID = m.nextUserID
	u.CreatedAt = time.Now().UTC()
	m.users[u.ID] = u
	m.userNames[u.Name] = u.ID
	return u, nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (*ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]ledger.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) CreateProduct(_ context.Context, p ledger.Product) (ledger.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.productNames[p.Name]; taken {
		return ledger.Product{}, ledger.ErrDuplicateProduct
	}
	if _, taken := m.productCodes[p.BarCode]; taken {
		return ledger.Product{}, ledger.ErrDuplicateProduct
	}
	m.nextProductID++
	p.ID = m.nextProductID
	p.CreatedAt = time.Now().UTC()
	m.products[p.ID] = p
	m.productNames[p.Name] = p.ID
	m.productCodes[p.BarCode] = p.ID
	return p, nil
}

func (m *Memory) GetProduct(_ context.Context, id int64) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetProductByBarCode(_ context.Context, barCode string) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.productCodes[barCode]
	if !ok {
		return nil, nil
	}
	p := m.products[id]
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	products := make([]ledger.Product, 0, len(m.products))
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

// =============================================================================
// CHECKPOINTS
// =============================================================================

func (m *Memory) SaveCheckpoint(_ context.Context, cp ledger.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := ledger.Checkpoint{
		TxID:     cp.TxID,
		TxTimeNS: cp.TxTimeNS,
		Balances: make(map[int64]int64, len(cp.Balances)),
		Products: make(map[int64]ledger.PriceStock, len(cp.Products)),
	}
	for k, v := range cp.Balances {
		saved.Balances[k] = v
	}
	for k, v := range cp.Products {
		saved.Products[k] = v
	}

	i := sort.Search(len(m.checkpoints), func(i int) bool {
		return m.checkpoints[i].TxID >= saved.TxID
	})
	if i < len(m.checkpoints) && m.checkpoints[i].TxID == saved.TxID {
		m.checkpoints[i] = saved
		return nil
	}
	m.checkpoints = append(m.checkpoints, ledger.Checkpoint{})
	copy(m.checkpoints[i+1:], m.checkpoints[i:])
	m.checkpoints[i] = saved
	return nil
}

func (m *Memory) LatestCheckpoint(_ context.Context) (*ledger.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.checkpoints) == 0 {
		return nil, nil
	}
	cp := m.checkpoints[len(m.checkpoints)-1]
	return &ledger.Checkpoint{TxID: cp.TxID, TxTimeNS: cp.TxTimeNS}, nil
}

func (m *Memory) LatestCheckpointAtOrBefore(_ context.Context, until *ledger.Position) (*ledger.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		cp := m.checkpoints[i]
		if until.Admits(cp.TxTimeNS) {
			return &ledger.Checkpoint{TxID: cp.TxID, TxTimeNS: cp.TxTimeNS}, nil
		}
	}
	return nil, nil
}

func (m *Memory) CachedBalance(_ context.Context, asOfTxID, userID int64) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest checkpoint in the chain wins; older ones answer for entities
	// the newer ones did not recompute.
	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		cp := m.checkpoints[i]
		if cp.TxID > asOfTxID {
			continue
		}
		if b, ok := cp.Balances[userID]; ok {
			return b, true, nil
		}
	}
	return 0, false, nil
}

func (m *Memory) CachedPriceStock(_ context.Context, asOfTxID, productID int64) (ledger.PriceStock, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.checkpoints) - 1; i >= 0; i-- {
		cp := m.checkpoints[i]
		if cp.TxID > asOfTxID {
			continue
		}
		if ps, ok := cp.Products[productID]; ok {
			return ps, true, nil
		}
	}
	return ledger.PriceStock{}, false, nil
}

func (m *Memory) DeleteCheckpoints(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpoints = nil
	return nil
}
