/*
service.go - The facade the outside world talks to

Wires the log, the derivations, the splitter and the cache together and
exposes the operation set consumed by the UI/CLI layer:

  Append:      AdjustBalance, Transfer, AddProduct, BuyProduct, AdjustStock,
               AdjustInterest, AdjustPenalty, JointBuyProduct, ThrowProduct
  Query:       UserBalance, ProductPrice, ProductStock, ProductOwners,
               Transactions
  Maintenance: UpdateCache
  Entities:    CreateUser, GetUser, ListUsers, CreateProduct, GetProduct,
               ListProducts

Queries pin their bound before reading, so they are safe to run in parallel
with each other and with ongoing appends.
*/
package ledger

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Service is the external interface of the core.
type Service struct {
	store       Store
	checkpoints CheckpointStore
	log         *Log
	params      *ParamResolver
	pricing     *PriceDerivation
	balances    *BalanceDerivation
	owners      *OwnershipDerivation
	splitter    *JointSplitter
	cache       *Cache
	logger      *logrus.Logger
}

func NewService(store Store, checkpoints CheckpointStore, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	log := NewLog(store)
	params := NewParamResolver(store)
	pricing := NewPriceDerivation(store, checkpoints, params)
	balances := NewBalanceDerivation(store, checkpoints, params, pricing)
	return &Service{
		store:       store,
		checkpoints: checkpoints,
		log:         log,
		params:      params,
		pricing:     pricing,
		balances:    balances,
		owners:      NewOwnershipDerivation(store, pricing),
		splitter:    NewJointSplitter(log),
		cache:       NewCache(store, checkpoints, balances, pricing, log),
		logger:      logger,
	}
}

// =============================================================================
// APPEND OPERATIONS
// =============================================================================

func (s *Service) AdjustBalance(ctx context.Context, userID, amount int64, message string) (Transaction, error) {
	tx, err := NewAdjustBalance(userID, amount, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) Transfer(ctx context.Context, senderID, receiverID, amount int64, message string) (Transaction, error) {
	tx, err := NewTransfer(senderID, receiverID, amount, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) AddProduct(ctx context.Context, userID, productID, amount, perProduct, count int64, message string) (Transaction, error) {
	tx, err := NewAddProduct(userID, productID, amount, perProduct, count, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) BuyProduct(ctx context.Context, userID, productID, count int64, message string) (Transaction, error) {
	tx, err := NewBuyProduct(userID, productID, count, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) AdjustStock(ctx context.Context, userID, productID, count int64, message string) (Transaction, error) {
	tx, err := NewAdjustStock(userID, productID, count, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) AdjustInterest(ctx context.Context, userID, ratePercent int64, message string) (Transaction, error) {
	tx, err := NewAdjustInterest(userID, ratePercent, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) AdjustPenalty(ctx context.Context, userID, threshold, multiplierPercent int64, message string) (Transaction, error) {
	tx, err := NewAdjustPenalty(userID, threshold, multiplierPercent, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

func (s *Service) ThrowProduct(ctx context.Context, userID, productID, count int64, message string) (Transaction, error) {
	tx, err := NewThrowProduct(userID, productID, count, message)
	if err != nil {
		return Transaction{}, err
	}
	return s.append(ctx, tx)
}

// JointBuyProduct splits a purchase of count units across the participants.
// Duplicate user ids mean multiple shares for that user.
func (s *Service) JointBuyProduct(ctx context.Context, productID, count, instigatorID int64, userIDs []int64, message string) ([]Transaction, error) {
	txs, err := s.splitter.Split(ctx, productID, count, instigatorID, userIDs, message)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"joint_tx": txs[0].ID,
		"product":  productID,
		"shares":   len(userIDs),
	}).Info("joint purchase appended")
	return txs, nil
}

func (s *Service) append(ctx context.Context, tx Transaction) (Transaction, error) {
	appended, err := s.log.Append(ctx, tx)
	if err != nil {
		return Transaction{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"tx":   appended.ID,
		"type": appended.Type,
		"user": appended.UserID,
	}).Info("transaction appended")
	return appended, nil
}

// =============================================================================
// QUERY OPERATIONS
// =============================================================================

// UserBalance derives the user's balance as of the query bound.
func (s *Service) UserBalance(ctx context.Context, userID int64, q Query) (int64, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return 0, err
	}
	pos, err := s.resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	return s.balances.BalanceAt(ctx, userID, pos, true)
}

// ProductPrice derives the product's unit price, optionally marked up by
// the interest in effect at the bound.
func (s *Service) ProductPrice(ctx context.Context, productID int64, q Query, includeInterest bool) (int64, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return 0, err
	}
	pos, err := s.resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	return s.pricing.PriceAt(ctx, productID, pos, includeInterest, true)
}

// ProductStock derives the product's stock; negative means oversold.
func (s *Service) ProductStock(ctx context.Context, productID int64, q Query) (int64, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return 0, err
	}
	pos, err := s.resolve(ctx, q)
	if err != nil {
		return 0, err
	}
	state, err := s.pricing.PriceStockAt(ctx, productID, pos, true)
	if err != nil {
		return 0, err
	}
	return state.Stock, nil
}

// ProductOwners infers who owns the product's unconsumed stock, one entry
// per unit, most recent contribution first.
func (s *Service) ProductOwners(ctx context.Context, productID int64, q Query) ([]int64, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	pos, err := s.resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.owners.OwnersAt(ctx, productID, pos, true)
}

// LogFilter narrows a Transactions query.
type LogFilter struct {
	UserID    *int64
	ProductID *int64
	Type      *TxType
	Query     Query
	Limit     int
}

// Transactions returns the matching slice of the log in ascending order.
func (s *Service) Transactions(ctx context.Context, f LogFilter) ([]Transaction, error) {
	pos, err := s.resolve(ctx, f.Query)
	if err != nil {
		return nil, err
	}
	var types []TxType
	if f.Type != nil {
		types = []TxType{*f.Type}
	}
	return s.store.Range(ctx, Filter{
		UserID:    f.UserID,
		ProductID: f.ProductID,
		Types:     types,
		Until:     pos,
		Limit:     f.Limit,
	})
}

// =============================================================================
// MAINTENANCE
// =============================================================================

// UpdateCache builds a checkpoint covering the latest transaction. Safe to
// call at any cadence, including never.
func (s *Service) UpdateCache(ctx context.Context) error {
	cp, err := s.cache.Update(ctx)
	if err != nil {
		return err
	}
	if cp != nil {
		s.logger.WithFields(logrus.Fields{
			"checkpoint_tx": cp.TxID,
			"users":         len(cp.Balances),
			"products":      len(cp.Products),
		}).Info("checkpoint updated")
	}
	return nil
}

// =============================================================================
// ENTITIES
// =============================================================================

func (s *Service) CreateUser(ctx context.Context, name, card, rfid string) (User, error) {
	if name == "" {
		return User{}, invalidf("empty_name", "user name must not be empty")
	}
	return s.store.CreateUser(ctx, User{Name: name, Card: card, RFID: rfid})
}

func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, barCode, name string, hidden bool) (Product, error) {
	if name == "" || barCode == "" {
		return Product{}, invalidf("empty_identity", "product name and barcode must not be empty")
	}
	return s.store.CreateProduct(ctx, Product{BarCode: barCode, Name: name, Hidden: hidden})
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	return s.store.GetProduct(ctx, id)
}

// GetProductByBarCode resolves a scanned barcode to a product.
func (s *Service) GetProductByBarCode(ctx context.Context, barCode string) (*Product, error) {
	return s.store.GetProductByBarCode(ctx, barCode)
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.ListProducts(ctx)
}

// =============================================================================
// HELPERS
// =============================================================================

// resolve pins a query bound to a position on the log's total order.
func (s *Service) resolve(ctx context.Context, q Query) (*Position, error) {
	if q.At != nil && q.Tx != nil {
		return nil, invalidf("ambiguous_bound",
			"specify either a timestamp or a transaction bound, not both")
	}
	if q.At != nil {
		return &Position{TimeNS: q.At.UnixNano(), Inclusive: !q.Exclusive}, nil
	}
	if q.Tx != nil {
		tx, err := s.store.Get(ctx, *q.Tx)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			return nil, ErrTransactionNotFound
		}
		return &Position{TimeNS: tx.Time.UnixNano(), Inclusive: !q.Exclusive}, nil
	}
	return nil, nil
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrUserNotFound
	}
	return nil
}

func (s *Service) requireProduct(ctx context.Context, id int64) error {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrProductNotFound
	}
	return nil
}
