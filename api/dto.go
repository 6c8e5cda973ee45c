/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in the ledger constructors, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// ENTITIES
// =============================================================================

type UserDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Card      string `json:"card,omitempty"`
	RFID      string `json:"rfid,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateUserRequest struct {
	Name string `json:"name"`
	Card string `json:"card"`
	RFID string `json:"rfid"`
}

type ProductDTO struct {
	ID        int64  `json:"id"`
	BarCode   string `json:"bar_code"`
	Name      string `json:"name"`
	Hidden    bool   `json:"hidden"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateProductRequest struct {
	BarCode string `json:"bar_code"`
	Name    string `json:"name"`
	Hidden  bool   `json:"hidden"`
}

// =============================================================================
// DERIVED STATE
// =============================================================================

type BalanceDTO struct {
	UserID  int64 `json:"user_id"`
	Balance int64 `json:"balance"`
}

type PriceDTO struct {
	ProductID int64 `json:"product_id"`
	Price     int64 `json:"price"`
}

type StockDTO struct {
	ProductID int64 `json:"product_id"`
	Stock     int64 `json:"stock"`
}

// OwnersDTO lists one user id per unit of unconsumed stock, most recent
// contribution first.
type OwnersDTO struct {
	ProductID int64   `json:"product_id"`
	Owners    []int64 `json:"owners"`
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type TransactionDTO struct {
	ID                       int64  `json:"id"`
	Time                     string `json:"time"`
	Type                     string `json:"type"`
	UserID                   int64  `json:"user_id"`
	ProductID                *int64 `json:"product_id,omitempty"`
	TransferUserID           *int64 `json:"transfer_user_id,omitempty"`
	JointTxID                *int64 `json:"joint_tx_id,omitempty"`
	Amount                   int64  `json:"amount,omitempty"`
	PerProduct               int64  `json:"per_product,omitempty"`
	ProductCount             int64  `json:"product_count,omitempty"`
	InterestRatePercent      int64  `json:"interest_rate_percent,omitempty"`
	PenaltyThreshold         int64  `json:"penalty_threshold,omitempty"`
	PenaltyMultiplierPercent int64  `json:"penalty_multiplier_percent,omitempty"`
	Message                  string `json:"message,omitempty"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:                       tx.ID,
		Time:                     tx.Time.Format(time.RFC3339Nano),
		Type:                     string(tx.Type),
		UserID:                   tx.UserID,
		ProductID:                tx.ProductID,
		TransferUserID:           tx.TransferUserID,
		JointTxID:                tx.JointTxID,
		Amount:                   tx.Amount,
		PerProduct:               tx.PerProduct,
		ProductCount:             tx.ProductCount,
		InterestRatePercent:      tx.InterestRatePercent,
		PenaltyThreshold:         tx.PenaltyThreshold,
		PenaltyMultiplierPercent: tx.PenaltyMultiplierPercent,
		Message:                  tx.Message,
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

// =============================================================================
// APPEND REQUESTS
// =============================================================================

type AdjustBalanceRequest struct {
	UserID  int64  `json:"user_id"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

type TransferRequest struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Amount     int64  `json:"amount"`
	Message    string `json:"message"`
}

type AddProductRequest struct {
	UserID     int64  `json:"user_id"`
	ProductID  int64  `json:"product_id"`
	Amount     int64  `json:"amount"`
	PerProduct int64  `json:"per_product"`
	Count      int64  `json:"count"`
	Message    string `json:"message"`
}

type BuyProductRequest struct {
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Count     int64  `json:"count"`
	Message   string `json:"message"`
}

type AdjustStockRequest struct {
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Count     int64  `json:"count"`
	Message   string `json:"message"`
}

type ThrowProductRequest struct {
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Count     int64  `json:"count"`
	Message   string `json:"message"`
}

type AdjustInterestRequest struct {
	UserID      int64  `json:"user_id"`
	RatePercent int64  `json:"rate_percent"`
	Message     string `json:"message"`
}

type AdjustPenaltyRequest struct {
	UserID            int64  `json:"user_id"`
	Threshold         int64  `json:"threshold"`
	MultiplierPercent int64  `json:"multiplier_percent"`
	Message           string `json:"message"`
}

type JointBuyRequest struct {
	ProductID    int64   `json:"product_id"`
	Count        int64   `json:"count"`
	InstigatorID int64   `json:"instigator_id"`
	UserIDs      []int64 `json:"user_ids"`
	Message      string  `json:"message"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
