/*
handlers.go - HTTP API handlers for the kiosk ledger

PURPOSE:
  Exposes the event-sourced ledger via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users                      List all users
    POST   /api/users                      Create user
    GET    /api/users/{id}                 Get user details
    GET    /api/users/{id}/balance         Derived balance
    GET    /api/users/{id}/transactions    Transaction history

  Products:
    GET    /api/products                   List all products
    POST   /api/products                   Create product
    GET    /api/products/{id}              Get product details
    GET    /api/products/barcode/{code}    Resolve a scanned barcode
    GET    /api/products/{id}/price        Derived price (with interest)
    GET    /api/products/{id}/stock        Derived stock
    GET    /api/products/{id}/owners       Inferred owners of unconsumed stock

  Transactions:
    GET    /api/transactions               Filtered slice of the log
    POST   /api/transactions/adjust-balance
    POST   /api/transactions/transfer
    POST   /api/transactions/add-product
    POST   /api/transactions/buy-product
    POST   /api/transactions/joint-buy
    POST   /api/transactions/adjust-stock
    POST   /api/transactions/throw-product

  Params:
    POST   /api/params/interest            Set interest rate going forward
    POST   /api/params/penalty             Set penalty rule going forward

  Admin:
    POST   /api/admin/cache                Build a checkpoint now

QUERY BOUNDS:
  Every derivation endpoint accepts optional query parameters:
    at=<RFC3339>   bound by timestamp
    tx=<id>        bound by transaction id
    exclusive=true make the bound exclusive
  Setting both at and tx is a 400.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Entity or transaction not found
  - 409: Duplicate identity or duplicate timestamp
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/service.go: The facade these handlers call
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/kiosk-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *ledger.Service
}

// NewHandler creates a new handler backed by the given service.
func NewHandler(service *ledger.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// CreateUser creates a new user.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Service.CreateUser(r.Context(), req.Name, req.Card, req.RFID)
	if err != nil {
		writeDomainError(w, "Failed to create user", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// GetBalance returns the user's derived balance as of the query bound.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	balance, err := h.Service.UserBalance(r.Context(), id, q)
	if err != nil {
		writeDomainError(w, "Failed to derive balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{UserID: id, Balance: balance})
}

// GetUserTransactions returns the user's slice of the log.
func (h *Handler) GetUserTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	txs, err := h.Service.Transactions(r.Context(), ledger.LogFilter{
		UserID: &id,
		Query:  q,
		Limit:  parseLimit(r),
	})
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Service.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.Service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// CreateProduct creates a new product.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.Service.CreateProduct(r.Context(), req.BarCode, req.Name, req.Hidden)
	if err != nil {
		writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// GetProductByBarCode resolves a scanned barcode.
func (h *Handler) GetProductByBarCode(w http.ResponseWriter, r *http.Request) {
	product, err := h.Service.GetProductByBarCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// GetPrice returns the product's derived price. Interest markup is applied
// unless raw=true.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	includeInterest := r.URL.Query().Get("raw") != "true"
	price, err := h.Service.ProductPrice(r.Context(), id, q, includeInterest)
	if err != nil {
		writeDomainError(w, "Failed to derive price", err)
		return
	}
	writeJSON(w, http.StatusOK, PriceDTO{ProductID: id, Price: price})
}

// GetStock returns the product's derived stock; negative means oversold.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	stock, err := h.Service.ProductStock(r.Context(), id, q)
	if err != nil {
		writeDomainError(w, "Failed to derive stock", err)
		return
	}
	writeJSON(w, http.StatusOK, StockDTO{ProductID: id, Stock: stock})
}

// GetOwners returns the inferred owners of the product's unconsumed stock.
func (h *Handler) GetOwners(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	owners, err := h.Service.ProductOwners(r.Context(), id, q)
	if err != nil {
		writeDomainError(w, "Failed to infer owners", err)
		return
	}
	if owners == nil {
		owners = []int64{}
	}
	writeJSON(w, http.StatusOK, OwnersDTO{ProductID: id, Owners: owners})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns a filtered slice of the log.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := parseQueryBound(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid query bound", err)
		return
	}

	f := ledger.LogFilter{Query: q, Limit: parseLimit(r)}
	if v := r.URL.Query().Get("user"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid user filter", err)
			return
		}
		f.UserID = &id
	}
	if v := r.URL.Query().Get("product"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid product filter", err)
			return
		}
		f.ProductID = &id
	}
	if v := r.URL.Query().Get("type"); v != "" {
		t := ledger.TxType(v)
		f.Type = &t
	}

	txs, err := h.Service.Transactions(r.Context(), f)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// AdjustBalance appends an ADJUST_BALANCE transaction.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req AdjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.AdjustBalance(r.Context(), req.UserID, req.Amount, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to adjust balance", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// Transfer appends a TRANSFER transaction.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.Transfer(r.Context(), req.SenderID, req.ReceiverID, req.Amount, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to transfer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// AddProduct appends an ADD_PRODUCT transaction.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req AddProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.AddProduct(r.Context(),
		req.UserID, req.ProductID, req.Amount, req.PerProduct, req.Count, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to add product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// BuyProduct appends a BUY_PRODUCT transaction.
func (h *Handler) BuyProduct(w http.ResponseWriter, r *http.Request) {
	var req BuyProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.BuyProduct(r.Context(), req.UserID, req.ProductID, req.Count, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to buy product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// JointBuy appends a JOINT parent plus one JOINT_BUY_PRODUCT child per share.
func (h *Handler) JointBuy(w http.ResponseWriter, r *http.Request) {
	var req JointBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	txs, err := h.Service.JointBuyProduct(r.Context(),
		req.ProductID, req.Count, req.InstigatorID, req.UserIDs, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to split purchase", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTOs(txs))
}

// AdjustStock appends an ADJUST_STOCK transaction.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.AdjustStock(r.Context(), req.UserID, req.ProductID, req.Count, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to adjust stock", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// ThrowProduct appends a THROW_PRODUCT transaction.
func (h *Handler) ThrowProduct(w http.ResponseWriter, r *http.Request) {
	var req ThrowProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.ThrowProduct(r.Context(), req.UserID, req.ProductID, req.Count, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to throw product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// =============================================================================
// PARAMETER HANDLERS
// =============================================================================

// AdjustInterest sets the interest rate from now forward.
func (h *Handler) AdjustInterest(w http.ResponseWriter, r *http.Request) {
	var req AdjustInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.AdjustInterest(r.Context(), req.UserID, req.RatePercent, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to adjust interest", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// AdjustPenalty sets the penalty rule from now forward.
func (h *Handler) AdjustPenalty(w http.ResponseWriter, r *http.Request) {
	var req AdjustPenaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	tx, err := h.Service.AdjustPenalty(r.Context(), req.UserID, req.Threshold, req.MultiplierPercent, req.Message)
	if err != nil {
		writeDomainError(w, "Failed to adjust penalty", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// UpdateCache builds a checkpoint covering the latest transaction.
func (h *Handler) UpdateCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.UpdateCache(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update cache", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// parseQueryBound reads the at/tx/exclusive query parameters.
func parseQueryBound(r *http.Request) (ledger.Query, error) {
	var q ledger.Query
	if v := r.URL.Query().Get("at"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return q, err
		}
		q.At = &t
	}
	if v := r.URL.Query().Get("tx"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, err
		}
		q.Tx = &id
	}
	q.Exclusive = r.URL.Query().Get("exclusive") == "true"
	return q, nil
}

func parseLimit(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func toUserDTO(u ledger.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Name:      u.Name,
		Card:      u.Card,
		RFID:      u.RFID,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:        p.ID,
		BarCode:   p.BarCode,
		Name:      p.Name,
		Hidden:    p.Hidden,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// writeDomainError maps ledger errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrDuplicateUser),
		errors.Is(err, ledger.ErrDuplicateProduct),
		errors.Is(err, ledger.ErrDuplicateTime):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
