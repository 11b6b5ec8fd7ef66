package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/report"
	"github.com/shopspring/decimal"
)

// StockStore defines the database methods needed by stock handlers.
type StockStore interface {
	GetBranch(ctx context.Context, arg database.GetBranchParams) (database.Branch, error)
	ListBranchStocks(ctx context.Context, arg database.ListBranchStocksParams) ([]database.ListBranchStocksRow, error)
	UpsertProductStock(ctx context.Context, arg database.UpsertProductStockParams) (database.ProductStock, error)
	GetProduct(ctx context.Context, arg database.GetProductParams) (database.Product, error)
}

// StockHandler handles branch stock endpoints.
type StockHandler struct {
	store    StockStore
	reporter *report.Reporter
}

// NewStockHandler creates a new StockHandler.
func NewStockHandler(store StockStore, reporter *report.Reporter) *StockHandler {
	return &StockHandler{store: store, reporter: reporter}
}

// RegisterRoutes registers stock endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/branches/{bid}/stocks
func (h *StockHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/{pid}", h.Set)
}

// --- Request / Response types ---

type setStockRequest struct {
	Quantity string `json:"quantity"`
}

type stockResponse struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Quantity    string    `json:"quantity"`
}

// --- Handlers ---

// List handles GET /orgs/{oid}/branches/{bid}/stocks.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, branchID, ok := h.parseScope(w, r)
	if !ok {
		return
	}

	if _, err := h.store.GetBranch(r.Context(), database.GetBranchParams{
		ID:    branchID,
		OrgID: orgID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
			return
		}
		h.internalError(w, "stocks.list", err)
		return
	}

	rows, err := h.store.ListBranchStocks(r.Context(), database.ListBranchStocksParams{
		BranchID: branchID,
		OrgID:    orgID,
	})
	if err != nil {
		h.internalError(w, "stocks.list", err)
		return
	}

	resp := make([]stockResponse, len(rows))
	for i, row := range rows {
		resp[i] = stockResponse{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    numericToString(row.Quantity),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Set handles PUT /orgs/{oid}/branches/{bid}/stocks/{pid}. It writes
// an absolute quantity, used for initial load and physical counts.
// Document-driven stock movement goes through the document lifecycle.
func (h *StockHandler) Set(w http.ResponseWriter, r *http.Request) {
	orgID, branchID, ok := h.parseScope(w, r)
	if !ok {
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid quantity"})
		return
	}

	if _, err := h.store.GetBranch(r.Context(), database.GetBranchParams{
		ID:    branchID,
		OrgID: orgID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
			return
		}
		h.internalError(w, "stocks.set", err)
		return
	}
	if _, err := h.store.GetProduct(r.Context(), database.GetProductParams{
		ID:    productID,
		OrgID: orgID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		h.internalError(w, "stocks.set", err)
		return
	}

	stock, err := h.store.UpsertProductStock(r.Context(), database.UpsertProductStockParams{
		ProductID: productID,
		BranchID:  branchID,
		Quantity:  decimalToNumeric(qty),
	})
	if err != nil {
		h.internalError(w, "stocks.set", err)
		return
	}

	writeJSON(w, http.StatusOK, stockResponse{
		ProductID: stock.ProductID,
		Quantity:  numericToString(stock.Quantity),
	})
}

// --- Helpers ---

func (h *StockHandler) parseScope(w http.ResponseWriter, r *http.Request) (orgID, branchID uuid.UUID, ok bool) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return uuid.Nil, uuid.Nil, false
	}
	branchID, err = uuid.Parse(chi.URLParam(r, "bid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
		return uuid.Nil, uuid.Nil, false
	}
	return orgID, branchID, true
}

func (h *StockHandler) internalError(w http.ResponseWriter, op string, err error) {
	refID := h.reporter.Error(op, err, nil)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":        "internal server error",
		"reference_id": refID,
	})
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
