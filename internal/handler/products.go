package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/report"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product handlers.
type ProductStore interface {
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	ListProducts(ctx context.Context, orgID uuid.UUID) ([]database.Product, error)
}

// ProductHandler handles product endpoints.
type ProductHandler struct {
	store    ProductStore
	reporter *report.Reporter
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore, reporter *report.Reporter) *ProductHandler {
	return &ProductHandler{store: store, reporter: reporter}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/products
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type createProductRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type productResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"`
}

// --- Handlers ---

// Create handles POST /orgs/{oid}/products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return
	}

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		OrgID: orgID,
		Name:  req.Name,
		Price: decimalToNumeric(price),
	})
	if err != nil {
		refID := h.reporter.Error("products.create", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, productResponse{
		ID:    product.ID,
		Name:  product.Name,
		Price: numericToString(product.Price),
	})
}

// List handles GET /orgs/{oid}/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return
	}

	products, err := h.store.ListProducts(r.Context(), orgID)
	if err != nil {
		refID := h.reporter.Error("products.list", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{ID: p.ID, Name: p.Name, Price: numericToString(p.Price)}
	}
	writeJSON(w, http.StatusOK, resp)
}
