package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/report"
)

// SupplierStore defines the database methods needed by supplier handlers.
type SupplierStore interface {
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
	ListSuppliersWithBalance(ctx context.Context, orgID uuid.UUID) ([]database.ListSuppliersWithBalanceRow, error)
}

// SupplierHandler handles supplier endpoints.
type SupplierHandler struct {
	store    SupplierStore
	reporter *report.Reporter
}

// NewSupplierHandler creates a new SupplierHandler.
func NewSupplierHandler(store SupplierStore, reporter *report.Reporter) *SupplierHandler {
	return &SupplierHandler{store: store, reporter: reporter}
}

// RegisterRoutes registers supplier endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/suppliers
func (h *SupplierHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
}

// --- Request / Response types ---

type createSupplierRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type supplierResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	OpenBalance string    `json:"open_balance"`
}

// --- Handlers ---

// Create handles POST /orgs/{oid}/suppliers.
func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return
	}

	var req createSupplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	email := pgtype.Text{}
	if req.Email != "" {
		email = pgtype.Text{String: req.Email, Valid: true}
	}

	supplier, err := h.store.CreateSupplier(r.Context(), database.CreateSupplierParams{
		OrgID: orgID,
		Name:  req.Name,
		Email: email,
	})
	if err != nil {
		refID := h.reporter.Error("suppliers.create", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
		return
	}

	resp := supplierResponse{ID: supplier.ID, Name: supplier.Name, OpenBalance: "0.00"}
	if supplier.Email.Valid {
		resp.Email = supplier.Email.String
	}
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orgs/{oid}/suppliers. Each supplier carries the
// summed pending balance of its live purchase documents.
func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return
	}

	rows, err := h.store.ListSuppliersWithBalance(r.Context(), orgID)
	if err != nil {
		refID := h.reporter.Error("suppliers.list", err, nil)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
		return
	}

	resp := make([]supplierResponse, len(rows))
	for i, row := range rows {
		resp[i] = supplierResponse{
			ID:          row.ID,
			Name:        row.Name,
			OpenBalance: numericToString(row.OpenBalance),
		}
		if row.Email.Valid {
			resp[i].Email = row.Email.String
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
